// Command quantumnode runs a QuantumChain node: wallet management, chain
// inspection, transaction submission, and the P2P/mining server.
package main

import (
	"fmt"
	"os"

	"github.com/quantumlabs/quantumchain/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "quantumnode",
		Short: "QuantumChain node: wallets, chain inspection, and the P2P/mining server",
	}
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newCreateWalletCommand(),
		newListAddressesCommand(),
		newGetBalanceCommand(),
		newSendCommand(),
		newPrintChainCommand(),
		newReindexUTXOCommand(),
		newStartNodeCommand(),
	)
	return root
}
