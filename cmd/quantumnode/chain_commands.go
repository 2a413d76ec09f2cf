package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetBalanceCommand() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "getbalance",
		Short: "Print the spendable balance of an address",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			log := newLogger()
			eng, err := openEngine(cfg, store, log)
			if err != nil {
				return err
			}
			fmt.Printf("Balance of %s: %.2f\n", address, eng.Balance(address))
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "address to query")
	return cmd
}

func newSendCommand() *cobra.Command {
	var from, to string
	var amount float64
	var mine bool
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send coins from one address to another",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			log := newLogger()
			eng, err := openEngine(cfg, store, log)
			if err != nil {
				return err
			}

			w, err := loadWallet(store, from)
			if err != nil {
				return err
			}

			tx, err := eng.CreateTransaction(w, to, amount)
			if err != nil {
				return err
			}
			if err := eng.SubmitTransaction(*tx); err != nil {
				return err
			}
			fmt.Printf("Transaction %s submitted\n", tx.Txid)

			if mine {
				block, ok := eng.Mine(from)
				if !ok {
					return fmt.Errorf("mining was cancelled")
				}
				fmt.Printf("Mined block #%d: %s\n", block.Index, block.Hash)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "sender address")
	cmd.Flags().StringVar(&to, "to", "", "recipient address")
	cmd.Flags().Float64Var(&amount, "amount", 0, "amount to send")
	cmd.Flags().BoolVar(&mine, "mine", false, "mine a block immediately after submitting")
	return cmd
}

func newPrintChainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "printchain",
		Short: "Print every block in the chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			log := newLogger()
			eng, err := openEngine(cfg, store, log)
			if err != nil {
				return err
			}

			for _, b := range eng.LatestBlocks(eng.ChainLength()) {
				fmt.Printf("Block #%d\n", b.Index)
				fmt.Printf("  Hash: %s\n", b.Hash)
				fmt.Printf("  Previous Hash: %s\n", b.PreviousHash)
				fmt.Printf("  Merkle Root: %s\n", b.MerkleRoot)
				fmt.Printf("  Nonce: %d\n", b.Nonce)
				fmt.Printf("  Transactions: %d\n\n", len(b.Transactions))
			}
			return nil
		},
	}
}

func newReindexUTXOCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reindexutxo",
		Short: "Rebuild the UTXO set from the persisted chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			log := newLogger()
			// Constructing the engine already rebuilds the UTXO set from
			// the persisted chain on load; this command exists to give
			// that behavior an explicit, discoverable entry point.
			eng, err := openEngine(cfg, store, log)
			if err != nil {
				return err
			}
			fmt.Printf("UTXO set rebuilt from %d blocks\n", eng.ChainLength())
			return nil
		},
	}
}
