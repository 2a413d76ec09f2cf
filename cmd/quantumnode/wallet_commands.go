package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantumlabs/quantumchain/internal/wallet"
)

func newCreateWalletCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "createwallet",
		Short: "Generate a new wallet and print its address",
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

			w, err := wallet.New()
			if err != nil {
				return err
			}
			if err := store.SaveWalletScalar(w.Address(), w.Scalar()); err != nil {
				return err
			}
			fmt.Println(w.Address())
			return nil
		},
	}
}

func newListAddressesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "listaddresses",
		Short: "List every address with a wallet in the local store",
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

			addresses, err := store.WalletAddresses()
			if err != nil {
				return err
			}
			for _, address := range addresses {
				fmt.Println(address)
			}
			return nil
		},
	}
}

// loadWallet reconstructs a wallet.Wallet from its saved private scalar.
func loadWallet(store interface {
	LoadWalletScalar(address string) ([]byte, bool, error)
}, address string) (*wallet.Wallet, error) {
	scalar, ok, err := store.LoadWalletScalar(address)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no wallet stored for address %s", address)
	}
	return wallet.ImportPrivateKey(fmt.Sprintf("%x", scalar))
}
