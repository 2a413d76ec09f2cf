package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/vrecan/death/v3"

	"github.com/quantumlabs/quantumchain/internal/engine"
	"github.com/quantumlabs/quantumchain/internal/p2p"
)

func newStartNodeCommand() *cobra.Command {
	var minerAddress string
	cmd := &cobra.Command{
		Use:   "startnode",
		Short: "Start the P2P listener, optionally mining to an address",
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

			self := p2p.Peer{Host: cfg.ListenHost, Port: cfg.ListenPort}
			node := p2p.NewNode(self, eng, log, nowUnix)
			if err := node.Listen(); err != nil {
				return err
			}
			defer node.Close()
			log.Info().Str("address", self.String()).Msg("P2P listener started")

			if cfg.BootstrapPeer != "" {
				peer, err := parsePeer(cfg.BootstrapPeer)
				if err != nil {
					return err
				}
				if err := node.Bootstrap(peer); err != nil {
					log.Warn().Err(err).Str("peer", peer.String()).Msg("bootstrap failed")
				}
			}

			stop := make(chan struct{})
			if minerAddress != "" {
				go miningLoop(eng, minerAddress, log, stop)
			}

			d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
			d.WaitForDeathWithFunc(func() {
				close(stop)
				node.Close()
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&minerAddress, "miner", "", "if set, mine continuously to this reward address")
	return cmd
}

func parsePeer(hostport string) (p2p.Peer, error) {
	idx := strings.LastIndex(hostport, ":")
	if idx < 0 {
		return p2p.Peer{}, fmt.Errorf("invalid peer address %q, expected host:port", hostport)
	}
	host := hostport[:idx]
	var port int
	if _, err := fmt.Sscanf(hostport[idx+1:], "%d", &port); err != nil {
		return p2p.Peer{}, fmt.Errorf("invalid peer port in %q: %w", hostport, err)
	}
	return p2p.Peer{Host: host, Port: port}, nil
}

// miningLoop repeatedly mines to address, one block at a time, until stop
// is closed. Gossiping a newly mined block to peers is left to the P2P
// layer's REQUEST_CHAIN/SEND_CHAIN exchanges rather than pushed here,
// keeping this loop's only job mining.
func miningLoop(eng *engine.Engine, address string, log zerolog.Logger, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		mined, ok := eng.Mine(address)
		if !ok {
			continue
		}
		log.Info().Int("height", mined.Index).Str("hash", mined.Hash).Msg("mined block")
	}
}
