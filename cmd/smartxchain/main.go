// Command smartxchain is the node's CLI entrypoint: start a node, submit
// transactions, inspect the chain, and move value on/off chain via the
// file-export flow. One cobra.Command tree, with package-level
// subcommand constructors wired together by a root command.
package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"smartxchain/addr"
	"smartxchain/chain"
	"smartxchain/crypto"
	"smartxchain/node"
	"smartxchain/pkg/config"
	"smartxchain/rpcapi"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{Use: "smartxchain", Short: "SmartXChain permissioned node"}
	root.PersistentFlags().String("env", "", "environment name for config.Load")
	root.AddCommand(nodeCmd(), txCmd(), chainCmd(), walletCmd(), contractCmd())
	return root
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	env, _ := cmd.Flags().GetString("env")
	return config.Load(env)
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// nodeKeyPath/chainDumpPath/storePath derive the on-disk layout under a
// node's configured BlockchainPath.
func nodeKeyPath(cfg *config.Config) string {
	return filepath.Join(cfg.BlockchainPath, "node.key")
}

func chainDumpPath(cfg *config.Config) string {
	return filepath.Join(cfg.BlockchainPath, "chain-"+cfg.ChainID)
}

func storePath(cfg *config.Config) string {
	return filepath.Join(cfg.BlockchainPath, cfg.ChainID+".db")
}

// listenAddr derives the RPC server's bind address from the node's
// configured base URL, defaulting to :8080 when URL can't be parsed.
func listenAddr(cfg *config.Config) string {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Host == "" {
		return ":8080"
	}
	_, port, err := net.SplitHostPort(u.Host)
	if err != nil || port == "" {
		return ":8080"
	}
	return ":" + port
}

// loadOrCreateSystemKey persists the node's ECDSA signing key across
// restarts (spec names no key-rotation story, so a single long-lived key
// per BlockchainPath is the simplest faithful choice).
func loadOrCreateSystemKey(cfg *config.Config) (*ecdsa.PrivateKey, error) {
	path := nodeKeyPath(cfg)
	if data, err := os.ReadFile(path); err == nil {
		priv, err := crypto.DecodeSigningPrivateKeyPEM(string(data))
		if err != nil {
			return nil, fmt.Errorf("decode node key at %s: %w", path, err)
		}
		return priv, nil
	}

	priv, err := crypto.GenerateSigningKey()
	if err != nil {
		return nil, fmt.Errorf("generate node key: %w", err)
	}
	pemStr, err := crypto.EncodeSigningPrivateKeyPEM(priv)
	if err != nil {
		return nil, fmt.Errorf("encode node key: %w", err)
	}
	if err := os.MkdirAll(cfg.BlockchainPath, 0o700); err != nil {
		return nil, fmt.Errorf("create blockchain path %s: %w", cfg.BlockchainPath, err)
	}
	if err := os.WriteFile(path, []byte(pemStr), 0o600); err != nil {
		return nil, fmt.Errorf("write node key to %s: %w", path, err)
	}
	return priv, nil
}

// openOrchestrator assembles a *node.Orchestrator from config, resuming
// from a persisted chain dump when one exists.
func openOrchestrator(cfg *config.Config, log *logrus.Logger) (*node.Orchestrator, error) {
	key, err := loadOrCreateSystemKey(cfg)
	if err != nil {
		return nil, err
	}

	nodeCfg := node.Config{
		ChainID:           cfg.ChainID,
		SelfAddress:       cfg.URL,
		MinerAddress:      cfg.MinerAddress,
		SystemKey:         key,
		Difficulty:        cfg.Consensus.Difficulty,
		ConsensusDeadline: time.Duration(cfg.Consensus.TimeoutSeconds) * time.Second,
		PeerTimeout:       time.Duration(cfg.Node.TimeoutSeconds) * time.Second,
		MaxParallelConns:  cfg.MaxParallelConnections,
		Logger:            log,
	}

	var o *node.Orchestrator
	if dump, dumpErr := chain.LoadChainDump(cfg.ChainID, chainDumpPath(cfg)); dumpErr == nil {
		o, err = node.NewFromChain(nodeCfg, dump)
	} else {
		o, err = node.New(nodeCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}

	if err := o.AttachStore(storePath(cfg)); err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}
	for _, peer := range cfg.Peers {
		if _, err := o.Registry.Add(peer); err != nil {
			log.WithFields(logrus.Fields{"peer": peer, "error": err}).Warn("smartxchain: could not add configured peer")
		}
	}
	return o, nil
}

func nodeCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "node", Short: "Run or inspect a node"}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start the node's mining loop, sync loop and RPC server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			o, err := openOrchestrator(cfg, log)
			if err != nil {
				return err
			}
			defer o.Close()

			handler := rpcapi.New(o, nil, log)
			addr := listenAddr(cfg)
			srv := &http.Server{Addr: addr, Handler: handler.Router()}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			o.StartMining(ctx, time.Duration(cfg.Consensus.TimeoutSeconds)*time.Second)
			sync := node.NewSyncManager(o, log)
			sync.Start(ctx, time.Duration(cfg.Node.TimeoutSeconds)*time.Second)

			go func() {
				<-ctx.Done()
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				srv.Shutdown(shutdownCtx)
			}()

			log.WithField("addr", addr).Info("smartxchain: rpc server listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("rpc server: %w", err)
			}
			return chain.SaveChainDump(o.Chain, chainDumpPath(cfg))
		},
	}
	cmd.AddCommand(start)
	return cmd
}

func txCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tx", Short: "Submit transactions"}

	send := &cobra.Command{
		Use:   "send",
		Short: "Submit a native transfer to the local node's pending pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			o, err := openOrchestrator(cfg, log)
			if err != nil {
				return err
			}
			defer o.Close()

			sender, _ := cmd.Flags().GetString("from")
			recipient, _ := cmd.Flags().GetString("to")
			amountStr, _ := cmd.Flags().GetString("amount")
			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return fmt.Errorf("parse amount %q: %w", amountStr, err)
			}

			key, err := loadOrCreateSystemKey(cfg)
			if err != nil {
				return err
			}
			tx, err := o.Transfer(sender, recipient, amount, "", "", key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "submitted tx %s\n", tx.ID)
			return nil
		},
	}
	send.Flags().String("from", "", "sender address")
	send.Flags().String("to", "", "recipient address")
	send.Flags().String("amount", "0", "amount to transfer")
	cmd.AddCommand(send)
	return cmd
}

func chainCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "chain", Short: "Inspect the local chain"}

	info := &cobra.Command{
		Use:   "info",
		Short: "Print chain id, length and tail hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			o, err := openOrchestrator(cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer o.Close()

			tail := o.Chain.Tail()
			fmt.Fprintf(cmd.OutOrStdout(), "chainId=%s length=%d tailHash=%s valid=%v\n",
				o.ChainID(), o.Chain.Len(), tail.Hash, o.Chain.IsValid())
			return nil
		},
	}
	cmd.AddCommand(info)
	return cmd
}

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "wallet", Short: "Move value on/off chain via the file-export flow"}

	export := &cobra.Command{
		Use:   "export",
		Short: "Burn an amount to the export address and write a redeemable blob",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			o, err := openOrchestrator(cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer o.Close()

			sender, _ := cmd.Flags().GetString("from")
			amountStr, _ := cmd.Flags().GetString("amount")
			out, _ := cmd.Flags().GetString("out")
			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return fmt.Errorf("parse amount %q: %w", amountStr, err)
			}

			key, err := loadOrCreateSystemKey(cfg)
			if err != nil {
				return err
			}
			blob, err := o.TransferToFile(sender, amount, key)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(blob, "", "  ")
			if err != nil {
				return err
			}
			return os.WriteFile(out, data, 0o600)
		},
	}
	export.Flags().String("from", "", "sender address")
	export.Flags().String("amount", "0", "amount to export")
	export.Flags().String("out", "export.json", "output file path")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Redeem a previously exported blob into a recipient's balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			o, err := openOrchestrator(cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer o.Close()

			in, _ := cmd.Flags().GetString("in")
			recipient, _ := cmd.Flags().GetString("to")
			data, err := os.ReadFile(in)
			if err != nil {
				return err
			}
			var blob chain.ExportBlob
			if err := json.Unmarshal(data, &blob); err != nil {
				return err
			}
			tx, err := o.ImportFromFile(&blob, recipient)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported as tx %s\n", tx.ID)
			return nil
		},
	}
	importCmd.Flags().String("in", "export.json", "input file path")
	importCmd.Flags().String("to", "", "recipient address")

	cmd.AddCommand(export, importCmd)
	return cmd
}

func contractCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "contract", Short: "Deploy and call smart contracts"}

	deploy := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a contract's code, gated by peer code consensus before admission",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			o, err := openOrchestrator(cfg, log)
			if err != nil {
				return err
			}
			defer o.Close()

			name, _ := cmd.Flags().GetString("name")
			codePath, _ := cmd.Flags().GetString("code")
			code, err := os.ReadFile(codePath)
			if err != nil {
				return fmt.Errorf("read contract code %s: %w", codePath, err)
			}

			key, err := loadOrCreateSystemKey(cfg)
			if err != nil {
				return err
			}

			tx := chain.NewTransaction(chain.ContractDeploy, addr.System, addr.System, decimal.Zero)
			tx.Info = "$$" + name
			tx.Data = base64.StdEncoding.EncodeToString(code)

			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Consensus.TimeoutSeconds)*time.Second)
			defer cancel()
			if err := o.AddTransaction(ctx, tx, key); err != nil {
				return fmt.Errorf("deploy %q: %w", name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deployed contract %s as tx %s\n", name, tx.ID)
			return nil
		},
	}
	deploy.Flags().String("name", "", "contract name")
	deploy.Flags().String("code", "", "path to the contract's code")
	cmd.AddCommand(deploy)
	return cmd
}
