// Command simnet serves a simulated Solana ledger over JSON-RPC so the other programs
// can run end to end without a public cluster.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"spltoken-go/internal/cli"
	"spltoken-go/internal/simnet"
	"spltoken-go/internal/util"
	"spltoken-go/internal/wallet"
)

const journalCapacity = 1024

var (
	configPath  string
	addrFlag    string
	journalFlag string

	rootCmd = &cobra.Command{
		Use:   "simnet",
		Short: "Serve a simulated ledger on a local JSON-RPC endpoint",
		RunE:  runSimnet,
	}
)

func init() {
	cli.ConfigFlag(rootCmd, &configPath)
	rootCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (default simnet.addr)")
	rootCmd.Flags().StringVar(&journalFlag, "journal", "", "JSONL journal path (default simnet.journal_path)")
}

func main() {
	cli.Execute(rootCmd)
}

func runSimnet(_ *cobra.Command, _ []string) error {
	cfg, err := cli.LoadConfig(configPath)
	if err != nil {
		return err
	}
	log := util.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat).With().Str("app", "simnet").Logger()

	addr := cfg.Simnet.Addr
	if addrFlag != "" {
		addr = addrFlag
	}
	journalPath := cfg.Simnet.JournalPath
	if journalFlag != "" {
		journalPath = journalFlag
	}

	recorders := simnet.Tee{simnet.NewJournal(journalCapacity)}
	if journalPath != "" {
		jsonl, err := simnet.NewJSONLRecorder(journalPath)
		if err != nil {
			return err
		}
		defer jsonl.Close()
		recorders = append(recorders, jsonl)
	}
	ledger := simnet.NewLedger(log, simnet.WithRecorder(recorders))

	var identity *solana.PublicKey
	if key, err := wallet.Load(cfg.Wallet); err == nil {
		pk := key.PublicKey()
		identity = &pk
	} else {
		log.Warn().Err(err).Msg("no identity; mints without an authority get a fixed supply")
	}
	if err := simnet.Seed(ledger, cfg.Simnet, identity); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           simnet.NewServer(ledger, 0).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info().Str("addr", addr).Str("journal", journalPath).Msg("simnet up")

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info().Uint64("slot", ledger.Slot()).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
