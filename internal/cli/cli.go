// Package cli holds the boot sequence and terminal helpers shared by the programs under cmd/.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	solana "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"spltoken-go/internal/config"
	"spltoken-go/internal/metrics"
	"spltoken-go/internal/risk"
	"spltoken-go/internal/spl"
	"spltoken-go/internal/util"
	"spltoken-go/internal/wallet"
)

// ConfigFlag registers the persistent --config flag on root.
func ConfigFlag(root *cobra.Command, path *string) {
	root.PersistentFlags().StringVar(path, "config", config.DefaultPath, "path to the YAML configuration")
}

// LoadConfig reads path, overlays the environment and validates the result.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Env is everything a program needs after boot.
type Env struct {
	Config *config.Config
	Log    zerolog.Logger
	Client *spl.Client
	Payer  solana.PrivateKey

	metrics *http.Server
}

// Boot loads configuration and the signing identity and connects the client.
func Boot(path string) (*Env, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	log := util.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat).With().Str("app", cfg.App.Name).Logger()

	payer, err := wallet.Load(cfg.Wallet)
	if err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	client := spl.NewClient(cfg.Cluster.RpcURL, cfg.Cluster.Commitment, log, spl.WithConfirmPoll(cfg.Cluster.ConfirmPoll()))
	log.Info().
		Str("rpc", cfg.Cluster.RpcURL).
		Str("commitment", string(client.Commit)).
		Str("identity", payer.PublicKey().String()).
		Msg("session opened")

	env := &Env{Config: cfg, Log: log, Client: client, Payer: payer}
	if srv := metrics.Serve(cfg.App.MetricsAddr); srv != nil {
		env.metrics = srv
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}
	return env, nil
}

// Context bounds the run by the cluster timeout and cancels on SIGINT/SIGTERM.
func (e *Env) Context() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, e.Config.Cluster.Timeout())
	return ctx, func() {
		cancel()
		stop()
	}
}

// Close stops the metrics listener if one was started.
func (e *Env) Close() {
	if e.metrics != nil {
		_ = e.metrics.Close()
	}
}

// PublicKey parses flag, falling back to the configured value; name is used in errors.
func PublicKey(name, flag, fallback string) (solana.PublicKey, error) {
	v := flag
	if v == "" {
		v = fallback
	}
	if v == "" {
		return solana.PublicKey{}, fmt.Errorf("%s is required", name)
	}
	pk, err := solana.PublicKeyFromBase58(v)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s %q: %w", name, v, err)
	}
	return pk, nil
}

// Amount scales a human amount (flag or config fallback) by decimals and applies the configured cap for op.
func (e *Env) Amount(op spl.Op, flag, fallback string, decimals uint8) (uint64, error) {
	v := flag
	if v == "" {
		v = fallback
	}
	units, err := spl.ParseAmount(v, decimals)
	if err != nil {
		return 0, &spl.OpError{Op: string(op), Kind: spl.ErrInvalidAmount, Err: err}
	}
	limits, err := risk.FromConfig(e.Config.Limits, decimals)
	if err != nil {
		return 0, err
	}
	return units, limits.Check(op, units)
}

// Plan reads mint's decimals and checks the requested amount for op before the
// run resolves or creates any account. A refusal ends the run.
func (e *Env) Plan(ctx context.Context, run *spl.Run, op spl.Op, mint solana.PublicKey, flag, fallback string) (uint64, uint8, error) {
	m, err := e.Client.GetMint(ctx, mint)
	if err != nil {
		return 0, 0, run.Abort(err)
	}
	units, err := e.Amount(op, flag, fallback, m.Decimals)
	if err != nil {
		return 0, 0, run.Abort(err)
	}
	return units, m.Decimals, nil
}

// Explorer returns the explorer link for sig, or "" off devnet.
func (e *Env) Explorer(sig solana.Signature) string {
	if !e.Config.Cluster.IsDevnet() {
		return ""
	}
	return spl.ExplorerURL(sig, "devnet")
}

// Report logs a confirmed operation and prints a status line.
func (e *Env) Report(res spl.Result, decimals uint8) {
	ev := e.Log.Info().
		Str("op", string(res.Op)).
		Str("sig", res.Signature.String()).
		Uint64("amount", res.Amount).
		Uint64("slot", res.Slot)
	if link := e.Explorer(res.Signature); link != "" {
		ev = ev.Str("explorer", link)
	}
	ev.Msg("operation confirmed")
	color.Green("%s %s confirmed: %s", res.Op, spl.FormatAmount(res.Amount, decimals), res.Signature)
}

// Execute runs root and exits non-zero on failure.
func Execute(root *cobra.Command) {
	root.SilenceUsage = true
	root.SilenceErrors = true
	if err := root.Execute(); err != nil {
		color.Red("%s failed [%s]: %v", root.Name(), kind(err), err)
		os.Exit(1)
	}
}

// Fail logs err once with its kind and returns it for the caller to propagate.
func (e *Env) Fail(msg string, err error) error {
	e.Log.Error().Err(err).Str("kind", kind(err)).Msg(msg)
	return err
}

func kind(err error) string {
	var opErr *spl.OpError
	if errors.As(err, &opErr) {
		return spl.Kind(err)
	}
	if errors.Is(err, spl.ErrRunFinished) {
		return "run_finished"
	}
	return "setup"
}
