// Command console is an interactive menu for editing the configuration and launching the programs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"spltoken-go/internal/cli"
	"spltoken-go/internal/config"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "console",
		Short: "Interactive configuration and launcher",
		RunE:  runConsole,
	}
)

var programs = []string{"balance", "airdrop", "mint", "transfer", "sweep", "simnet"}

const (
	menuSummary = iota
	menuToken
	menuCluster
	menuLimits
	menuSave
	menuReload
	menuLaunch
	menuExit
)

var menu = []string{
	"Show configuration summary",
	"Edit token settings",
	"Edit cluster settings",
	"Edit limits",
	"Save config",
	"Reload config from disk",
	"Launch a program",
	"Exit",
}

func init() {
	cli.ConfigFlag(rootCmd, &configPath)
}

func main() {
	cli.Execute(rootCmd)
}

func runConsole(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	for {
		choice, err := cli.PromptChoice("SPL token console", menu)
		if err != nil {
			return nil // ^C / ^D
		}
		switch choice {
		case menuSummary:
			printSummary(cfg)
		case menuToken:
			report(editToken(cfg))
		case menuCluster:
			report(editCluster(cfg))
		case menuLimits:
			report(editLimits(cfg))
		case menuSave:
			if err := cfg.Validate(); err != nil {
				color.Red("not saved: %v", err)
				continue
			}
			if err := config.Save(configPath, cfg); err != nil {
				color.Red("save failed: %v", err)
				continue
			}
			color.Green("config saved to %s", configPath)
		case menuReload:
			reloaded, err := config.Load(configPath)
			if err != nil {
				color.Red("reload failed: %v", err)
				continue
			}
			cfg = reloaded
			color.Green("config reloaded")
		case menuLaunch:
			report(launch())
		case menuExit:
			return nil
		}
	}
}

func report(err error) {
	if err != nil {
		color.Red("%v", err)
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println()
	color.Cyan("--- Configuration (%s) ---", configPath)
	fmt.Printf("RPC:             %s (%s)\n", cfg.Cluster.RpcURL, cfg.Cluster.Commitment)
	fmt.Printf("Timeout:         %s, poll %s\n", cfg.Cluster.Timeout(), cfg.Cluster.ConfirmPoll())
	fmt.Printf("Keypair:         %s\n", cfg.Wallet.KeypairPath)
	fmt.Printf("Mint:            %s\n", orNone(cfg.Token.Mint))
	fmt.Printf("Recipient:       %s\n", orNone(cfg.Token.Recipient))
	fmt.Printf("Mint amount:     %s\n", orNone(cfg.Token.MintAmount))
	fmt.Printf("Transfer amount: %s\n", orNone(cfg.Token.TransferAmount))
	fmt.Printf("Max mint:        %s\n", orUnlimited(cfg.Limits.MaxMint))
	fmt.Printf("Max transfer:    %s\n", orUnlimited(cfg.Limits.MaxTransfer))
	fmt.Printf("Simnet:          %s, %d seeded mint(s)\n", cfg.Simnet.Addr, len(cfg.Simnet.Mints))
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func orUnlimited(s string) string {
	if s == "" {
		return "unlimited"
	}
	return s
}

func editToken(cfg *config.Config) (err error) {
	t := &cfg.Token
	if t.Mint, err = cli.PromptValue("Mint address", t.Mint, cli.ValidatePublicKey); err != nil {
		return err
	}
	if t.Recipient, err = cli.PromptValue("Recipient wallet", t.Recipient, cli.ValidatePublicKey); err != nil {
		return err
	}
	if t.MintAmount, err = cli.PromptValue("Mint amount", t.MintAmount, cli.ValidateAmount); err != nil {
		return err
	}
	t.TransferAmount, err = cli.PromptValue("Transfer amount", t.TransferAmount, cli.ValidateAmount)
	return err
}

func editCluster(cfg *config.Config) (err error) {
	c := &cfg.Cluster
	presets := []string{config.DevnetRPC, "http://" + cfg.Simnet.Addr, "custom"}
	idx, err := cli.PromptChoice("RPC endpoint", presets)
	if err != nil {
		return err
	}
	if idx < len(presets)-1 {
		c.RpcURL = presets[idx]
	} else if c.RpcURL, err = cli.PromptValue("RPC URL", c.RpcURL, nil); err != nil {
		return err
	}
	c.Commitment, err = cli.PromptValue("Commitment", c.Commitment, cli.ValidateCommitment)
	return err
}

func editLimits(cfg *config.Config) (err error) {
	l := &cfg.Limits
	if l.MaxMint, err = cli.PromptValue("Max mint per run (blank keeps)", l.MaxMint, cli.ValidateAmount); err != nil {
		return err
	}
	l.MaxTransfer, err = cli.PromptValue("Max transfer per run (blank keeps)", l.MaxTransfer, cli.ValidateAmount)
	return err
}

// launch runs one program in the foreground until it exits or ^C is pressed.
func launch() error {
	idx, err := cli.PromptChoice("Program", programs)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/"+programs[idx], "--config", configPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	color.Cyan("launching %s (Ctrl+C to stop)...", programs[idx])
	if err := cmd.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("%s: %w", programs[idx], err)
	}
	return nil
}
