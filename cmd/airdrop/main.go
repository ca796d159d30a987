// Command airdrop requests SOL for the identity from a faucet-enabled cluster.
package main

import (
	"github.com/spf13/cobra"

	"spltoken-go/internal/cli"
	"spltoken-go/internal/spl"
)

const lamportDecimals = 9

var (
	configPath string
	solFlag    string

	rootCmd = &cobra.Command{
		Use:   "airdrop",
		Short: "Request an airdrop of SOL to the identity",
		RunE:  runAirdrop,
	}
)

func init() {
	cli.ConfigFlag(rootCmd, &configPath)
	rootCmd.Flags().StringVar(&solFlag, "sol", "1", "SOL to request")
}

func main() {
	cli.Execute(rootCmd)
}

func runAirdrop(_ *cobra.Command, _ []string) error {
	env, err := cli.Boot(configPath)
	if err != nil {
		return err
	}
	defer env.Close()

	lamports, err := spl.ParseAmount(solFlag, lamportDecimals)
	if err != nil {
		return err
	}
	ctx, cancel := env.Context()
	defer cancel()

	res, err := env.Client.Airdrop(ctx, env.Payer.PublicKey(), lamports)
	if err != nil {
		return env.Fail("airdrop", err)
	}
	env.Report(res, lamportDecimals)
	return nil
}
