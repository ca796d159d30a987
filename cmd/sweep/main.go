// Command sweep sends every lamport of the identity, less the fee, to another wallet.
package main

import (
	"github.com/spf13/cobra"

	"spltoken-go/internal/cli"
)

var (
	configPath string
	toFlag     string

	rootCmd = &cobra.Command{
		Use:   "sweep",
		Short: "Drain the identity's SOL balance into another wallet",
		RunE:  runSweep,
	}
)

func init() {
	cli.ConfigFlag(rootCmd, &configPath)
	rootCmd.Flags().StringVar(&toFlag, "to", "", "destination wallet address")
	_ = rootCmd.MarkFlagRequired("to")
}

func main() {
	cli.Execute(rootCmd)
}

func runSweep(_ *cobra.Command, _ []string) error {
	env, err := cli.Boot(configPath)
	if err != nil {
		return err
	}
	defer env.Close()

	to, err := cli.PublicKey("to", toFlag, "")
	if err != nil {
		return err
	}
	ctx, cancel := env.Context()
	defer cancel()

	res, err := env.Client.Sweep(ctx, env.Payer, to)
	if err != nil {
		return env.Fail("sweep", err)
	}
	env.Report(res, 9)
	return nil
}
