// Command mint issues tokens of the configured mint into the identity's associated account,
// creating the account first when it does not exist.
package main

import (
	"github.com/spf13/cobra"

	"spltoken-go/internal/cli"
	"spltoken-go/internal/spl"
)

var (
	configPath string
	mintFlag   string
	amountFlag string

	rootCmd = &cobra.Command{
		Use:   "mint",
		Short: "Mint SPL tokens to the identity's associated token account",
		RunE:  runMint,
	}
)

func init() {
	cli.ConfigFlag(rootCmd, &configPath)
	rootCmd.Flags().StringVar(&mintFlag, "mint", "", "mint address (default token.mint)")
	rootCmd.Flags().StringVar(&amountFlag, "amount", "", "human amount to mint (default token.mint_amount)")
}

func main() {
	cli.Execute(rootCmd)
}

func runMint(_ *cobra.Command, _ []string) error {
	env, err := cli.Boot(configPath)
	if err != nil {
		return err
	}
	defer env.Close()

	mint, err := cli.PublicKey("mint", mintFlag, env.Config.Token.Mint)
	if err != nil {
		return err
	}
	ctx, cancel := env.Context()
	defer cancel()

	run := spl.NewRun(env.Client, env.Log)
	amount, decimals, err := env.Plan(ctx, run, spl.OpMint, mint, amountFlag, env.Config.Token.MintAmount)
	if err != nil {
		return env.Fail("amount", err)
	}
	dest, err := run.Resolve(ctx, env.Payer, env.Payer.PublicKey(), mint)
	if err != nil {
		return env.Fail("resolve destination", err)
	}
	res, err := run.Mint(ctx, env.Payer, env.Payer, dest, amount)
	if err != nil {
		return env.Fail("mint", err)
	}
	env.Report(res, decimals)
	return nil
}
