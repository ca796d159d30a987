// Command transfer moves tokens from the identity's associated account to a recipient's,
// creating either account when it does not exist.
package main

import (
	"github.com/spf13/cobra"

	"spltoken-go/internal/cli"
	"spltoken-go/internal/spl"
)

var (
	configPath string
	mintFlag   string
	toFlag     string
	amountFlag string

	rootCmd = &cobra.Command{
		Use:   "transfer",
		Short: "Transfer SPL tokens from the identity to a recipient",
		RunE:  runTransfer,
	}
)

func init() {
	cli.ConfigFlag(rootCmd, &configPath)
	rootCmd.Flags().StringVar(&mintFlag, "mint", "", "mint address (default token.mint)")
	rootCmd.Flags().StringVar(&toFlag, "to", "", "recipient wallet address (default token.recipient)")
	rootCmd.Flags().StringVar(&amountFlag, "amount", "", "human amount to send (default token.transfer_amount)")
}

func main() {
	cli.Execute(rootCmd)
}

func runTransfer(_ *cobra.Command, _ []string) error {
	env, err := cli.Boot(configPath)
	if err != nil {
		return err
	}
	defer env.Close()

	mint, err := cli.PublicKey("mint", mintFlag, env.Config.Token.Mint)
	if err != nil {
		return err
	}
	recipient, err := cli.PublicKey("recipient", toFlag, env.Config.Token.Recipient)
	if err != nil {
		return err
	}
	ctx, cancel := env.Context()
	defer cancel()

	run := spl.NewRun(env.Client, env.Log)
	amount, decimals, err := env.Plan(ctx, run, spl.OpTransfer, mint, amountFlag, env.Config.Token.TransferAmount)
	if err != nil {
		return env.Fail("amount", err)
	}
	src, err := run.Resolve(ctx, env.Payer, env.Payer.PublicKey(), mint)
	if err != nil {
		return env.Fail("resolve source", err)
	}
	dst, err := run.Resolve(ctx, env.Payer, recipient, mint)
	if err != nil {
		return env.Fail("resolve destination", err)
	}
	res, err := run.Transfer(ctx, env.Payer, env.Payer, src, dst, amount)
	if err != nil {
		return env.Fail("transfer", err)
	}
	env.Report(res, decimals)
	return nil
}
