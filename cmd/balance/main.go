// Command balance prints the SOL balance of an owner and, when a mint is configured,
// its token balance and the mint supply. It never submits a transaction.
package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"spltoken-go/internal/cli"
	"spltoken-go/internal/spl"
)

var (
	configPath string
	mintFlag   string
	ownerFlag  string

	rootCmd = &cobra.Command{
		Use:   "balance",
		Short: "Show SOL and token balances",
		RunE:  runBalance,
	}
)

func init() {
	cli.ConfigFlag(rootCmd, &configPath)
	rootCmd.Flags().StringVar(&mintFlag, "mint", "", "mint address (default token.mint)")
	rootCmd.Flags().StringVar(&ownerFlag, "owner", "", "wallet to inspect (default the identity)")
}

func main() {
	cli.Execute(rootCmd)
}

func runBalance(_ *cobra.Command, _ []string) error {
	env, err := cli.Boot(configPath)
	if err != nil {
		return err
	}
	defer env.Close()

	owner, err := cli.PublicKey("owner", ownerFlag, env.Payer.PublicKey().String())
	if err != nil {
		return err
	}
	ctx, cancel := env.Context()
	defer cancel()

	lamports, err := env.Client.Balance(ctx, owner)
	if err != nil {
		return env.Fail("balance", err)
	}
	fmt.Printf("owner  %s\n", owner)
	fmt.Printf("SOL    %s\n", spl.FormatAmount(lamports, 9))

	if mintFlag == "" && env.Config.Token.Mint == "" {
		return nil
	}
	mint, err := cli.PublicKey("mint", mintFlag, env.Config.Token.Mint)
	if err != nil {
		return err
	}
	supply, decimals, err := env.Client.Supply(ctx, mint)
	if err != nil {
		return env.Fail("supply", err)
	}
	fmt.Printf("mint   %s (supply %s)\n", mint, spl.FormatAmount(supply, decimals))

	ata, err := spl.AssociatedAddress(owner, mint)
	if err != nil {
		return err
	}
	units, _, err := env.Client.TokenBalance(ctx, ata)
	switch {
	case errors.Is(err, spl.ErrInvalidReference):
		color.Yellow("token  no associated account at %s", ata)
		return nil
	case err != nil:
		return env.Fail("token balance", err)
	}
	fmt.Printf("token  %s at %s\n", spl.FormatAmount(units, decimals), ata)
	return nil
}
