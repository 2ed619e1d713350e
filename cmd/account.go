package cmd

import (
	"context"
	"fmt"

	"blocklucky/models"
	"blocklucky/service"

	"github.com/spf13/cobra"
)

// FundCmd credits an account
func FundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fund <address> <ether>",
		Short: "Deposit ether into an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			amount, err := models.ParseEther(args[1])
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				account, err := service.NewAccountService(a.factory).Deposit(ctx, address, amount)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s balance: %s ether\n", address.Hex(), models.FormatEther(account.Balance))
				return nil
			})
		},
	}
}

// BalanceCmd prints an account and its recent history
func BalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance <address>",
		Short: "Show an account balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("history")

			return withApp(cmd, func(ctx context.Context, a *app) error {
				accounts := service.NewAccountService(a.factory)
				account, err := accounts.GetAccount(ctx, address)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s\n  balance: %s ether\n  nonce:   %d\n", address.Hex(), models.FormatEther(account.Balance), account.Nonce)
				if limit <= 0 {
					return nil
				}

				history, err := accounts.GetHistory(ctx, address, limit)
				if err != nil {
					return err
				}
				for _, h := range history {
					fmt.Fprintf(out, "  %s  %-22s %s ether\n",
						h.CreatedAt.Format("2006-01-02 15:04:05"), h.TransactionType, models.FormatEther(h.ChangeAmount))
				}
				return nil
			})
		},
	}
	cmd.Flags().Int("history", 10, "number of history entries to show")
	return cmd
}
