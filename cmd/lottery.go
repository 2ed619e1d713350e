package cmd

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"blocklucky/models"
	"blocklucky/service"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

// withApp opens the configured store for the duration of fn
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, loadConfig())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%q is not a hex address", s)
	}
	return common.HexToAddress(s), nil
}

// callerFlag resolves --from, falling back to the configured owner
func callerFlag(cmd *cobra.Command, a *app) (common.Address, error) {
	from, _ := cmd.Flags().GetString("from")
	if from == "" {
		from = a.cfg.OwnerAddress
	}
	if from == "" {
		return common.Address{}, fmt.Errorf("--from or OWNER_ADDRESS is required")
	}
	return parseAddress(from)
}

// DeployCmd creates a new lottery
func DeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a new lottery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				owner, err := callerFlag(cmd, a)
				if err != nil {
					return err
				}
				minParticipants, _ := cmd.Flags().GetUint64("min")
				if minParticipants == 0 {
					minParticipants = a.cfg.MinParticipants
				}
				price := a.cfg.TicketPrice()
				if p, _ := cmd.Flags().GetString("price"); p != "" {
					if price, err = models.ParseEther(p); err != nil {
						return err
					}
				}

				lottery, err := service.Deploy(ctx, a.factory, owner, minParticipants, price)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deployed lottery %d (owner %s, %d participants, %s ether per ticket)\n",
					lottery.ID, owner.Hex(), minParticipants, models.FormatEther(price))
				return nil
			})
		},
	}
	cmd.Flags().String("from", "", "owner address (default OWNER_ADDRESS)")
	cmd.Flags().Uint64("min", 0, "minimum participants (default MIN_PARTICIPANTS)")
	cmd.Flags().String("price", "", "ticket price in ether (default TICKET_PRICE_WEI)")
	return cmd
}

// InfoCmd prints the lottery state
func InfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the configured lottery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				lottery, err := a.lotteryService()
				if err != nil {
					return err
				}
				l, err := lottery.GetLottery(ctx)
				if err != nil {
					return err
				}
				printLottery(cmd.OutOrStdout(), l)
				return nil
			})
		},
	}
}

func printLottery(w io.Writer, l *models.Lottery) {
	state := "active"
	if l.Completed {
		state = "completed"
	}
	fmt.Fprintf(w, "Lottery %d, round %d (%s)\n", l.ID, l.Round, state)
	fmt.Fprintf(w, "  owner:        %s\n", l.Owner.Hex())
	fmt.Fprintf(w, "  ticket price: %s ether\n", models.FormatEther(l.TicketPrice))
	fmt.Fprintf(w, "  participants: %d / %d\n", l.ParticipantCount(), l.MinParticipants)
	fmt.Fprintf(w, "  pot:          %s ether\n", models.FormatEther(l.Pot))
	if l.Forfeited != nil && l.Forfeited.Sign() > 0 {
		fmt.Fprintf(w, "  forfeited:    %s ether\n", models.FormatEther(l.Forfeited))
	}
	if l.Completed {
		fmt.Fprintf(w, "  winner:       %s\n", l.Winner.Hex())
	}
	for i, p := range l.Participants {
		fmt.Fprintf(w, "  %3d. %s x%d\n", i+1, p.Hex(), l.TicketsByAddress[p])
	}
}

// ResetCmd opens a new round
func ResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Open a new round (owner only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				from, err := callerFlag(cmd, a)
				if err != nil {
					return err
				}
				minParticipants, _ := cmd.Flags().GetUint64("min")

				lottery, err := a.lotteryService()
				if err != nil {
					return err
				}
				if err := lottery.ResetLottery(ctx, service.Call{From: from, Value: new(big.Int)}, minParticipants); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Lottery %d reset, %d participants required\n", a.cfg.LotteryID, minParticipants)
				return nil
			})
		},
	}
	cmd.Flags().String("from", "", "caller address (default OWNER_ADDRESS)")
	cmd.Flags().Uint64("min", 0, "minimum participants for the new round")
	cmd.MarkFlagRequired("min")
	return cmd
}

// WithdrawCmd drains the pot to the owner
func WithdrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Emergency withdraw the pot (owner only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				from, err := callerFlag(cmd, a)
				if err != nil {
					return err
				}
				lottery, err := a.lotteryService()
				if err != nil {
					return err
				}
				amount, err := lottery.EmergencyWithdraw(ctx, service.Call{From: from, Value: new(big.Int)})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Withdrew %s ether to %s\n", models.FormatEther(amount), from.Hex())
				return nil
			})
		},
	}
	cmd.Flags().String("from", "", "caller address (default OWNER_ADDRESS)")
	return cmd
}
