package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/big"
	"strings"
	"time"

	"blocklucky/models"
	"blocklucky/service"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

// z-score of the 95th percentile of the standard normal distribution
const z95 = 1.6449

// FairnessReport summarises how evenly a randomness source picks winners
type FairnessReport struct {
	Source       string
	Participants int
	Draws        int
	Wins         []int
	ChiSquared   float64
	Critical     float64
}

// Fair reports whether the win counts are consistent with a uniform draw
// at 95% confidence
func (r FairnessReport) Fair() bool {
	return r.ChiSquared <= r.Critical
}

// FairnessCmd simulates draws to check a randomness source for bias
func FairnessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fairness",
		Short: "Simulate draws and test the winner distribution for uniformity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("source")
			seed, _ := cmd.Flags().GetInt64("seed")
			participants, _ := cmd.Flags().GetInt("participants")
			draws, _ := cmd.Flags().GetInt("draws")

			source, err := service.NewRandomSource(name, seed)
			if err != nil {
				return err
			}

			report, err := SimulateDraws(cmd.Context(), name, source, participants, draws)
			if err != nil {
				return err
			}
			report.Print(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().String("source", service.RandomSourceCrypto, "randomness source: crypto, block or seeded")
	cmd.Flags().Int64("seed", time.Now().UnixNano(), "seed for the seeded source")
	cmd.Flags().Int("participants", 10, "participants per round")
	cmd.Flags().Int("draws", 100000, "number of simulated rounds")
	return cmd
}

// SimulateDraws runs draws rounds of participants each and counts wins per slot
func SimulateDraws(ctx context.Context, name string, source service.RandomSource, participants, draws int) (FairnessReport, error) {
	if participants < 2 {
		return FairnessReport{}, fmt.Errorf("need at least 2 participants, got %d", participants)
	}
	if draws < participants {
		return FairnessReport{}, fmt.Errorf("need at least %d draws, got %d", participants, draws)
	}

	addrs := make([]common.Address, participants)
	for i := range addrs {
		addrs[i] = common.BigToAddress(big.NewInt(int64(i + 1)))
	}
	pot := new(big.Int).Mul(models.DefaultTicketPrice, big.NewInt(int64(participants)))

	report := FairnessReport{
		Source:       name,
		Participants: participants,
		Draws:        draws,
		Wins:         make([]int, participants),
	}

	for i := 0; i < draws; i++ {
		draw := service.DrawContext{LotteryID: 1, Round: int64(i + 1), Participants: addrs, Pot: pot}
		idx, err := source.Intn(ctx, draw, participants)
		if err != nil {
			return FairnessReport{}, fmt.Errorf("draw %d failed: %w", i+1, err)
		}
		if idx < 0 || idx >= participants {
			return FairnessReport{}, fmt.Errorf("draw %d returned index %d outside [0, %d)", i+1, idx, participants)
		}
		report.Wins[idx]++
	}

	expected := float64(draws) / float64(participants)
	for _, w := range report.Wins {
		report.ChiSquared += math.Pow(float64(w)-expected, 2) / expected
	}
	report.Critical = chiSquaredCritical95(participants - 1)

	return report, nil
}

// chiSquaredCritical95 approximates the 95% critical value for df degrees
// of freedom (Wilson-Hilferty)
func chiSquaredCritical95(df int) float64 {
	k := float64(df)
	t := 2 / (9 * k)
	return k * math.Pow(1-t+z95*math.Sqrt(t), 3)
}

// Print writes the report in the same layout as the per-bucket histogram
func (r FairnessReport) Print(w io.Writer) {
	expected := float64(r.Draws) / float64(r.Participants)

	fmt.Fprintf(w, "=== Draw fairness: %s source, %d participants, %d draws ===\n\n", r.Source, r.Participants, r.Draws)
	fmt.Fprintf(w, "Wins per participant (each should be ~%.0f):\n", expected)
	for i, wins := range r.Wins {
		deviation := (float64(wins) - expected) / expected * 100
		bar := strings.Repeat("█", int(float64(wins)/expected*20))
		fmt.Fprintf(w, "  #%-3d %8d (%+6.2f%%) %s\n", i+1, wins, deviation, bar)
	}

	fmt.Fprintf(w, "\nχ² (uniformity): %.2f (should be < %.2f for 95%% confidence with %d df)\n",
		r.ChiSquared, r.Critical, r.Participants-1)
	if r.Fair() {
		fmt.Fprintln(w, "✓ No evidence of bias")
	} else {
		fmt.Fprintln(w, "✗ Winner distribution is biased")
	}
}
