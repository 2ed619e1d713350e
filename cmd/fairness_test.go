package cmd

import (
	"bytes"
	"context"
	"testing"

	"blocklucky/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChiSquaredCritical95(t *testing.T) {
	// Table values
	assert.InDelta(t, 3.84, chiSquaredCritical95(1), 0.15)
	assert.InDelta(t, 9.49, chiSquaredCritical95(4), 0.1)
	assert.InDelta(t, 16.92, chiSquaredCritical95(9), 0.1)
	assert.InDelta(t, 124.34, chiSquaredCritical95(100), 0.2)
}

func TestSimulateDraws_Uniform(t *testing.T) {
	var next int
	roundRobin := service.RandomSourceFunc(func(_ context.Context, _ service.DrawContext, n int) (int, error) {
		idx := next % n
		next++
		return idx, nil
	})

	report, err := SimulateDraws(context.Background(), "round-robin", roundRobin, 5, 1000)
	require.NoError(t, err)

	assert.Equal(t, []int{200, 200, 200, 200, 200}, report.Wins)
	assert.Zero(t, report.ChiSquared)
	assert.True(t, report.Fair())

	var out bytes.Buffer
	report.Print(&out)
	assert.Contains(t, out.String(), "No evidence of bias")
}

func TestSimulateDraws_Biased(t *testing.T) {
	alwaysFirst := service.RandomSourceFunc(func(context.Context, service.DrawContext, int) (int, error) {
		return 0, nil
	})

	report, err := SimulateDraws(context.Background(), "rigged", alwaysFirst, 4, 400)
	require.NoError(t, err)

	assert.Equal(t, 400, report.Wins[0])
	assert.False(t, report.Fair())

	var out bytes.Buffer
	report.Print(&out)
	assert.Contains(t, out.String(), "biased")
}

func TestSimulateDraws_Validation(t *testing.T) {
	source := service.NewSeededRandomSource(1)

	_, err := SimulateDraws(context.Background(), "seeded", source, 1, 100)
	assert.Error(t, err)

	_, err = SimulateDraws(context.Background(), "seeded", source, 10, 5)
	assert.Error(t, err)

	outOfRange := service.RandomSourceFunc(func(_ context.Context, _ service.DrawContext, n int) (int, error) {
		return n, nil
	})
	_, err = SimulateDraws(context.Background(), "broken", outOfRange, 3, 10)
	assert.Error(t, err)
}

func TestFairnessCmd_SeededSource(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"fairness", "--source", "seeded", "--seed", "42", "--participants", "3", "--draws", "300"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "seeded source, 3 participants, 300 draws")
}
