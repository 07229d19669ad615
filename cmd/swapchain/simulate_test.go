package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/defistate/swapchain-go/cmd/swapchain/config"
	"github.com/defistate/swapchain-go/engine"
	"github.com/defistate/swapchain-go/store/sqlite"
	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simulateConfig(route ...config.RouteLeg) *config.Config {
	return &config.Config{
		ProgramID: config.Key(solana.NewWallet().PublicKey()),
		Log:       config.LogConfig{Level: "info"},
		Simulate: config.SimulateConfig{
			Tokens:   map[string]uint64{"USDC": 10_000, "SOL": 0},
			Origin:   "USDC",
			AmountIn: 1000,
			Pools: []config.PoolConfig{
				{Name: "orca-usdc-sol", Venue: "orca", TokenA: "USDC", TokenB: "SOL", ReserveA: 1_000_000, ReserveB: 2_000_000, FeeBps: 30},
				{Name: "saber-sol-usdc", Venue: "saber", TokenA: "SOL", TokenB: "USDC", ReserveA: 1_000_000, ReserveB: 1_000_000, FeeBps: 4},
			},
			Route: route,
		},
	}
}

func runTestSimulation(t *testing.T, cfg *config.Config) (string, []sqlite.Run, error) {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runErr := runSimulate(context.Background(), &out, cfg, store, logger, prometheus.NewRegistry())

	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	return out.String(), runs, runErr
}

func TestSimulateProfitableRoute(t *testing.T) {
	cfg := simulateConfig(
		config.RouteLeg{Pool: "orca-usdc-sol", Direction: "a_to_b"},
		config.RouteLeg{Pool: "saber-sol-usdc", Direction: "a_to_b"},
	)
	out, runs, err := runTestSimulation(t, cfg)
	require.NoError(t, err)

	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, sqlite.ModeSimulate, run.Mode)
	assert.Equal(t, sqlite.StatusProfit, run.Status)
	assert.Equal(t, 2, run.Legs)
	assert.Equal(t, uint64(10_000), run.StartBalance)
	assert.Greater(t, run.FinalBalance, run.StartBalance)

	assert.Contains(t, out, "trader USDC")
	assert.Contains(t, out, "orca-usdc-sol SOL")
}

func TestSimulateLosingRouteReverts(t *testing.T) {
	cfg := simulateConfig(
		config.RouteLeg{Pool: "orca-usdc-sol", Direction: "a_to_b"},
		config.RouteLeg{Pool: "orca-usdc-sol", Direction: "b_to_a"},
	)
	out, runs, err := runTestSimulation(t, cfg)
	assert.ErrorIs(t, err, engine.ErrNoProfit)

	require.Len(t, runs, 1)
	assert.Equal(t, sqlite.StatusFailed, runs[0].Status)
	assert.Equal(t, runs[0].StartBalance, runs[0].FinalBalance)
	assert.Contains(t, out, "no balance changes")
}

func TestSimulateRejectsInvalidConfig(t *testing.T) {
	cfg := simulateConfig(config.RouteLeg{Pool: "missing", Direction: "a_to_b"})
	_, runs, err := runTestSimulation(t, cfg)
	assert.Error(t, err)
	assert.Empty(t, runs)
}

func TestRunAddress(t *testing.T) {
	cfg := simulateConfig()
	var out bytes.Buffer
	require.NoError(t, runAddress(&out, cfg))
	assert.Contains(t, out.String(), cfg.ProgramID.PublicKey().String())
	assert.Contains(t, out.String(), "bump:")
}
