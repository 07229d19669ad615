package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const programID = "11111111111111111111111111111112"

const sample = `
program_id: ` + programID + `
log:
  level: debug
simulate:
  tokens:
    USDC: 10000
    SOL: 0
  origin: USDC
  amount_in: 1000
  pools:
    - name: usdc-sol
      venue: orca
      token_a: USDC
      token_b: SOL
      reserve_a: 1000000
      reserve_b: 2000000
      fee_bps: 30
    - name: sol-usdc
      venue: saber
      token_a: SOL
      token_b: USDC
      reserve_a: 1000000
      reserve_b: 1000000
      fee_bps: 4
  route:
    - pool: usdc-sol
      direction: a_to_b
    - pool: sol-usdc
      direction: a_to_b
submit:
  origin: ` + programID + `
  amount_in: 5
  legs:
    - venue: orca
      direction: b_to_a
      accounts:
        - key: ` + programID + `
          writable: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "swapchain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	want, err := solana.PublicKeyFromBase58(programID)
	require.NoError(t, err)
	assert.Equal(t, want, cfg.ProgramID.PublicKey())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, uint64(10000), cfg.Simulate.Tokens["USDC"])
	require.Len(t, cfg.Simulate.Pools, 2)
	assert.Equal(t, uint16(30), cfg.Simulate.Pools[0].FeeBps)
	require.Len(t, cfg.Submit.Legs, 1)
	assert.True(t, cfg.Submit.Legs[0].Accounts[0].Writable)

	// defaults
	assert.Equal(t, "swapchain.db", cfg.Storage.DSN)
	assert.Equal(t, "confirmed", cfg.RPC.Commitment)
	assert.Equal(t, 5.0, cfg.RPC.RequestsPerSecond)

	assert.NoError(t, cfg.Validate())
	assert.NoError(t, cfg.ValidateSimulate())
	assert.Error(t, cfg.ValidateSubmit(), "rpc url and keypair are missing")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SWAPCHAIN_RPC_URL", "http://localhost:8899")
	t.Setenv("SWAPCHAIN_KEYPAIR", "/tmp/id.json")
	t.Setenv("SWAPCHAIN_STORAGE_DSN", ":memory:")
	t.Setenv("SWAPCHAIN_RPC_RPS", "2.5")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8899", cfg.RPC.URL)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.Equal(t, 2.5, cfg.RPC.RequestsPerSecond)
	assert.NoError(t, cfg.ValidateSubmit())

	t.Setenv("SWAPCHAIN_PROGRAM_ID", "not-base58!")
	_, err = Load(writeConfig(t, sample))
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "program_id: nope\n"))
	assert.Error(t, err)
}

func TestValidateSimulate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SimulateConfig)
	}{
		{"no tokens", func(s *SimulateConfig) { s.Tokens = nil }},
		{"unknown origin", func(s *SimulateConfig) { s.Origin = "BTC" }},
		{"unnamed pool", func(s *SimulateConfig) { s.Pools[0].Name = "" }},
		{"duplicate pool", func(s *SimulateConfig) { s.Pools[1].Name = s.Pools[0].Name }},
		{"unknown token", func(s *SimulateConfig) { s.Pools[0].TokenB = "BTC" }},
		{"self pair", func(s *SimulateConfig) { s.Pools[0].TokenB = s.Pools[0].TokenA }},
		{"fee too high", func(s *SimulateConfig) { s.Pools[0].FeeBps = 10_001 }},
		{"unknown route pool", func(s *SimulateConfig) { s.Route[0].Pool = "missing" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, sample))
			require.NoError(t, err)
			tt.mutate(&cfg.Simulate)
			assert.Error(t, cfg.ValidateSimulate())
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "info"}}
	assert.Error(t, cfg.Validate(), "program id is required")

	cfg.ProgramID = Key(solana.SystemProgramID)
	cfg.Log.Level = "loud"
	assert.Error(t, cfg.Validate())
}
