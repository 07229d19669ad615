package differ

import (
	"bytes"
	"errors"
	"slices"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
)

// BalanceDifferConfig holds the dependencies of the differ.
type BalanceDifferConfig struct {
	Registry prometheus.Registerer
	Logger   Logger
}

// validate checks if the configuration is valid, ensuring required dependencies are present.
func (c *BalanceDifferConfig) validate() error {
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	return nil
}

// BalanceDiffer compares token balance snapshots of a ledger.
type BalanceDiffer struct {
	metrics *Metrics
	logger  Logger
}

// NewBalanceDiffer constructs a new differ from a configuration, returning an error if the config is invalid.
func NewBalanceDiffer(cfg *BalanceDifferConfig) (*BalanceDiffer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &BalanceDiffer{
		metrics: NewMetrics(cfg.Registry),
		logger:  cfg.Logger,
	}, nil
}

// Diff compares two snapshots. An account missing from a snapshot counts as
// holding zero.
func (d *BalanceDiffer) Diff(before, after map[solana.PublicKey]uint64) *BalanceDiff {
	totalTimer := prometheus.NewTimer(d.metrics.diffDuration.WithLabelValues())
	defer totalTimer.ObserveDuration()

	keys := make([]solana.PublicKey, 0, len(after))
	for key := range after {
		keys = append(keys, key)
	}
	for key := range before {
		if _, ok := after[key]; !ok {
			keys = append(keys, key)
		}
	}
	slices.SortFunc(keys, func(a, b solana.PublicKey) int { return bytes.Compare(a[:], b[:]) })

	diff := &BalanceDiff{Timestamp: uint64(time.Now().UnixNano())}
	for _, key := range keys {
		if before[key] == after[key] {
			continue
		}
		diff.Accounts = append(diff.Accounts, AccountDiff{Account: key, Before: before[key], After: after[key]})
	}
	d.metrics.changedAccounts.Observe(float64(len(diff.Accounts)))
	d.logger.Debug("balances diffed", "accounts", len(keys), "changed", len(diff.Accounts))
	return diff
}
