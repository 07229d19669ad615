package differ

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiffer(t *testing.T) (*BalanceDiffer, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	d, err := NewBalanceDiffer(&BalanceDifferConfig{
		Registry: reg,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return d, reg
}

func TestNewBalanceDifferValidation(t *testing.T) {
	_, err := NewBalanceDiffer(&BalanceDifferConfig{Logger: slog.Default()})
	assert.Error(t, err)
	_, err = NewBalanceDiffer(&BalanceDifferConfig{Registry: prometheus.NewRegistry()})
	assert.Error(t, err)
}

func TestDiff(t *testing.T) {
	d, reg := newDiffer(t)
	gained, lost, same, created, removed := solana.PublicKey{1}, solana.PublicKey{2}, solana.PublicKey{3}, solana.PublicKey{4}, solana.PublicKey{5}

	diff := d.Diff(
		map[solana.PublicKey]uint64{gained: 10, lost: 10, same: 7, removed: 3},
		map[solana.PublicKey]uint64{gained: 15, lost: 4, same: 7, created: 9},
	)

	require.Len(t, diff.Accounts, 4)
	assert.Equal(t, []AccountDiff{
		{Account: gained, Before: 10, After: 15},
		{Account: lost, Before: 10, After: 4},
		{Account: created, Before: 0, After: 9},
		{Account: removed, Before: 3, After: 0},
	}, diff.Accounts)
	for i := 1; i < len(diff.Accounts); i++ {
		assert.Negative(t, bytes.Compare(diff.Accounts[i-1].Account[:], diff.Accounts[i].Account[:]))
	}

	g, ok := diff.Changed(gained)
	require.True(t, ok)
	assert.True(t, g.Gained())
	assert.Equal(t, uint64(5), g.Amount())

	l, ok := diff.Changed(lost)
	require.True(t, ok)
	assert.False(t, l.Gained())
	assert.Equal(t, uint64(6), l.Amount())

	_, ok = diff.Changed(same)
	assert.False(t, ok)
	assert.NotZero(t, diff.Timestamp)

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDiffOfIdenticalSnapshots(t *testing.T) {
	d, _ := newDiffer(t)
	snapshot := map[solana.PublicKey]uint64{{9}: 1}
	assert.Empty(t, d.Diff(snapshot, snapshot).Accounts)
}
