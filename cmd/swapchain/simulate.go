package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/defistate/swapchain-go/cmd/swapchain/config"
	"github.com/defistate/swapchain-go/differ"
	"github.com/defistate/swapchain-go/ledger"
	"github.com/defistate/swapchain-go/orchestrator"
	"github.com/defistate/swapchain-go/protocols"
	"github.com/defistate/swapchain-go/protocols/cpmm"
	"github.com/defistate/swapchain-go/store/sqlite"
	"github.com/defistate/swapchain-go/txbuilder"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// localnet is a bank seeded from the simulate section of the configuration.
// accounts maps a token name to the trader's token account for it.
type localnet struct {
	bank      *ledger.Bank
	programID solana.PublicKey
	trader    solana.PublicKey
	accounts  map[string]solana.PublicKey
	pools     map[string]cpmm.Deployment
	labels    map[solana.PublicKey]string
}

func newLocalnet(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*localnet, error) {
	bank, err := ledger.NewBank(&ledger.Config{Logger: logger.With("component", "ledger")})
	if err != nil {
		return nil, err
	}
	venues, err := newVenues()
	if err != nil {
		return nil, err
	}
	programID := cfg.ProgramID.PublicKey()
	program, err := orchestrator.New(&orchestrator.Config{
		ProgramID: programID,
		Venues:    venues,
		Logger:    logger.With("component", "orchestrator"),
		Registry:  reg,
	})
	if err != nil {
		return nil, err
	}
	if err := bank.AddProgram(programID, program); err != nil {
		return nil, err
	}

	net := &localnet{
		bank:      bank,
		programID: programID,
		trader:    solana.NewWallet().PublicKey(),
		accounts:  make(map[string]solana.PublicKey),
		pools:     make(map[string]cpmm.Deployment),
		labels:    make(map[solana.PublicKey]string),
	}

	mints := make(map[string]solana.PublicKey)
	names := make([]string, 0, len(cfg.Simulate.Tokens))
	for name := range cfg.Simulate.Tokens {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		mint, account := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
		mints[name] = mint
		net.accounts[name] = account
		net.labels[account] = "trader " + name
		bank.CreateTokenAccount(account, mint, net.trader, cfg.Simulate.Tokens[name])
	}

	deployed := make(map[protocols.Tag]bool)
	for _, p := range cfg.Simulate.Pools {
		venue, err := protocols.ParseTag(p.Venue)
		if err != nil {
			return nil, fmt.Errorf("pool %q: %w", p.Name, err)
		}
		adapter, err := venues.Get(venue)
		if err != nil {
			return nil, fmt.Errorf("pool %q: %w", p.Name, err)
		}
		if !deployed[venue] {
			if err := cpmm.Deploy(bank, venue, adapter.ProgramID()); err != nil {
				return nil, fmt.Errorf("pool %q: %w", p.Name, err)
			}
			deployed[venue] = true
		}
		pool, err := cpmm.SeedPool(bank, venue, adapter.ProgramID(), cpmm.PoolSpec{
			Seed:     solana.NewWallet().PublicKey(),
			MintA:    mints[p.TokenA],
			MintB:    mints[p.TokenB],
			ReserveA: p.ReserveA,
			ReserveB: p.ReserveB,
			FeeBps:   p.FeeBps,
		})
		if err != nil {
			return nil, fmt.Errorf("pool %q: %w", p.Name, err)
		}
		net.pools[p.Name] = pool
		net.labels[pool.VaultA] = p.Name + " " + p.TokenA
		net.labels[pool.VaultB] = p.Name + " " + p.TokenB
	}
	return net, nil
}

func (n *localnet) initialize(ctx context.Context) error {
	ix, err := orchestrator.NewInitializeInstruction(n.programID, n.trader)
	if err != nil {
		return err
	}
	_, err = n.bank.Execute(ctx, []solana.PublicKey{n.trader}, ix)
	return err
}

func (n *localnet) chain(cfg config.SimulateConfig) (txbuilder.Chain, error) {
	byName := make(map[string]config.PoolConfig, len(cfg.Pools))
	for _, p := range cfg.Pools {
		byName[p.Name] = p
	}
	chain := txbuilder.Chain{Origin: n.accounts[cfg.Origin], AmountIn: cfg.AmountIn}
	for i, step := range cfg.Route {
		dir, err := protocols.ParseDirection(step.Direction)
		if err != nil {
			return txbuilder.Chain{}, fmt.Errorf("route[%d]: %w", i, err)
		}
		p := byName[step.Pool]
		metas, err := n.pools[step.Pool].LegAccounts(n.trader, n.accounts[p.TokenA], n.accounts[p.TokenB])
		if err != nil {
			return txbuilder.Chain{}, fmt.Errorf("route[%d]: %w", i, err)
		}
		chain.Legs = append(chain.Legs, txbuilder.Leg{Venue: n.pools[step.Pool].Venue, Direction: dir, Accounts: metas})
	}
	return chain, nil
}

func runSimulate(ctx context.Context, w io.Writer, cfg *config.Config, store *sqlite.Store, logger *slog.Logger, reg prometheus.Registerer) error {
	if err := cfg.ValidateSimulate(); err != nil {
		return err
	}
	runID := uuid.New()
	logger = logger.With("run", runID.String(), "mode", sqlite.ModeSimulate)

	net, err := newLocalnet(cfg, logger, reg)
	if err != nil {
		return fmt.Errorf("build local ledger: %w", err)
	}
	if err := net.initialize(ctx); err != nil {
		return fmt.Errorf("initialize orchestrator: %w", err)
	}
	chain, err := net.chain(cfg.Simulate)
	if err != nil {
		return err
	}
	instructions, err := txbuilder.Build(net.programID, chain)
	if err != nil {
		return err
	}

	balanceDiffer, err := differ.NewBalanceDiffer(&differ.BalanceDifferConfig{Registry: reg, Logger: logger.With("component", "differ")})
	if err != nil {
		return err
	}

	before := net.bank.Balances()
	receipt, execErr := net.bank.Execute(ctx, []solana.PublicKey{net.trader}, instructions...)
	after := net.bank.Balances()

	run := sqlite.Run{
		ID:           runID,
		Mode:         sqlite.ModeSimulate,
		Origin:       chain.Origin.String(),
		AmountIn:     chain.AmountIn,
		Legs:         len(chain.Legs),
		StartBalance: before[chain.Origin],
		FinalBalance: after[chain.Origin],
		Status:       sqlite.StatusProfit,
	}
	if execErr != nil {
		run.Status, run.Error = sqlite.StatusFailed, execErr.Error()
		logger.Warn("Chain reverted", "error", execErr)
		var txErr *ledger.TransactionError
		if errors.As(execErr, &txErr) {
			fmt.Fprintf(w, "chain reverted at instruction %d: %v\n", txErr.Index, txErr.Err)
		}
	} else {
		logger.Info("Chain committed", "instructions", receipt.Instructions, "profit", run.FinalBalance-run.StartBalance)
		for _, line := range receipt.Logs {
			fmt.Fprintln(w, line)
		}
	}

	if _, err := store.SaveRun(ctx, run); err != nil {
		return err
	}
	if err := renderDiff(w, balanceDiffer.Diff(before, after), net.labels); err != nil {
		return err
	}
	return execErr
}
