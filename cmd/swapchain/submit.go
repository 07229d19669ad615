package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/defistate/swapchain-go/cmd/swapchain/config"
	"github.com/defistate/swapchain-go/orchestrator"
	"github.com/defistate/swapchain-go/protocols"
	"github.com/defistate/swapchain-go/store/sqlite"
	"github.com/defistate/swapchain-go/streams/rpc"
	"github.com/defistate/swapchain-go/txbuilder"
	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/google/uuid"
)

func submitChain(cfg config.SubmitConfig) (txbuilder.Chain, error) {
	chain := txbuilder.Chain{Origin: cfg.Origin.PublicKey(), AmountIn: cfg.AmountIn}
	for i, leg := range cfg.Legs {
		venue, err := protocols.ParseTag(leg.Venue)
		if err != nil {
			return txbuilder.Chain{}, fmt.Errorf("submit.legs[%d]: %w", i, err)
		}
		dir, err := protocols.ParseDirection(leg.Direction)
		if err != nil {
			return txbuilder.Chain{}, fmt.Errorf("submit.legs[%d]: %w", i, err)
		}
		metas := make([]*solana.AccountMeta, 0, len(leg.Accounts))
		for _, acc := range leg.Accounts {
			metas = append(metas, protocols.Meta(acc.Key.PublicKey(), acc.Writable, acc.Signer))
		}
		chain.Legs = append(chain.Legs, txbuilder.Leg{Venue: venue, Direction: dir, Accounts: metas})
	}
	return chain, nil
}

func runSubmit(ctx context.Context, w io.Writer, cfg *config.Config, store *sqlite.Store, logger *slog.Logger, initialize bool) error {
	if err := cfg.ValidateSubmit(); err != nil {
		return err
	}
	runID := uuid.New()
	logger = logger.With("run", runID.String(), "mode", sqlite.ModeSubmit)

	payer, err := solana.PrivateKeyFromSolanaKeygenFile(cfg.RPC.Keypair)
	if err != nil {
		return fmt.Errorf("load keypair: %w", err)
	}
	client, err := rpc.NewClient(rpc.Config{
		URL:               cfg.RPC.URL,
		Logger:            logger.With("component", "rpc"),
		RequestsPerSecond: cfg.RPC.RequestsPerSecond,
		Commitment:        solanarpc.CommitmentType(cfg.RPC.Commitment),
	})
	if err != nil {
		return err
	}

	programID := cfg.ProgramID.PublicKey()
	if initialize {
		ix, err := orchestrator.NewInitializeInstruction(programID, payer.PublicKey())
		if err != nil {
			return err
		}
		sig, err := client.Submit(ctx, payer, []solana.Instruction{ix})
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		fmt.Fprintf(w, "initialize: %s\n", sig)
	}

	chain, err := submitChain(cfg.Submit)
	if err != nil {
		return err
	}
	instructions, err := txbuilder.Build(programID, chain)
	if err != nil {
		return err
	}

	start, err := client.TokenBalance(ctx, chain.Origin)
	if err != nil {
		return err
	}
	run := sqlite.Run{
		ID:           runID,
		Mode:         sqlite.ModeSubmit,
		Origin:       chain.Origin.String(),
		AmountIn:     chain.AmountIn,
		Legs:         len(chain.Legs),
		StartBalance: start,
		FinalBalance: start,
		Status:       sqlite.StatusSubmitted,
	}

	sig, submitErr := client.Submit(ctx, payer, instructions)
	if submitErr != nil {
		run.Status, run.Error = sqlite.StatusFailed, submitErr.Error()
	} else {
		fmt.Fprintf(w, "chain: %s\n", sig)
		// preflight is skipped, so the balance read only reflects the chain
		// once the cluster reaches the configured commitment.
		if final, err := client.TokenBalance(ctx, chain.Origin); err == nil {
			run.FinalBalance = final
		} else {
			logger.Warn("Failed to read final balance", "error", err)
		}
	}
	if _, err := store.SaveRun(ctx, run); err != nil {
		return err
	}
	return submitErr
}
