package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/defistate/swapchain-go/differ"
	"github.com/defistate/swapchain-go/store/sqlite"
	"github.com/gagliardetto/solana-go"
	"github.com/olekukonko/tablewriter"
)

func renderDiff(w io.Writer, diff *differ.BalanceDiff, labels map[solana.PublicKey]string) error {
	if len(diff.Accounts) == 0 {
		fmt.Fprintln(w, "no balance changes")
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("Account", "Label", "Before", "After", "Change")
	for _, a := range diff.Accounts {
		sign := "-"
		if a.Gained() {
			sign = "+"
		}
		if err := table.Append(
			short(a.Account),
			labels[a.Account],
			strconv.FormatUint(a.Before, 10),
			strconv.FormatUint(a.After, 10),
			sign+strconv.FormatUint(a.Amount(), 10),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func runHistory(ctx context.Context, w io.Writer, store *sqlite.Store, limit int) error {
	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header("Run", "When", "Mode", "Legs", "Amount In", "Start", "Final", "Status", "Error")
	for _, run := range runs {
		if err := table.Append(
			run.ID.String()[:8],
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Mode,
			strconv.Itoa(run.Legs),
			strconv.FormatUint(run.AmountIn, 10),
			strconv.FormatUint(run.StartBalance, 10),
			strconv.FormatUint(run.FinalBalance, 10),
			run.Status,
			run.Error,
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func short(key solana.PublicKey) string {
	s := key.String()
	return s[:4] + ".." + s[len(s)-4:]
}
