// Package rpc talks to a live cluster: it reads token balances and submits
// chain transactions over JSON-RPC.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"
)

const defaultBurst = 5

var (
	ErrNoBalance = errors.New("rpc: token account has no balance")
	ErrNoSigner  = errors.New("rpc: no key for required signer")
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the configuration for the client.
type Config struct {
	URL               string
	Logger            Logger
	RequestsPerSecond float64
	Commitment        solanarpc.CommitmentType
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("config: URL is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.RequestsPerSecond <= 0 {
		return errors.New("config: RequestsPerSecond must be greater than 0")
	}
	switch c.Commitment {
	case solanarpc.CommitmentProcessed, solanarpc.CommitmentConfirmed, solanarpc.CommitmentFinalized:
	default:
		return fmt.Errorf("config: unknown Commitment %q", c.Commitment)
	}
	return nil
}

// endpoint is the subset of the JSON-RPC API the client uses.
type endpoint interface {
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment solanarpc.CommitmentType) (*solanarpc.GetTokenAccountBalanceResult, error)
	GetLatestBlockhash(ctx context.Context, commitment solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, transaction *solana.Transaction, opts solanarpc.TransactionOpts) (solana.Signature, error)
}

// Client is a rate limited cluster client.
type Client struct {
	rpc        endpoint
	limiter    *rate.Limiter
	commitment solanarpc.CommitmentType
	logger     Logger
}

// Option configures the Client.
type Option interface {
	apply(*Client)
}

type funcOption func(*Client)

func (f funcOption) apply(c *Client) {
	f(c)
}

// WithBurst overrides how many requests may be issued back to back.
func WithBurst(burst int) Option {
	return funcOption(func(c *Client) {
		c.limiter.SetBurst(burst)
	})
}

func withEndpoint(e endpoint) Option {
	return funcOption(func(c *Client) {
		c.rpc = e
	})
}

// NewClient constructs a client from a configuration, returning an error if the config is invalid.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c := &Client{
		rpc:        solanarpc.New(cfg.URL),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), defaultBurst),
		commitment: cfg.Commitment,
		logger:     cfg.Logger,
	}
	for _, opt := range opts {
		opt.apply(c)
	}
	return c, nil
}

// TokenBalance returns the raw amount held by a token account.
func (c *Client) TokenBalance(ctx context.Context, key solana.PublicKey) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}
	out, err := c.rpc.GetTokenAccountBalance(ctx, key, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("get token balance %s: %w", key, err)
	}
	if out == nil || out.Value == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoBalance, key)
	}
	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("token balance %s: %w", key, err)
	}
	return amount, nil
}

// Submit signs instructions into one transaction paid by payer and sends it
// without preflight. signers covers any additional required signatures.
func (c *Client) Submit(ctx context.Context, payer solana.PrivateKey, instructions []solana.Instruction, signers ...solana.PrivateKey) (solana.Signature, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return solana.Signature{}, fmt.Errorf("rate limiter: %w", err)
	}
	latest, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, latest.Value.Blockhash, solana.TransactionPayer(payer.PublicKey()))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build transaction: %w", err)
	}
	keys := append([]solana.PrivateKey{payer}, signers...)
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range keys {
			if keys[i].PublicKey().Equals(key) {
				return &keys[i]
			}
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %v", ErrNoSigner, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return solana.Signature{}, fmt.Errorf("rate limiter: %w", err)
	}
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, solanarpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	c.logger.Info("transaction submitted", "signature", sig, "instructions", len(instructions))
	return sig, nil
}
