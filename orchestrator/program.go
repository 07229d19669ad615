// Package orchestrator is the on-ledger program that threads one amount of
// value through a chain of venue swaps inside a single atomic transaction and
// refuses to commit unless the origin account ends with strictly more than it
// started with.
package orchestrator

import (
	"errors"
	"fmt"

	"github.com/defistate/swapchain-go/engine"
	"github.com/defistate/swapchain-go/ledger"
	"github.com/defistate/swapchain-go/leg"
	"github.com/defistate/swapchain-go/protocols"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the dependencies of the program.
type Config struct {
	ProgramID solana.PublicKey
	Venues    *protocols.Registry
	Logger    Logger
	Registry  prometheus.Registerer
}

func (c *Config) validate() error {
	if c.ProgramID.IsZero() {
		return errors.New("config: ProgramID cannot be zero")
	}
	if c.Venues == nil {
		return errors.New("config: Venues cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	for _, tag := range c.Venues.Tags() {
		adapter, _ := c.Venues.Get(tag)
		if adapter.ProgramID().Equals(c.ProgramID) {
			return fmt.Errorf("config: venue %s shares the orchestrator program id", tag)
		}
	}
	return nil
}

type handler func(p *Program, ic *ledger.InvokeContext, args []byte) error

type instruction struct {
	name   string
	handle handler
}

var instructions = map[[8]byte]instruction{
	ixInitialize:   {NameInitialize, (*Program).initialize},
	ixOpenChain:    {NameOpenChain, (*Program).open},
	ixCloseChain:   {NameCloseChain, (*Program).close},
	ixRunLeg:       {NameRunLeg, (*Program).runLeg},
	ixInitVenueAux: {NameInitVenueAux, (*Program).initVenueAux},
}

// Program is the chain orchestrator. It implements ledger.Program.
type Program struct {
	programID solana.PublicKey
	stateKey  solana.PublicKey
	stateBump uint8
	venues    *protocols.Registry
	logger    Logger
	metrics   *Metrics
}

// New constructs the program from a configuration, returning an error if the config is invalid.
func New(cfg *Config) (*Program, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	key, bump, err := engine.StateAddress(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive state address: %w", err)
	}
	return &Program{
		programID: cfg.ProgramID,
		stateKey:  key,
		stateBump: bump,
		venues:    cfg.Venues,
		logger:    cfg.Logger,
		metrics:   NewMetrics(cfg.Registry),
	}, nil
}

func (p *Program) ProgramID() solana.PublicKey { return p.programID }

// StateKey returns the address of the chain state record.
func (p *Program) StateKey() solana.PublicKey { return p.stateKey }

// Process dispatches one instruction on its discriminator.
func (p *Program) Process(ic *ledger.InvokeContext, data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("%w: instruction data of %d bytes", engine.ErrInstructionDecode, len(data))
	}
	ix, ok := instructions[[8]byte(data[:8])]
	if !ok {
		return fmt.Errorf("%w: unknown discriminator %x", engine.ErrInstructionDecode, data[:8])
	}

	ic.Log("Instruction: " + ix.name)
	err := ix.handle(p, ic, data[8:])
	p.metrics.instructions.WithLabelValues(ix.name, result(err)).Inc()
	if err != nil {
		p.logger.Debug("instruction failed", "instruction", ix.name, "error", err)
	}
	return err
}

// store binds the chain state record after checking the caller passed the
// program's own record at position i.
func (p *Program) store(ic *ledger.InvokeContext, i int) (*engine.Store, error) {
	metas := ic.Accounts()
	if i >= len(metas) || !metas[i].PublicKey.Equals(p.stateKey) {
		return nil, fmt.Errorf("%w: want %s at position %d", engine.ErrInvalidStateAccount, p.stateKey, i)
	}
	return engine.NewStore(ic, p.stateKey), nil
}

func requireAccounts(ic *ledger.InvokeContext, n int) error {
	if got := len(ic.Accounts()); got < n {
		return fmt.Errorf("%w: need %d accounts, got %d", engine.ErrInstructionDecode, n, got)
	}
	return nil
}

// initialize creates the state record as a program address signed with the
// program's own seeds.
func (p *Program) initialize(ic *ledger.InvokeContext, args []byte) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: initialize takes no arguments", engine.ErrInstructionDecode)
	}
	if err := requireAccounts(ic, 3); err != nil {
		return err
	}
	store, err := p.store(ic, 0)
	if err != nil {
		return err
	}
	phase, err := store.Phase()
	if err != nil {
		return err
	}
	if phase != engine.PhaseUninitialized {
		return fmt.Errorf("%w: chain state %s", ledger.ErrAccountInUse, p.stateKey)
	}

	payer := ic.Accounts()[1].PublicKey
	create := ledger.NewCreateAccountInstruction(payer, p.stateKey, 0, engine.StateSize, p.programID)
	if err := ic.InvokeSigned(create, [][]byte{[]byte(engine.StateSeed), {p.stateBump}}); err != nil {
		return fmt.Errorf("create chain state: %w", err)
	}
	return store.Write(engine.ChainState{})
}

func (p *Program) open(ic *ledger.InvokeContext, args []byte) error {
	r, err := protocols.NewReader(args, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrInstructionDecode, err)
	}
	startingAmount := r.U64()
	if err := r.Err(); err != nil {
		return fmt.Errorf("%w: open: %v", engine.ErrInstructionDecode, err)
	}
	if err := requireAccounts(ic, 2); err != nil {
		return err
	}
	store, err := p.store(ic, 1)
	if err != nil {
		return err
	}
	state, err := store.Read()
	if err != nil {
		return err
	}
	if state.IsOpen {
		return engine.ErrChainAlreadyOpen
	}

	origin := ic.Accounts()[0].PublicKey
	startBalance, err := ic.TokenBalance(origin)
	if err != nil {
		return fmt.Errorf("read origin balance: %w", err)
	}
	if err := store.Write(engine.Opened(origin, startBalance, startingAmount)); err != nil {
		return err
	}
	ic.Log("chain opened", "origin", origin, "start_balance", startBalance, "amount_in", startingAmount)
	p.metrics.chainsOpened.Inc()
	return nil
}

// close ends the chain. The record is closed before the profit gate runs; on
// NoProfit the whole transaction, that write included, is discarded.
func (p *Program) close(ic *ledger.InvokeContext, args []byte) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: close takes no arguments", engine.ErrInstructionDecode)
	}
	if err := requireAccounts(ic, 2); err != nil {
		return err
	}
	store, err := p.store(ic, 1)
	if err != nil {
		return err
	}
	state, err := store.Read()
	if err != nil {
		return err
	}
	if err := state.RequireOpen(); err != nil {
		return err
	}

	origin := ic.Accounts()[0].PublicKey
	if !origin.Equals(state.Origin) {
		return fmt.Errorf("%w: opened with %s, closed with %s", engine.ErrOriginMismatch, state.Origin, origin)
	}
	final, err := ic.TokenBalance(origin)
	if err != nil {
		return fmt.Errorf("read origin balance: %w", err)
	}

	start := state.StartBalance
	state.IsOpen = false
	if err := store.Write(state); err != nil {
		return err
	}

	profit, underflow := math.SafeSub(final, start)
	if underflow || profit == 0 {
		ic.Log("no profit", "old", start, "new", final)
		p.metrics.chainsClosed.WithLabelValues("no_profit").Inc()
		return fmt.Errorf("%w: origin balance %d, started at %d", engine.ErrNoProfit, final, start)
	}
	ic.Log("profit", "old", start, "new", final, "diff", profit)
	p.metrics.chainsClosed.WithLabelValues("profit").Inc()
	return nil
}

func (p *Program) runLeg(ic *ledger.InvokeContext, args []byte) error {
	r, err := protocols.NewReader(args, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrInstructionDecode, err)
	}
	tag := protocols.Tag(r.U8())
	dir := protocols.Direction(r.U8())
	if err := r.Err(); err != nil {
		return fmt.Errorf("%w: run leg: %v", engine.ErrInstructionDecode, err)
	}
	if !dir.Valid() {
		return fmt.Errorf("%w: %s", engine.ErrInstructionDecode, dir)
	}
	if err := requireAccounts(ic, 1); err != nil {
		return err
	}
	store, err := p.store(ic, 0)
	if err != nil {
		return err
	}
	state, err := store.Read()
	if err != nil {
		return err
	}

	amountIn, err := leg.Prepare(&state, ic)
	if err != nil {
		return err
	}
	adapter, err := p.venues.Get(tag)
	if err != nil {
		return err
	}

	accounts := ic.Accounts()[1:]
	amountOut, err := p.swap(ic, adapter, amountIn, dir, accounts, &state)
	p.metrics.legs.WithLabelValues(tag.String(), result(err)).Inc()
	if err != nil {
		return err
	}
	p.metrics.legOutput.WithLabelValues(tag.String()).Observe(float64(amountOut))
	return store.Write(state)
}

func (p *Program) swap(ic *ledger.InvokeContext, adapter protocols.Adapter, amountIn uint64, dir protocols.Direction, accounts []*solana.AccountMeta, state *engine.ChainState) (uint64, error) {
	destination, err := adapter.Destination(dir, accounts)
	if err != nil {
		return 0, err
	}
	settlement, err := leg.Begin(ic, destination)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", engine.ErrInvalidVenueAccounts, err)
	}
	if err := adapter.Execute(ic, amountIn, dir, accounts); err != nil {
		return 0, err
	}
	return settlement.Settle(ic, state, ic)
}

// initVenueAux forwards setup of a venue's auxiliary account. It does not
// touch the chain state.
func (p *Program) initVenueAux(ic *ledger.InvokeContext, args []byte) error {
	r, err := protocols.NewReader(args, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrInstructionDecode, err)
	}
	tag := protocols.Tag(r.U8())
	if err := r.Err(); err != nil {
		return fmt.Errorf("%w: init venue aux: %v", engine.ErrInstructionDecode, err)
	}
	adapter, err := p.venues.Get(tag)
	if err != nil {
		return err
	}
	aux, ok := adapter.(protocols.AuxInitializer)
	if !ok {
		return fmt.Errorf("%w: %s has no auxiliary account", engine.ErrUnsupported, tag)
	}
	return aux.InitAux(ic, ic.Accounts())
}
