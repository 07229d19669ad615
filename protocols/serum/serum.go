// Package serum adapts Serum DEX v3 order books to the venue adapter
// contract. A leg is an immediate-or-cancel order followed by a settlement
// of the open orders account back into the user's wallets.
package serum

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/defistate/swapchain-go/engine"
	"github.com/defistate/swapchain-go/protocols"
	"github.com/gagliardetto/solana-go"
)

// ProgramID is the Serum DEX v3 program on mainnet.
var ProgramID = solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")

// Instruction tags, each preceded by a zero version byte.
const (
	tagSettleFunds    uint32 = 5
	tagNewOrderV3     uint32 = 10
	tagInitOpenOrders uint32 = 15
)

// Side of an order.
type Side uint32

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Ask {
		return "ask"
	}
	return "bid"
}

// SideOf maps a leg direction onto the book: selling coin is an ask.
func SideOf(dir protocols.Direction) Side {
	if dir == protocols.AToB {
		return Ask
	}
	return Bid
}

const (
	selfTradeDecrementTake uint32 = 0
	orderTypeIOC           uint32 = 1
	matchLimit             uint16 = math.MaxUint16
)

// Market account offsets of the fields the adapter reads.
const (
	marketCoinLotOffset = 349
	marketPCLotOffset   = 357
	marketMinSize       = marketPCLotOffset + 8
)

// Positional accounts of a leg.
const (
	accMarket = iota
	accOpenOrders
	accRequestQueue
	accEventQueue
	accBids
	accAsks
	accCoinVault
	accPCVault
	accVaultSigner
	accOwner
	accCoinWallet
	accPCWallet
	accTokenProgram
	accRent
	accProgram
	accountCount
)

// Positional accounts of an auxiliary account setup.
const (
	auxOpenOrders = iota
	auxOwner
	auxMarket
	auxRent
	auxProgram
	auxCount
)

// Accounts are the accounts an order book leg needs, in leg order.
type Accounts struct {
	Market       solana.PublicKey
	OpenOrders   solana.PublicKey
	RequestQueue solana.PublicKey
	EventQueue   solana.PublicKey
	Bids         solana.PublicKey
	Asks         solana.PublicKey
	CoinVault    solana.PublicKey
	PCVault      solana.PublicKey
	VaultSigner  solana.PublicKey
	Owner        solana.PublicKey
	CoinWallet   solana.PublicKey
	PCWallet     solana.PublicKey
}

// Metas returns the leg accounts for programID.
func (a Accounts) Metas(programID solana.PublicKey) []*solana.AccountMeta {
	return []*solana.AccountMeta{
		protocols.Meta(a.Market, true, false),
		protocols.Meta(a.OpenOrders, true, false),
		protocols.Meta(a.RequestQueue, true, false),
		protocols.Meta(a.EventQueue, true, false),
		protocols.Meta(a.Bids, true, false),
		protocols.Meta(a.Asks, true, false),
		protocols.Meta(a.CoinVault, true, false),
		protocols.Meta(a.PCVault, true, false),
		protocols.Meta(a.VaultSigner, false, false),
		protocols.Meta(a.Owner, false, true),
		protocols.Meta(a.CoinWallet, true, false),
		protocols.Meta(a.PCWallet, true, false),
		protocols.Meta(solana.TokenProgramID, false, false),
		protocols.Meta(solana.SysVarRentPubkey, false, false),
		protocols.Meta(programID, false, false),
	}
}

// AuxAccounts are the accounts needed to initialize an open orders account.
// The account itself must already be allocated and owned by the DEX.
type AuxAccounts struct {
	OpenOrders solana.PublicKey
	Owner      solana.PublicKey
	Market     solana.PublicKey
}

// Metas returns the setup accounts for programID.
func (a AuxAccounts) Metas(programID solana.PublicKey) []*solana.AccountMeta {
	return []*solana.AccountMeta{
		protocols.Meta(a.OpenOrders, true, false),
		protocols.Meta(a.Owner, false, true),
		protocols.Meta(a.Market, false, false),
		protocols.Meta(solana.SysVarRentPubkey, false, false),
		protocols.Meta(programID, false, false),
	}
}

var (
	_ protocols.Adapter        = (*Adapter)(nil)
	_ protocols.AuxInitializer = (*Adapter)(nil)
)

// Adapter trades against a DEX v3 market.
type Adapter struct {
	programID solana.PublicKey
	rules     []protocols.AccountRule
	auxRules  []protocols.AccountRule
}

// New returns an adapter targeting the DEX program at programID.
func New(programID solana.PublicKey) *Adapter {
	return &Adapter{
		programID: programID,
		rules: []protocols.AccountRule{
			accMarket:       {Name: "market", Writable: true, Owner: programID},
			accOpenOrders:   {Name: "open_orders", Writable: true, Owner: programID},
			accRequestQueue: {Name: "request_queue", Writable: true},
			accEventQueue:   {Name: "event_queue", Writable: true},
			accBids:         {Name: "bids", Writable: true},
			accAsks:         {Name: "asks", Writable: true},
			accCoinVault:    {Name: "coin_vault", Writable: true, Owner: solana.TokenProgramID},
			accPCVault:      {Name: "pc_vault", Writable: true, Owner: solana.TokenProgramID},
			accVaultSigner:  {Name: "vault_signer"},
			accOwner:        {Name: "owner", Signer: true},
			accCoinWallet:   {Name: "coin_wallet", Writable: true, Owner: solana.TokenProgramID},
			accPCWallet:     {Name: "pc_wallet", Writable: true, Owner: solana.TokenProgramID},
			accTokenProgram: {Name: "token_program", Address: solana.TokenProgramID},
			accRent:         {Name: "rent", Address: solana.SysVarRentPubkey},
			accProgram:      {Name: "dex_program", Address: programID},
		},
		auxRules: []protocols.AccountRule{
			auxOpenOrders: {Name: "open_orders", Writable: true, Owner: programID},
			auxOwner:      {Name: "owner", Signer: true},
			auxMarket:     {Name: "market", Owner: programID},
			auxRent:       {Name: "rent", Address: solana.SysVarRentPubkey},
			auxProgram:    {Name: "dex_program", Address: programID},
		},
	}
}

func (a *Adapter) Tag() protocols.Tag { return protocols.TagSerum }

func (a *Adapter) ProgramID() solana.PublicKey { return a.programID }

// Destination is the pc wallet for asks and the coin wallet for bids.
func (a *Adapter) Destination(dir protocols.Direction, accounts []*solana.AccountMeta) (solana.PublicKey, error) {
	if err := protocols.RequireCount(a.Tag(), accounts, accountCount); err != nil {
		return solana.PublicKey{}, err
	}
	if SideOf(dir) == Ask {
		return accounts[accPCWallet].PublicKey, nil
	}
	return accounts[accCoinWallet].PublicKey, nil
}

func (a *Adapter) Execute(inv protocols.Invoker, amountIn uint64, dir protocols.Direction, accounts []*solana.AccountMeta) error {
	if err := protocols.RequireCount(a.Tag(), accounts, accountCount); err != nil {
		return err
	}
	if err := protocols.CheckAccounts(inv, a.Tag(), accounts, a.rules); err != nil {
		return err
	}
	market, ok := inv.AccountData(accounts[accMarket].PublicKey)
	if !ok {
		return fmt.Errorf("%w: serum market %s has no data", engine.ErrInvalidVenueAccounts, accounts[accMarket].PublicKey)
	}
	coinLot, _, err := LotSizes(market)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrInvalidVenueAccounts, err)
	}

	order, err := a.newOrderInstruction(amountIn, SideOf(dir), coinLot, accounts)
	if err != nil {
		return err
	}
	if err := protocols.Call(inv, a.Tag(), order); err != nil {
		return err
	}
	settle, err := a.settleInstruction(accounts)
	if err != nil {
		return err
	}
	return protocols.Call(inv, a.Tag(), settle)
}

// InitAux initializes the open orders account the leg trades through.
func (a *Adapter) InitAux(inv protocols.Invoker, accounts []*solana.AccountMeta) error {
	if err := protocols.RequireCount(a.Tag(), accounts, auxCount); err != nil {
		return err
	}
	if err := protocols.CheckAccounts(inv, a.Tag(), accounts, a.auxRules); err != nil {
		return err
	}
	data, err := protocols.NewPayload([]byte{0}).U32(tagInitOpenOrders).Bytes()
	if err != nil {
		return fmt.Errorf("serum: encode init open orders: %w", err)
	}
	metas := solana.AccountMetaSlice{
		protocols.Meta(accounts[auxOpenOrders].PublicKey, true, false),
		protocols.Meta(accounts[auxOwner].PublicKey, false, true),
		protocols.Meta(accounts[auxMarket].PublicKey, false, false),
		protocols.Meta(solana.SysVarRentPubkey, false, false),
	}
	return protocols.Call(inv, a.Tag(), solana.NewInstruction(a.programID, metas, data))
}

// newOrderInstruction crosses the whole book for amountIn. Asks are sized in
// coin lots and priced at the lowest tick, bids spend amountIn native pc at
// any price.
func (a *Adapter) newOrderInstruction(amountIn uint64, side Side, coinLot uint64, accounts []*solana.AccountMeta) (solana.Instruction, error) {
	var (
		limitPrice  uint64 = 1
		maxCoinQty  uint64 = math.MaxUint64
		maxNativePC uint64 = math.MaxUint64
		payer              = accounts[accCoinWallet].PublicKey
	)
	if side == Ask {
		maxCoinQty = amountIn / coinLot
	} else {
		limitPrice = math.MaxUint64
		maxNativePC = amountIn
		payer = accounts[accPCWallet].PublicKey
	}

	data, err := protocols.NewPayload([]byte{0}).
		U32(tagNewOrderV3).
		U32(uint32(side)).
		U64(limitPrice).
		U64(maxCoinQty).
		U64(maxNativePC).
		U32(selfTradeDecrementTake).
		U32(orderTypeIOC).
		U64(0).
		U16(matchLimit).
		Bytes()
	if err != nil {
		return nil, fmt.Errorf("serum: encode new order: %w", err)
	}

	key := func(i int) solana.PublicKey { return accounts[i].PublicKey }
	metas := solana.AccountMetaSlice{
		protocols.Meta(key(accMarket), true, false),
		protocols.Meta(key(accOpenOrders), true, false),
		protocols.Meta(key(accRequestQueue), true, false),
		protocols.Meta(key(accEventQueue), true, false),
		protocols.Meta(key(accBids), true, false),
		protocols.Meta(key(accAsks), true, false),
		protocols.Meta(payer, true, false),
		protocols.Meta(key(accOwner), false, true),
		protocols.Meta(key(accCoinVault), true, false),
		protocols.Meta(key(accPCVault), true, false),
		protocols.Meta(solana.TokenProgramID, false, false),
		protocols.Meta(solana.SysVarRentPubkey, false, false),
	}
	return solana.NewInstruction(a.programID, metas, data), nil
}

func (a *Adapter) settleInstruction(accounts []*solana.AccountMeta) (solana.Instruction, error) {
	data, err := protocols.NewPayload([]byte{0}).U32(tagSettleFunds).Bytes()
	if err != nil {
		return nil, fmt.Errorf("serum: encode settle funds: %w", err)
	}
	key := func(i int) solana.PublicKey { return accounts[i].PublicKey }
	metas := solana.AccountMetaSlice{
		protocols.Meta(key(accMarket), true, false),
		protocols.Meta(key(accOpenOrders), true, false),
		protocols.Meta(key(accOwner), false, true),
		protocols.Meta(key(accCoinVault), true, false),
		protocols.Meta(key(accPCVault), true, false),
		protocols.Meta(key(accCoinWallet), true, false),
		protocols.Meta(key(accPCWallet), true, false),
		protocols.Meta(key(accVaultSigner), false, false),
		protocols.Meta(solana.TokenProgramID, false, false),
	}
	return solana.NewInstruction(a.programID, metas, data), nil
}

// LotSizes reads the coin and pc lot sizes from market account data.
func LotSizes(market []byte) (coinLot, pcLot uint64, err error) {
	if len(market) < marketMinSize {
		return 0, 0, fmt.Errorf("serum market data too short: %d bytes", len(market))
	}
	coinLot = binary.LittleEndian.Uint64(market[marketCoinLotOffset:])
	pcLot = binary.LittleEndian.Uint64(market[marketPCLotOffset:])
	if coinLot == 0 || pcLot == 0 {
		return 0, 0, fmt.Errorf("serum market has zero lot size")
	}
	return coinLot, pcLot, nil
}

// NewOrder is a decoded NewOrderV3 payload.
type NewOrder struct {
	Side        Side
	LimitPrice  uint64
	MaxCoinQty  uint64
	MaxNativePC uint64
	OrderType   uint32
}

// DecodeNewOrder parses a NewOrderV3 payload built by the adapter.
func DecodeNewOrder(data []byte) (NewOrder, error) {
	r, err := protocols.NewReader(data, []byte{0})
	if err != nil {
		return NewOrder{}, fmt.Errorf("serum: %w", err)
	}
	if tag := r.U32(); tag != tagNewOrderV3 {
		return NewOrder{}, fmt.Errorf("serum: instruction tag %d is not a new order", tag)
	}
	order := NewOrder{
		Side:        Side(r.U32()),
		LimitPrice:  r.U64(),
		MaxCoinQty:  r.U64(),
		MaxNativePC: r.U64(),
	}
	_ = r.U32()
	order.OrderType = r.U32()
	_ = r.U64()
	_ = r.U16()
	if err := r.Err(); err != nil {
		return NewOrder{}, fmt.Errorf("serum: decode new order: %w", err)
	}
	return order, nil
}
