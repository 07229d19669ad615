// Package calculator implements constant-product swap math with a fee in
// basis points.
package calculator

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
)

var (
	// basisPointDivisor is a constant representing 100% in basis points (10000).
	basisPointDivisor = big.NewInt(10000)

	one = big.NewInt(1)

	// ErrInvalidFee is returned when the fee is above 100%.
	ErrInvalidFee = errors.New("fee must not exceed 10000 basis points")
	// ErrInvalidState is returned for internal calculation errors, like division by zero.
	ErrInvalidState = errors.New("invalid internal state")
	// ErrInsufficientLiquidity is returned when an amountOut is requested that is greater than or equal to the available reserve.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for swap")
	// ErrOverflow is returned when a result does not fit a token amount.
	ErrOverflow = errors.New("amount overflows u64")
)

// Reserves are the pool balances on each side of a swap.
type Reserves struct {
	In  uint64
	Out uint64
}

// Calculator holds reusable big.Int objects to avoid memory allocations during calculations.
// Instances of this struct are NOT safe for concurrent use by themselves.
// They are intended to be managed by the sync.Pool below.
type Calculator struct {
	reserveIn       *big.Int
	reserveOut      *big.Int
	amount          *big.Int
	feeMultiplier   *big.Int
	amountInWithFee *big.Int
	numerator       *big.Int
	denominator     *big.Int
}

var calculatorPool = sync.Pool{
	New: func() any {
		return &Calculator{
			reserveIn:       new(big.Int),
			reserveOut:      new(big.Int),
			amount:          new(big.Int),
			feeMultiplier:   new(big.Int),
			amountInWithFee: new(big.Int),
			numerator:       new(big.Int),
			denominator:     new(big.Int),
		}
	},
}

// GetAmountOut calculates the output amount for a swap of amountIn.
func GetAmountOut(amountIn uint64, reserves Reserves, feeBps uint16) (uint64, error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.getAmountOut(amountIn, reserves, feeBps)
}

// GetAmountIn calculates the input required for a desired output.
func GetAmountIn(amountOut uint64, reserves Reserves, feeBps uint16) (uint64, error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.getAmountIn(amountOut, reserves, feeBps)
}

func (c *Calculator) load(amount uint64, reserves Reserves, feeBps uint16) error {
	if int64(feeBps) > basisPointDivisor.Int64() {
		return fmt.Errorf("%w: %d", ErrInvalidFee, feeBps)
	}
	c.amount.SetUint64(amount)
	c.reserveIn.SetUint64(reserves.In)
	c.reserveOut.SetUint64(reserves.Out)
	c.feeMultiplier.Sub(basisPointDivisor, big.NewInt(int64(feeBps)))
	return nil
}

func (c *Calculator) getAmountOut(amountIn uint64, reserves Reserves, feeBps uint16) (uint64, error) {
	if err := c.load(amountIn, reserves, feeBps); err != nil {
		return 0, err
	}
	if reserves.In == 0 || reserves.Out == 0 {
		return 0, nil
	}

	// amountOut = reserveOut * amountIn * (10000 - fee) / (reserveIn * 10000 + amountIn * (10000 - fee))
	c.amountInWithFee.Mul(c.amount, c.feeMultiplier)
	c.numerator.Mul(c.reserveOut, c.amountInWithFee)
	c.denominator.Mul(c.reserveIn, basisPointDivisor)
	c.denominator.Add(c.denominator, c.amountInWithFee)

	if c.denominator.Sign() == 0 {
		return 0, fmt.Errorf("%w: pool denominator is zero", ErrInvalidState)
	}
	return c.numerator.Div(c.numerator, c.denominator).Uint64(), nil
}

func (c *Calculator) getAmountIn(amountOut uint64, reserves Reserves, feeBps uint16) (uint64, error) {
	if err := c.load(amountOut, reserves, feeBps); err != nil {
		return 0, err
	}
	if reserves.In == 0 || reserves.Out == 0 || amountOut >= reserves.Out {
		return 0, fmt.Errorf("%w: requested amountOut (%d) is >= reserveOut (%d)", ErrInsufficientLiquidity, amountOut, reserves.Out)
	}
	if c.feeMultiplier.Sign() == 0 {
		return 0, fmt.Errorf("%w: fee consumes the whole input", ErrInvalidState)
	}

	// amountIn = reserveIn * amountOut * 10000 / ((reserveOut - amountOut) * (10000 - fee)) + 1
	c.numerator.Mul(c.reserveIn, c.amount)
	c.numerator.Mul(c.numerator, basisPointDivisor)
	c.denominator.Sub(c.reserveOut, c.amount)
	c.denominator.Mul(c.denominator, c.feeMultiplier)

	c.numerator.Div(c.numerator, c.denominator)
	c.numerator.Add(c.numerator, one)
	if !c.numerator.IsUint64() {
		return 0, fmt.Errorf("%w: amountIn %s", ErrOverflow, c.numerator)
	}
	return c.numerator.Uint64(), nil
}
