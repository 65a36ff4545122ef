// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package btcunit provides the fee rate and transaction size units used when
// pricing a transaction under construction.
package btcunit

import (
	"math"
	"math/big"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
)

const (
	// kilo is a generic multiplier for kilo units.
	kilo = 1000

	// floatStringPrecision is the number of decimal places to use when
	// converting a fee rate to a string. Three places keep 1 sat/kvb
	// visible as 0.001 sat/vb.
	floatStringPrecision = 3
)

var (
	// ZeroSatPerKVByte is a fee rate of 0 sat/kvb.
	ZeroSatPerKVByte = NewSatPerKVByte(0)

	// ZeroSatPerVByte is a fee rate of 0 sat/vb.
	ZeroSatPerVByte = NewSatPerVByte(0)
)

// baseFeeRate stores the canonical representation of a fee rate, which is
// satoshis per kilo-weight-unit (sat/kwu). All other fee rate units are
// derived from this.
type baseFeeRate struct {
	satsPerKWU *big.Rat
}

// newBaseFeeRate creates a new baseFeeRate from fee/size where size is given
// in weight units. A zero size yields a zero fee rate.
func newBaseFeeRate(fee btcutil.Amount, wu uint64) baseFeeRate {
	if wu == 0 {
		return baseFeeRate{satsPerKWU: big.NewRat(0, 1)}
	}

	return baseFeeRate{satsPerKWU: big.NewRat(
		int64(fee)*kilo, safeUint64ToInt64(wu),
	)}
}

// ToSatPerKVByte converts the fee rate to sat/kvb.
func (f baseFeeRate) ToSatPerKVByte() SatPerKVByte {
	return SatPerKVByte{f}
}

// ToSatPerVByte converts the fee rate to sat/vb.
func (f baseFeeRate) ToSatPerVByte() SatPerVByte {
	return SatPerVByte{f}
}

// IsZero reports whether the rate charges nothing.
func (f baseFeeRate) IsZero() bool {
	return f.satsPerKWU == nil || f.satsPerKWU.Sign() == 0
}

// feeFor returns rate*wu/1000 as an exact rational.
func (f baseFeeRate) feeFor(wu uint64) *big.Rat {
	fee := big.NewRat(0, 1)
	if f.satsPerKWU == nil {
		return fee
	}

	return fee.Mul(f.satsPerKWU, big.NewRat(safeUint64ToInt64(wu), kilo))
}

// FeeForWeight calculates the fee for the given weight, truncating any
// fractional satoshi.
func (f baseFeeRate) FeeForWeight(w WeightUnit) btcutil.Amount {
	fee := f.feeFor(w.wu)

	quotient := big.NewInt(0)
	quotient.Quo(fee.Num(), fee.Denom())

	return btcutil.Amount(quotient.Int64())
}

// FeeForWeightRoundUp calculates the fee for the given weight, rounding any
// fractional satoshi up.
func (f baseFeeRate) FeeForWeightRoundUp(w WeightUnit) btcutil.Amount {
	fee := f.feeFor(w.wu)

	// (num + denom - 1) / denom.
	result := big.NewInt(0)
	result.Add(fee.Num(), fee.Denom())
	result.Sub(result, big.NewInt(1))
	result.Quo(result, fee.Denom())

	return btcutil.Amount(result.Int64())
}

// FeeForVByte calculates the fee for the given virtual size, truncating any
// fractional satoshi.
func (f baseFeeRate) FeeForVByte(vb VByte) btcutil.Amount {
	return f.FeeForWeight(vb.ToWU())
}

// perKVByte returns the rate expressed in whole satoshis per kvb, truncated.
func (f baseFeeRate) perKVByte() btcutil.Amount {
	return f.FeeForVByte(NewVByte(kilo))
}

// MinFee returns the relay fee for a transaction of the given virtual size.
// The fee is truncated to whole satoshis but never drops to zero for a
// non-empty transaction paying a non-zero rate: such a transaction pays at
// least the per-kvb rate.
func (f baseFeeRate) MinFee(vb VByte) btcutil.Amount {
	if vb.wu == 0 {
		return 0
	}

	fee := f.FeeForVByte(vb)
	if fee == 0 && !f.IsZero() {
		fee = f.perKVByte()
	}

	return fee
}

// RoundFee returns the fee for a transaction of the given virtual size with
// the size rounded up to the next whole kvb.
func (f baseFeeRate) RoundFee(vb VByte) btcutil.Amount {
	if vb.wu == 0 {
		return 0
	}

	fee := f.perKVByte() * btcutil.Amount(vb.ToKVBCeil())
	if fee == 0 && !f.IsZero() {
		fee = f.perKVByte()
	}

	return fee
}

// equal returns true if the fee rate is equal to the other fee rate.
func (f baseFeeRate) equal(other baseFeeRate) bool {
	return f.satsPerKWU.Cmp(other.satsPerKWU) == 0
}

// greaterThan returns true if the fee rate is greater than the other fee rate.
func (f baseFeeRate) greaterThan(other baseFeeRate) bool {
	return f.satsPerKWU.Cmp(other.satsPerKWU) > 0
}

// lessThan returns true if the fee rate is less than the other fee rate.
func (f baseFeeRate) lessThan(other baseFeeRate) bool {
	return f.satsPerKWU.Cmp(other.satsPerKWU) < 0
}

// SatPerKVByte represents a fee rate in sat/kvb, the unit relay policy and
// the funding options speak in.
type SatPerKVByte struct {
	baseFeeRate
}

// NewSatPerKVByte creates a new fee rate in sat/kvb.
func NewSatPerKVByte(rate btcutil.Amount) SatPerKVByte {
	return SatPerKVByte{newBaseFeeRate(
		rate, kilo*blockchain.WitnessScaleFactor,
	)}
}

// String returns a human-readable string of the fee rate.
func (s SatPerKVByte) String() string {
	rate := big.NewRat(0, 1)
	if s.satsPerKWU != nil {
		rate.Mul(s.satsPerKWU,
			big.NewRat(blockchain.WitnessScaleFactor, 1),
		)
	}

	return rate.FloatString(floatStringPrecision) + " sat/kvb"
}

// Equal returns true if the fee rate is equal to the other fee rate.
func (s SatPerKVByte) Equal(other SatPerKVByte) bool {
	return s.equal(other.baseFeeRate)
}

// GreaterThan returns true if the fee rate is greater than the other fee rate.
func (s SatPerKVByte) GreaterThan(other SatPerKVByte) bool {
	return s.greaterThan(other.baseFeeRate)
}

// LessThan returns true if the fee rate is less than the other fee rate.
func (s SatPerKVByte) LessThan(other SatPerKVByte) bool {
	return s.lessThan(other.baseFeeRate)
}

// SatPerVByte represents a fee rate in sat/vb.
type SatPerVByte struct {
	baseFeeRate
}

// NewSatPerVByte creates a new fee rate in sat/vb.
func NewSatPerVByte(rate btcutil.Amount) SatPerVByte {
	return SatPerVByte{newBaseFeeRate(rate, blockchain.WitnessScaleFactor)}
}

// String returns a human-readable string of the fee rate.
func (s SatPerVByte) String() string {
	rate := big.NewRat(0, 1)
	if s.satsPerKWU != nil {
		rate.Mul(s.satsPerKWU,
			big.NewRat(blockchain.WitnessScaleFactor, kilo),
		)
	}

	return rate.FloatString(floatStringPrecision) + " sat/vb"
}

// Equal returns true if the fee rate is equal to the other fee rate.
func (s SatPerVByte) Equal(other SatPerVByte) bool {
	return s.equal(other.baseFeeRate)
}

// safeUint64ToInt64 converts a uint64 to an int64, capping at math.MaxInt64.
func safeUint64ToInt64(u uint64) int64 {
	if u > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(u)
}
