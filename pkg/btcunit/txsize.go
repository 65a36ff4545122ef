// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package btcunit

import (
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
)

// baseUnit stores the canonical representation of a transaction size, which is
// weight units (wu).
type baseUnit struct {
	wu uint64
}

// ToWU converts the unit to a WeightUnit.
func (b baseUnit) ToWU() WeightUnit {
	return WeightUnit{b}
}

// ToVB converts the unit to a VByte.
func (b baseUnit) ToVB() VByte {
	return VByte{b}
}

// VBytes returns the size in whole virtual bytes, rounding a partial vbyte up.
func (b baseUnit) VBytes() uint64 {
	return (b.wu + blockchain.WitnessScaleFactor - 1) /
		blockchain.WitnessScaleFactor
}

// ToKVBCeil returns the number of kilo-vbytes needed to hold the size,
// rounding up.
func (b baseUnit) ToKVBCeil() uint64 {
	return (b.VBytes() + kilo - 1) / kilo
}

// WeightUnit defines a unit to express the transaction size. The tx weight is
// `base size * 3 + total size`, where base size excludes the witness data.
type WeightUnit struct {
	baseUnit
}

// NewWeightUnit creates a new WeightUnit from a uint64 value.
func NewWeightUnit(val uint64) WeightUnit {
	return WeightUnit{baseUnit{wu: val}}
}

// String returns the string representation of the weight unit.
func (w WeightUnit) String() string {
	return fmt.Sprintf("%d wu", w.wu)
}

// VByte defines a unit to express the transaction size. One virtual byte is
// four weight units.
type VByte struct {
	baseUnit
}

// NewVByte creates a new VByte from a uint64 value.
func NewVByte(val uint64) VByte {
	return VByte{baseUnit{wu: val * blockchain.WitnessScaleFactor}}
}

// String returns the string representation of the virtual byte.
func (v VByte) String() string {
	return fmt.Sprintf("%d vb", v.VBytes())
}
