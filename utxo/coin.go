// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package utxo models previously created outputs that a transaction under
// construction may spend, and the view that resolves outpoints to them.
package utxo

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wtxmgr"
)

// UnminedHeight is the height recorded for a coin whose creating transaction
// is not known to be in a block.
const UnminedHeight int32 = -1

var (
	// ErrOutputIndex is returned when a coin is requested for an output
	// index the transaction does not have.
	ErrOutputIndex = errors.New("output index out of range")

	// ErrNegativeValue is returned when a coin would carry a negative
	// value.
	ErrNegativeValue = errors.New("coin value is negative")
)

// Coin is a previously created output together with its provenance. A coin
// is treated as immutable once created; callers that need a modified coin
// must make a copy.
type Coin struct {
	// OutPoint identifies the output being referenced.
	OutPoint wire.OutPoint

	// Value is the amount locked by the output.
	Value btcutil.Amount

	// PkScript is the locking script of the output.
	PkScript []byte

	// Height is the height of the block that created the output, or
	// UnminedHeight if unknown.
	Height int32

	// Coinbase is set when the creating transaction is a coinbase.
	Coinbase bool
}

// NewCoin creates a coin from its parts.
func NewCoin(op wire.OutPoint, value btcutil.Amount, pkScript []byte,
	height int32, coinbase bool) (*Coin, error) {

	if value < 0 {
		return nil, fmt.Errorf("%w: %v", ErrNegativeValue, value)
	}

	return &Coin{
		OutPoint: op,
		Value:    value,
		PkScript: pkScript,
		Height:   height,
		Coinbase: coinbase,
	}, nil
}

// NewCoinFromTx creates a coin for output index of tx at the given height.
func NewCoinFromTx(tx *wire.MsgTx, index uint32, height int32) (*Coin, error) {
	if int(index) >= len(tx.TxOut) {
		return nil, fmt.Errorf("%w: %d >= %d", ErrOutputIndex, index,
			len(tx.TxOut))
	}

	out := tx.TxOut[index]
	op := wire.OutPoint{Hash: tx.TxHash(), Index: index}

	return NewCoin(
		op, btcutil.Amount(out.Value), out.PkScript, height,
		blockchain.IsCoinBaseTx(tx),
	)
}

// NewCoinFromCredit creates a coin from an output tracked by the wallet's
// transaction store.
func NewCoinFromCredit(credit *wtxmgr.Credit) *Coin {
	return &Coin{
		OutPoint: credit.OutPoint,
		Value:    credit.Amount,
		PkScript: credit.PkScript,
		Height:   credit.Height,
		Coinbase: credit.FromCoinBase,
	}
}

// Depth returns the number of confirmations the coin has at the given chain
// height. Unmined coins, and coins from a height above the current one, have
// zero confirmations.
func (c *Coin) Depth(currentHeight int32) int32 {
	switch {
	case c.Height == UnminedHeight, currentHeight < c.Height:
		return 0

	default:
		return currentHeight - c.Height + 1
	}
}

// TxOut returns the output the coin references.
func (c *Coin) TxOut() *wire.TxOut {
	return wire.NewTxOut(int64(c.Value), c.PkScript)
}

// String returns the outpoint and value of the coin.
func (c *Coin) String() string {
	return fmt.Sprintf("%v (%v)", c.OutPoint, c.Value)
}
