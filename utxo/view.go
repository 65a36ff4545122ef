// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package utxo

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// View maps outpoints to the coins they reference. A miss is not an error:
// it marks an input whose coin is not known yet.
//
// A View is not safe for concurrent mutation.
type View struct {
	coins map[wire.OutPoint]*Coin

	// txs holds the full previous transactions that are known, keyed by
	// hash. Legacy PSBT inputs need them.
	txs map[chainhash.Hash]*wire.MsgTx
}

// A compile-time assertion to ensure View can feed the sighash midstate.
var _ txscript.PrevOutputFetcher = (*View)(nil)

// NewView creates an empty view.
func NewView() *View {
	return &View{
		coins: make(map[wire.OutPoint]*Coin),
		txs:   make(map[chainhash.Hash]*wire.MsgTx),
	}
}

// Add records the coin, replacing any coin with the same outpoint.
func (v *View) Add(coin *Coin) {
	v.coins[coin.OutPoint] = coin
}

// Get returns the coin for the outpoint, or nil on a miss.
func (v *View) Get(op wire.OutPoint) *Coin {
	return v.coins[op]
}

// Has reports whether the view knows the outpoint.
func (v *View) Has(op wire.OutPoint) bool {
	_, ok := v.coins[op]
	return ok
}

// AddTx records the full transaction coins in the view were created by. It
// does not add any coin.
func (v *View) AddTx(tx *wire.MsgTx) {
	v.txs[tx.TxHash()] = tx
}

// Tx returns the recorded transaction with the given hash, or nil.
func (v *View) Tx(hash chainhash.Hash) *wire.MsgTx {
	return v.txs[hash]
}

// Remove forgets the outpoint.
func (v *View) Remove(op wire.OutPoint) {
	delete(v.coins, op)
}

// Len returns the number of known coins.
func (v *View) Len() int {
	return len(v.coins)
}

// Clone returns a view holding the same coins and transactions. Both are
// shared, which is safe because they are never mutated.
func (v *View) Clone() *View {
	clone := &View{
		coins: make(map[wire.OutPoint]*Coin, len(v.coins)),
		txs:   make(map[chainhash.Hash]*wire.MsgTx, len(v.txs)),
	}
	for op, coin := range v.coins {
		clone.coins[op] = coin
	}
	for hash, tx := range v.txs {
		clone.txs[hash] = tx
	}

	return clone
}

// FetchPrevOutput returns the output referenced by op. Unknown outpoints
// yield an empty output rather than nil so the sighash midstate can still be
// computed for transactions with unresolved inputs.
func (v *View) FetchPrevOutput(op wire.OutPoint) *wire.TxOut {
	coin, ok := v.coins[op]
	if !ok {
		return &wire.TxOut{}
	}

	return coin.TxOut()
}
