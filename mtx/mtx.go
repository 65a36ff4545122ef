// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mtx provides a mutable transaction that is funded from a set of
// candidate coins, templated and signed input by input, and finally
// exported as an immutable wire transaction.
package mtx

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcmtx/utxo"
	"github.com/btcsuite/btcmtx/workers"
)

var (
	// ErrInputNotFound is returned when an input index is out of range.
	ErrInputNotFound = errors.New("input does not exist")

	// ErrOutputNotFound is returned when an output index is out of range.
	ErrOutputNotFound = errors.New("output does not exist")

	// ErrMissingCoin is returned when a coin is required but was not
	// supplied or is not in the view.
	ErrMissingCoin = errors.New("coin is missing")

	// ErrNegativeValue is returned for an output with a negative value.
	ErrNegativeValue = errors.New("output value is negative")

	// ErrNoInputs is returned when an operation needs at least one input.
	ErrNoInputs = errors.New("transaction has no inputs")
)

// MTX is a transaction under construction together with the coins its
// inputs spend and the position of its change output.
//
// An MTX is not safe for concurrent use. Distinct instances share no mutable
// state and may be used from different goroutines.
type MTX struct {
	tx   *wire.MsgTx
	view *utxo.View

	// changeIndex is the position of the change output added by Fund, or
	// -1.
	changeIndex int

	pool workers.Pool
}

// Option configures a new MTX.
type Option func(*MTX)

// WithPool dispatches size estimation and signing to pool.
func WithPool(pool workers.Pool) Option {
	return func(m *MTX) {
		m.pool = pool
	}
}

// WithVersion sets the transaction version.
func WithVersion(version int32) Option {
	return func(m *MTX) {
		m.tx.Version = version
	}
}

// New creates an empty transaction.
func New(opts ...Option) *MTX {
	m := &MTX{
		tx:          wire.NewMsgTx(wire.TxVersion),
		view:        utxo.NewView(),
		changeIndex: -1,
		pool:        workers.Inline{},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// FromTx creates a mutable copy of tx. view supplies the coins its inputs
// spend and may be nil.
func FromTx(tx *wire.MsgTx, view *utxo.View, opts ...Option) *MTX {
	m := New(opts...)
	m.tx = tx.Copy()

	if view != nil {
		m.view = view.Clone()
	}

	return m
}

// Clone returns a deep copy of the transaction. Coins are shared.
func (m *MTX) Clone() *MTX {
	return &MTX{
		tx:          m.tx.Copy(),
		view:        m.view.Clone(),
		changeIndex: m.changeIndex,
		pool:        m.pool,
	}
}

// adopt takes over the state of a clone that was modified in its place.
func (m *MTX) adopt(clone *MTX) {
	m.tx = clone.tx
	m.view = clone.view
	m.changeIndex = clone.changeIndex
}

// Version returns the transaction version.
func (m *MTX) Version() int32 {
	return m.tx.Version
}

// LockTime returns the transaction lock time.
func (m *MTX) LockTime() uint32 {
	return m.tx.LockTime
}

// View returns the coins known for the inputs.
func (m *MTX) View() *utxo.View {
	return m.view
}

// ChangeIndex returns the position of the change output, or -1.
func (m *MTX) ChangeIndex() int {
	return m.changeIndex
}

// NumInputs returns the number of inputs.
func (m *MTX) NumInputs() int {
	return len(m.tx.TxIn)
}

// NumOutputs returns the number of outputs.
func (m *MTX) NumOutputs() int {
	return len(m.tx.TxOut)
}

// Input returns input i. The input remains owned by the MTX.
func (m *MTX) Input(i int) (*wire.TxIn, error) {
	if i < 0 || i >= len(m.tx.TxIn) {
		return nil, fmt.Errorf("%w: index %d", ErrInputNotFound, i)
	}

	return m.tx.TxIn[i], nil
}

// Output returns output i. The output remains owned by the MTX.
func (m *MTX) Output(i int) (*wire.TxOut, error) {
	if i < 0 || i >= len(m.tx.TxOut) {
		return nil, fmt.Errorf("%w: index %d", ErrOutputNotFound, i)
	}

	return m.tx.TxOut[i], nil
}

// AddCoin adds an input spending coin and records the coin in the view.
func (m *MTX) AddCoin(coin *utxo.Coin) (*wire.TxIn, error) {
	if coin == nil {
		return nil, ErrMissingCoin
	}

	txIn := wire.NewTxIn(&coin.OutPoint, nil, nil)
	m.tx.AddTxIn(txIn)
	m.view.Add(coin)

	return txIn, nil
}

// AddTxOutput adds an input spending output index of tx. The coin is
// recorded with an unknown height and tx is kept in the view.
func (m *MTX) AddTxOutput(tx *wire.MsgTx, index uint32) (*wire.TxIn, error) {
	coin, err := utxo.NewCoinFromTx(tx, index, utxo.UnminedHeight)
	if err != nil {
		return nil, err
	}

	txIn, err := m.AddCoin(coin)
	if err != nil {
		return nil, err
	}
	m.view.AddTx(tx.Copy())

	return txIn, nil
}

// AddOutpoint adds an input spending op without recording a coin. Size
// estimation and signing treat the input as unresolved until its coin is
// added to the view.
func (m *MTX) AddOutpoint(op wire.OutPoint) *wire.TxIn {
	txIn := wire.NewTxIn(&op, nil, nil)
	m.tx.AddTxIn(txIn)

	return txIn
}

// AddOutput adds an output paying value to dest.
func (m *MTX) AddOutput(dest Destination,
	value btcutil.Amount) (*wire.TxOut, error) {

	pkScript, err := dest.PkScript()
	if err != nil {
		return nil, fmt.Errorf("destination script: %w", err)
	}

	txOut := wire.NewTxOut(int64(value), pkScript)
	if err := m.AddTxOut(txOut); err != nil {
		return nil, err
	}

	return txOut, nil
}

// AddTxOut adds a ready-made output.
func (m *MTX) AddTxOut(txOut *wire.TxOut) error {
	if txOut.Value < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeValue, txOut.Value)
	}

	m.tx.AddTxOut(txOut)

	return nil
}

// HasCoins reports whether the view holds the coin of every input.
func (m *MTX) HasCoins() bool {
	for _, txIn := range m.tx.TxIn {
		if !m.view.Has(txIn.PreviousOutPoint) {
			return false
		}
	}

	return true
}

// InputValue returns the total value of the coins spent. It is zero if any
// input is unresolved.
func (m *MTX) InputValue() btcutil.Amount {
	var total btcutil.Amount
	for _, txIn := range m.tx.TxIn {
		coin := m.view.Get(txIn.PreviousOutPoint)
		if coin == nil {
			return 0
		}

		total += coin.Value
	}

	return total
}

// OutputValue returns the total value of the outputs.
func (m *MTX) OutputValue() btcutil.Amount {
	var total btcutil.Amount
	for _, txOut := range m.tx.TxOut {
		total += btcutil.Amount(txOut.Value)
	}

	return total
}

// Fee returns the fee paid by the transaction. It is zero if any input is
// unresolved.
func (m *MTX) Fee() btcutil.Amount {
	if !m.HasCoins() {
		return 0
	}

	return m.InputValue() - m.OutputValue()
}

// String returns the transaction id and a short summary.
func (m *MTX) String() string {
	return fmt.Sprintf("%v (%d in, %d out, fee %v)", m.tx.TxHash(),
		len(m.tx.TxIn), len(m.tx.TxOut), m.Fee())
}
