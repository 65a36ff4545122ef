// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mtx

import (
	"errors"
	"math/rand"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil/txsort"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txauthor"
)

// relativeLockTimeVersion is the first transaction version that enforces
// sequence locks.
const relativeLockTimeVersion = 2

// errChangeLost is returned when the change output cannot be found after
// sorting.
var errChangeLost = errors.New("change output lost while sorting")

// SetLocktime sets the absolute lock time. Inputs with a final sequence are
// made non-final so the lock time is enforced.
func (m *MTX) SetLocktime(locktime uint32) error {
	if len(m.tx.TxIn) == 0 {
		return ErrNoInputs
	}

	for _, txIn := range m.tx.TxIn {
		if txIn.Sequence == wire.MaxTxInSequenceNum {
			txIn.Sequence = wire.MaxTxInSequenceNum - 1
		}
	}

	m.tx.LockTime = locktime

	return nil
}

// AvoidFeeSniping locks the transaction to height. One time in ten a random
// offset below 100 blocks is subtracted, floored at zero, so the lock time
// does not single out the wallet.
func (m *MTX) AvoidFeeSniping(height int32) error {
	if rand.Intn(10) == 0 {
		height -= rand.Int31n(100)
	}

	return m.SetLocktime(uint32(max(height, 0)))
}

// SetSequence gives input i a relative lock time of locktime blocks, or of
// locktime seconds if seconds is set. Seconds are stored at a granularity of
// 512. The transaction version is raised to 2 if needed.
func (m *MTX) SetSequence(i int, locktime uint32, seconds bool) error {
	txIn, err := m.Input(i)
	if err != nil {
		return err
	}

	m.tx.Version = max(m.tx.Version, relativeLockTimeVersion)

	sequence := blockchain.LockTimeToSequence(seconds, locktime) &
		wire.SequenceLockTimeMask
	if seconds {
		sequence |= wire.SequenceLockTimeIsSeconds
	}

	txIn.Sequence = sequence

	return nil
}

// SortMembers orders inputs and outputs per BIP 69 and tracks the change
// output to its new position.
func (m *MTX) SortMembers() error {
	var change *wire.TxOut
	if m.changeIndex >= 0 {
		change = m.tx.TxOut[m.changeIndex]
	}

	txsort.InPlaceSort(m.tx)

	if change == nil {
		return nil
	}

	for i, txOut := range m.tx.TxOut {
		if txOut == change {
			m.changeIndex = i
			return nil
		}
	}

	return errChangeLost
}

// RandomizeChangePosition moves the change output to a random position.
func (m *MTX) RandomizeChangePosition() {
	if m.changeIndex < 0 {
		return
	}

	m.changeIndex = txauthor.RandomizeOutputPosition(
		m.tx.TxOut, m.changeIndex,
	)
}
