// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mtx

import (
	"context"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcmtx/workers"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
)

const (
	// unknownInputSize is assumed for an input whose coin or script type
	// is unknown. It is the size of a typical key hash spend.
	unknownInputSize = 110

	// sigPushSize is a signature push: a length byte, a 72 byte DER
	// signature and the sighash byte.
	sigPushSize = 1 + 73

	// scriptHashInputSize is assumed for a script hash spend the
	// estimator could not size: a 2-of-3 multisig redeem.
	scriptHashInputSize = 149
)

// SizeEstimator sizes the unlocking data of an input spending prevScript. A
// negative size means the estimator does not know the script and the default
// guess is used.
type SizeEstimator func(ctx context.Context, prevScript []byte) (int, error)

// EstimateSize returns the expected virtual size of the transaction once all
// inputs are signed. It runs on the transaction's pool against a snapshot, so
// m may be modified once it returns.
func (m *MTX) EstimateSize(ctx context.Context,
	estimator SizeEstimator) (int, error) {

	snapshot := m.Clone()

	return workers.Run(ctx, m.pool, func(ctx context.Context) (int, error) {
		return snapshot.estimateSize(ctx, estimator)
	})
}

// estimateSize adds the expected unlocking data of every input to the size
// of the transaction without it.
func (m *MTX) estimateSize(ctx context.Context,
	estimator SizeEstimator) (int, error) {

	total := m.baseSize()

	for _, txIn := range m.tx.TxIn {
		coin := m.view.Get(txIn.PreviousOutPoint)
		if coin == nil {
			total += unknownInputSize
			continue
		}

		size, err := inputSize(ctx, coin.PkScript, estimator)
		if err != nil {
			return 0, err
		}

		total += size
	}

	return total, nil
}

// baseSize is the serialized size of the transaction with every input
// script, and its length prefix, left out.
func (m *MTX) baseSize() int {
	// Version and lock time.
	size := 4 + 4

	// Outpoint and sequence of each input.
	size += wire.VarIntSerializeSize(uint64(len(m.tx.TxIn)))
	size += len(m.tx.TxIn) * (chainhash.HashSize + 4 + 4)

	size += wire.VarIntSerializeSize(uint64(len(m.tx.TxOut)))
	for _, txOut := range m.tx.TxOut {
		size += txOut.SerializeSize()
	}

	return size
}

// inputSize is the expected unlocking data of an input spending prevScript.
func inputSize(ctx context.Context, prevScript []byte,
	estimator SizeEstimator) (int, error) {

	switch txscript.GetScriptClass(prevScript) {
	case txscript.PubKeyTy:
		return 1 + sigPushSize, nil

	case txscript.PubKeyHashTy:
		return 1 + txsizes.RedeemP2PKHSigScriptSize, nil

	case txscript.MultiSigTy:
		_, required, err := txscript.CalcMultiSigStats(prevScript)
		if err != nil {
			return unknownInputSize, nil
		}

		// OP_0 dummy followed by m signatures.
		size := 1 + sigPushSize*required

		return size + wire.VarIntSerializeSize(uint64(size)), nil

	case txscript.WitnessV0PubKeyHashTy:
		return witnessVSize(txsizes.RedeemP2WPKHInputWitnessWeight), nil
	}

	if estimator != nil {
		size, err := estimator(ctx, prevScript)
		if err != nil {
			return 0, err
		}
		if size >= 0 {
			return size, nil
		}
	}

	switch txscript.GetScriptClass(prevScript) {
	case txscript.ScriptHashTy:
		return 1 + scriptHashInputSize, nil

	case txscript.WitnessV0ScriptHashTy:
		return witnessVSize(1 + scriptHashInputSize), nil
	}

	return unknownInputSize, nil
}

// witnessVSize converts a witness weight to virtual bytes, rounding up.
func witnessVSize(weight int) int {
	return (weight + blockchain.WitnessScaleFactor - 1) /
		blockchain.WitnessScaleFactor
}
