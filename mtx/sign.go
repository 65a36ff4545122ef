// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mtx

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcmtx/inputscript"
	"github.com/btcsuite/btcmtx/keyring"
	"github.com/btcsuite/btcmtx/txsign"
	"github.com/btcsuite/btcmtx/utxo"
	"github.com/btcsuite/btcmtx/workers"
)

// Signer is a key that can claim and sign inputs.
type Signer interface {
	inputscript.Key

	// OwnsScript reports whether the key can spend an output locked by
	// pkScript.
	OwnsScript(pkScript []byte) bool

	// PrivateKey returns the signing key.
	PrivateKey() (*btcec.PrivateKey, error)
}

// A compile-time assertion to ensure KeyRing is a Signer.
var _ Signer = (*keyring.KeyRing)(nil)

// Template writes the unlocking structure for every input owned by one of
// the signers and returns how many were templated. Inputs without a coin are
// skipped.
func (m *MTX) Template(signers ...Signer) (int, error) {
	var total int
	for _, signer := range signers {
		for i := range m.tx.TxIn {
			ok, err := m.templateInput(i, signer)
			if err != nil {
				return total, err
			}
			if ok {
				total++
			}
		}
	}

	return total, nil
}

// TemplateInput templates input i for signer. It returns false if the
// signer does not own the coin or the pattern is not supported.
func (m *MTX) TemplateInput(i int, signer Signer) (bool, error) {
	if _, err := m.Input(i); err != nil {
		return false, err
	}

	return m.templateInput(i, signer)
}

func (m *MTX) templateInput(i int, signer Signer) (bool, error) {
	txIn := m.tx.TxIn[i]

	coin := m.view.Get(txIn.PreviousOutPoint)
	if coin == nil || !signer.OwnsScript(coin.PkScript) {
		return false, nil
	}

	return inputscript.Template(txIn, coin.PkScript, signer)
}

// Sign templates and signs every input the signers own and returns how many
// inputs were advanced. A multisig input only counts once it holds enough
// signatures. Inputs that are unresolved, not owned, or use an unsupported
// pattern are skipped.
//
// Signing runs on the transaction's pool against a snapshot that replaces
// the transaction's inputs on success. On error the transaction is left
// untouched.
func (m *MTX) Sign(ctx context.Context, signers []Signer,
	hashType txscript.SigHashType) (int, error) {

	snapshot := m.Clone()

	total, err := workers.Run(ctx, m.pool,
		func(context.Context) (int, error) {
			return snapshot.sign(signers, hashType)
		},
	)
	if err != nil {
		return 0, err
	}

	m.adopt(snapshot)

	log.Debugf("Signed %d inputs of %v", total, m.tx.TxHash())

	return total, nil
}

// sign does the work of Sign in place.
func (m *MTX) sign(signers []Signer,
	hashType txscript.SigHashType) (int, error) {

	// The witness midstate does not cover input scripts, so templating
	// below leaves it valid.
	hashes := txscript.NewTxSigHashes(m.tx, m.view)

	var total int
	for _, signer := range signers {
		for i, txIn := range m.tx.TxIn {
			coin := m.view.Get(txIn.PreviousOutPoint)
			if coin == nil {
				log.Tracef("Input %d has no coin, skipping", i)
				continue
			}
			if !signer.OwnsScript(coin.PkScript) {
				continue
			}

			ok, err := inputscript.Template(txIn, coin.PkScript, signer)
			if err != nil {
				return 0, fmt.Errorf("template input %d: %w", i, err)
			}
			if !ok {
				continue
			}

			ok, err = m.signInput(i, coin, signer, hashType, hashes)
			if err != nil {
				return 0, fmt.Errorf("sign input %d: %w", i, err)
			}
			if ok {
				total++
			}
		}
	}

	return total, nil
}

// SignInput signs an already templated input i with signer. It returns true
// once the input holds every signature it needs.
func (m *MTX) SignInput(i int, signer Signer,
	hashType txscript.SigHashType) (bool, error) {

	txIn, err := m.Input(i)
	if err != nil {
		return false, err
	}

	coin := m.view.Get(txIn.PreviousOutPoint)
	if coin == nil {
		return false, fmt.Errorf("%w: input %d", ErrMissingCoin, i)
	}

	return m.signInput(i, coin, signer, hashType, nil)
}

// signInput resolves the script input i commits to, signs it, and places
// the signature. hashes may be nil.
func (m *MTX) signInput(i int, coin *utxo.Coin, signer Signer,
	hashType txscript.SigHashType,
	hashes *txscript.TxSigHashes) (bool, error) {

	spend, err := inputscript.Resolve(m.tx.TxIn[i], coin.PkScript)
	if err != nil {
		return false, err
	}

	if hashes == nil && spend.Version == txsign.SigVersionWitnessV0 {
		hashes = txscript.NewTxSigHashes(m.tx, m.view)
	}

	privKey, err := signer.PrivateKey()
	if err != nil {
		return false, err
	}

	sig, err := txsign.Signature(
		m.tx, i, spend.Script, coin.Value, privKey, hashType,
		spend.Version, hashes,
	)
	if err != nil {
		return false, err
	}

	return inputscript.Fill(spend, sig, signer)
}

// SignBatch signs each transaction with the signers, running up to limit
// transactions at once. The transactions must be distinct. It returns the
// per transaction counts of Sign.
func SignBatch(ctx context.Context, txs []*MTX, signers []Signer,
	hashType txscript.SigHashType, limit int) ([]int, error) {

	counts := make([]int, len(txs))
	indices := make([]int, len(txs))
	for i := range indices {
		indices[i] = i
	}

	err := workers.ForEach(ctx, limit, indices,
		func(ctx context.Context, i int) error {
			total, err := txs[i].Sign(ctx, signers, hashType)
			if err != nil {
				return fmt.Errorf("tx %d: %w", i, err)
			}
			counts[i] = total

			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	return counts, nil
}

// IsSigned reports whether every input is resolved and fully signed.
func (m *MTX) IsSigned() bool {
	for i := range m.tx.TxIn {
		if ok, _ := m.IsInputSigned(i); !ok {
			return false
		}
	}

	return true
}

// IsInputSigned reports whether input i holds every signature it needs. An
// input without a coin is not signed.
func (m *MTX) IsInputSigned(i int) (bool, error) {
	txIn, err := m.Input(i)
	if err != nil {
		return false, err
	}

	coin := m.view.Get(txIn.PreviousOutPoint)
	if coin == nil {
		return false, nil
	}

	return inputscript.IsSigned(txIn, coin.PkScript), nil
}
