// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package inputscript

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcmtx/txsign"
)

// Spend describes what a signature for an input commits to and where it
// goes.
type Spend struct {
	// Script is the effective script code: the redeem or witness script
	// for script hash outputs, the implied pay-to-pubkey-hash script for
	// key hash programs, the previous output script otherwise.
	Script []byte

	// Version selects the digest algorithm.
	Version txsign.SigVersion

	// Vector is the unlocking vector signatures are written into.
	Vector *Vector
}

// Resolve unwraps the previous output script of a templated input into the
// script its signatures commit to. Script hash outputs are resolved through
// the redeem script the template revealed, so an input spending one that was
// never templated yields ErrNotTemplated.
func Resolve(txIn *wire.TxIn, prevScript []byte) (*Spend, error) {
	var (
		script  = prevScript
		slot    = SlotScript
		version = txsign.SigVersionBase
		redeem  bool
	)

	if _, ok := scriptHashOf(script); ok {
		items, err := parsePushes(txIn.SignatureScript)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: no redeem script",
				ErrNotTemplated)
		}

		script = items[len(items)-1]
		redeem = true
	}

	if _, ok := isWitnessScriptHash(script); ok {
		if len(txIn.Witness) == 0 {
			return nil, fmt.Errorf("%w: no witness script",
				ErrNotTemplated)
		}

		script = txIn.Witness[len(txIn.Witness)-1]
		slot = SlotWitness
		version = txsign.SigVersionWitnessV0
		redeem = true
	} else if hash, ok := isWitnessPubKeyHash(script); ok {
		script = payToPubKeyHash(hash)
		slot = SlotWitness
		version = txsign.SigVersionWitnessV0
		redeem = false
	}

	vector, err := OpenVector(txIn, slot, redeem)
	if err != nil {
		return nil, err
	}

	return &Spend{Script: script, Version: version, Vector: vector}, nil
}

// Fill writes sig, produced by key, into the slot of the unlocking vector
// that belongs to key. It reports whether the vector is fully signed
// afterwards.
//
// A false result without error means key cannot sign for the script, or that
// a multisig vector still lacks signatures from other keys. The vector may
// have been modified in the latter case and the new signature is kept. An
// error means the vector was not templated for this script.
func Fill(spend *Spend, sig []byte, key Key) (bool, error) {
	v := spend.Vector

	if pub, ok := pubKeyOf(spend.Script); ok {
		if !bytes.Equal(pub, key.PublicKey()) {
			return false, nil
		}

		if v.Len() == 0 {
			return false, fmt.Errorf("%w: empty vector",
				ErrNotTemplated)
		}

		return fillSingle(v, sig)
	}

	if hash, ok := pubKeyHashOf(spend.Script); ok {
		if !bytes.Equal(hash, key.KeyHash()) {
			return false, nil
		}

		if v.Len() != 2 || len(v.Item(1)) == 0 {
			return false, fmt.Errorf("%w: expected signature and "+
				"key slots", ErrNotTemplated)
		}

		return fillSingle(v, sig)
	}

	if m, keys, ok := multisigOf(spend.Script); ok {
		return fillMultisig(v, m, keys, sig, key)
	}

	return false, nil
}

// fillSingle places sig into slot zero of a single signer vector.
func fillSingle(v *Vector, sig []byte) (bool, error) {
	current := v.Item(0)
	if len(current) != 0 {
		if txsign.IsSignatureEncoding(current) {
			return true, nil
		}

		return false, fmt.Errorf("%w: signature slot holds %d bytes",
			ErrNotTemplated, len(current))
	}

	if err := v.set(0, sig); err != nil {
		return false, err
	}

	return true, nil
}

// fillMultisig places sig into the slot of key's position in keys. Once m
// signatures are present the unused slots are dropped, leaving the leading
// empty item and exactly m signatures in key order.
func fillMultisig(v *Vector, m int, keys [][]byte, sig []byte,
	key Key) (bool, error) {

	n := len(keys)

	switch {
	case v.Len() < 2:
		return false, fmt.Errorf("%w: multisig vector has %d items",
			ErrNotTemplated, v.Len())

	case len(v.Item(0)) != 0:
		return false, fmt.Errorf("%w: multisig dummy item is not empty",
			ErrNotTemplated)

	case v.Len()-1 > n:
		return false, fmt.Errorf("%w: %d signature slots for %d keys",
			ErrNotTemplated, v.Len()-1, n)
	}

	total := 0
	for i := 1; i < v.Len(); i++ {
		if len(v.Item(i)) > 0 {
			total++
		}
	}

	// Already finalized. This only checks the shape; the signatures are
	// not verified against the current digest.
	if total == m && v.Len()-1 == m {
		return true, nil
	}

	for v.Len()-1 < n {
		if err := v.push([]byte{}); err != nil {
			return false, err
		}
	}

	idx := keyIndex(keys, key.PublicKey())
	if idx == -1 {
		return false, nil
	}

	// Slot zero is the dummy item.
	slot := idx + 1
	if slot < v.Len() && total < m && len(v.Item(slot)) == 0 {
		if err := v.set(slot, sig); err != nil {
			return false, err
		}
		total++
	}

	if total >= m {
		for i := v.Len() - 1; i >= 1; i-- {
			if len(v.Item(i)) == 0 {
				v.remove(i)
			}
		}

		for total > m {
			v.pop()
			total--
		}

		if err := v.flush(); err != nil {
			return false, err
		}
	}

	return total == m, nil
}
