// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package inputscript builds and fills the unlocking data of transaction
// inputs: placeholder templates matching the spent output's pattern, and the
// placement of produced signatures into those placeholders.
package inputscript

import (
	"bytes"

	"github.com/btcsuite/btcd/wire"
)

// Key is the key material templating and filling need from a signer.
type Key interface {
	// PublicKey returns the serialized public key.
	PublicKey() []byte

	// KeyHash returns the HASH160 of PublicKey.
	KeyHash() []byte

	// Redeem returns the script hashing to hash, or nil if unknown.
	Redeem(hash []byte) []byte
}

// BuildVector returns the placeholder unlocking items for script, or false
// if script is not a pattern key can sign for.
//
// Pay-to-pubkey gets one empty signature slot. Pay-to-pubkey-hash gets an
// empty signature slot followed by the key. An m-of-n multisig gets the
// leading empty item consumed by OP_CHECKMULTISIG followed by n empty
// signature slots, one per key, so that signatures keep their key order no
// matter when they arrive.
func BuildVector(script []byte, key Key) ([][]byte, bool) {
	if pub, ok := pubKeyOf(script); ok {
		if !bytes.Equal(pub, key.PublicKey()) {
			return nil, false
		}

		return [][]byte{{}}, true
	}

	if hash, ok := pubKeyHashOf(script); ok {
		if !bytes.Equal(hash, key.KeyHash()) {
			return nil, false
		}

		return [][]byte{{}, key.PublicKey()}, true
	}

	if _, keys, ok := multisigOf(script); ok {
		if keyIndex(keys, key.PublicKey()) == -1 {
			return nil, false
		}

		items := make([][]byte, 0, len(keys)+1)
		for i := 0; i <= len(keys); i++ {
			items = append(items, []byte{})
		}

		return items, true
	}

	return nil, false
}

// Template writes placeholder unlocking data for an input spending prevScript.
// Inputs that already carry a signature script or witness are left untouched
// and reported as templated. It returns false without modifying the input
// when the pattern is unknown, a redeem script cannot be resolved, or key is
// not part of the pattern.
func Template(txIn *wire.TxIn, prevScript []byte, key Key) (bool, error) {
	if len(txIn.SignatureScript) > 0 || len(txIn.Witness) > 0 {
		return true, nil
	}

	if hash, ok := scriptHashOf(prevScript); ok {
		redeem := key.Redeem(hash)
		if redeem == nil {
			return false, nil
		}

		// A witness program redeem script moves the unlocking data
		// into the witness; the signature script only reveals the
		// program.
		if _, _, ok := witnessProgramOf(redeem); ok {
			templated, err := templateProgram(txIn, redeem, key)
			if err != nil || !templated {
				return templated, err
			}

			v := &Vector{txIn: txIn, slot: SlotScript, redeem: redeem}

			return true, v.flush()
		}

		items, ok := BuildVector(redeem, key)
		if !ok {
			return false, nil
		}

		v := &Vector{
			txIn:   txIn,
			slot:   SlotScript,
			items:  items,
			redeem: redeem,
		}

		return true, v.flush()
	}

	if _, _, ok := witnessProgramOf(prevScript); ok {
		return templateProgram(txIn, prevScript, key)
	}

	items, ok := BuildVector(prevScript, key)
	if !ok {
		return false, nil
	}

	v := &Vector{txIn: txIn, slot: SlotScript, items: items}

	return true, v.flush()
}

// templateProgram writes the witness for a v0 witness program. Other
// versions are not supported.
func templateProgram(txIn *wire.TxIn, program []byte, key Key) (bool, error) {
	if hash, ok := isWitnessScriptHash(program); ok {
		witnessScript := key.Redeem(hash)
		if witnessScript == nil {
			return false, nil
		}

		items, ok := BuildVector(witnessScript, key)
		if !ok {
			return false, nil
		}

		v := &Vector{
			txIn:   txIn,
			slot:   SlotWitness,
			items:  items,
			redeem: witnessScript,
		}

		return true, v.flush()
	}

	if hash, ok := isWitnessPubKeyHash(program); ok {
		items, ok := BuildVector(payToPubKeyHash(hash), key)
		if !ok {
			return false, nil
		}

		v := &Vector{txIn: txIn, slot: SlotWitness, items: items}

		return true, v.flush()
	}

	return false, nil
}

// keyIndex returns the position of pub in keys, or -1.
func keyIndex(keys [][]byte, pub []byte) int {
	for i, key := range keys {
		if bytes.Equal(key, pub) {
			return i
		}
	}

	return -1
}
