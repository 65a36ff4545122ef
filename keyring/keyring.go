// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package keyring provides a signing key bundled with the redeem script it
// controls and the address forms it can be paid to.
package keyring

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

var (
	// ErrNoPrivateKey is returned when a watch-only ring is asked to
	// sign.
	ErrNoPrivateKey = errors.New("key ring has no private key")

	// ErrNetMismatch is returned when a WIF encodes a key for another
	// network.
	ErrNetMismatch = errors.New("key belongs to another network")
)

// KeyRing holds a key pair, an optional script the key participates in, and
// the flags selecting which address form the pair is paid to. Only
// compressed public keys are supported.
type KeyRing struct {
	privKey *btcec.PrivateKey
	pubKey  *btcec.PublicKey

	// script is an optional redeem script, e.g. a multisig the key is
	// part of. When set the ring's address commits to the script instead
	// of the key.
	script []byte

	// witness selects segwit address forms.
	witness bool

	// nested wraps the witness program in P2SH.
	nested bool

	params *chaincfg.Params
}

// New creates a key ring from a private key.
func New(privKey *btcec.PrivateKey, params *chaincfg.Params) *KeyRing {
	return &KeyRing{
		privKey: privKey,
		pubKey:  privKey.PubKey(),
		params:  params,
	}
}

// FromPublicKey creates a watch-only key ring.
func FromPublicKey(pubKey *btcec.PublicKey,
	params *chaincfg.Params) *KeyRing {

	return &KeyRing{
		pubKey: pubKey,
		params: params,
	}
}

// FromWIF decodes a WIF encoded private key for the given network.
func FromWIF(encoded string, params *chaincfg.Params) (*KeyRing, error) {
	wif, err := btcutil.DecodeWIF(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode wif: %w", err)
	}

	if !wif.IsForNet(params) {
		return nil, fmt.Errorf("%w: %s", ErrNetMismatch, params.Name)
	}

	return New(wif.PrivKey, params), nil
}

// SetScript attaches a redeem script to the ring.
func (k *KeyRing) SetScript(script []byte) *KeyRing {
	k.script = script
	return k
}

// SetWitness selects segwit address forms.
func (k *KeyRing) SetWitness(witness bool) *KeyRing {
	k.witness = witness
	return k
}

// SetNested selects P2SH wrapping of the witness program. It implies
// SetWitness(true).
func (k *KeyRing) SetNested(nested bool) *KeyRing {
	k.nested = nested
	if nested {
		k.witness = true
	}

	return k
}

// Script returns the attached redeem script, if any.
func (k *KeyRing) Script() []byte {
	return k.script
}

// PublicKey returns the serialized compressed public key.
func (k *KeyRing) PublicKey() []byte {
	return k.pubKey.SerializeCompressed()
}

// PrivateKey returns the private key, or ErrNoPrivateKey for a watch-only
// ring.
func (k *KeyRing) PrivateKey() (*btcec.PrivateKey, error) {
	if k.privKey == nil {
		return nil, ErrNoPrivateKey
	}

	return k.privKey, nil
}

// KeyHash returns the HASH160 of the compressed public key.
func (k *KeyRing) KeyHash() []byte {
	return btcutil.Hash160(k.PublicKey())
}

// Program returns the witness program the ring's witness address commits
// to: a v0 key hash program, or a v0 script hash program when a script is
// attached.
func (k *KeyRing) Program() []byte {
	if k.script != nil {
		return witnessScriptHashProgram(k.script)
	}

	return keyHashProgram(k.KeyHash())
}

// Redeem returns the script whose HASH160 or SHA256 is hash, or nil if the
// ring holds no such script. Candidates are the attached script, its v0
// script hash program and the key's v0 key hash program, so nested witness
// outputs resolve to their program.
func (k *KeyRing) Redeem(hash []byte) []byte {
	candidates := [][]byte{keyHashProgram(k.KeyHash())}
	if k.script != nil {
		candidates = append(
			candidates, k.script,
			witnessScriptHashProgram(k.script),
		)
	}

	for _, script := range candidates {
		switch len(hash) {
		case 20:
			if bytes.Equal(btcutil.Hash160(script), hash) {
				return script
			}

		case sha256.Size:
			digest := sha256.Sum256(script)
			if bytes.Equal(digest[:], hash) {
				return script
			}
		}
	}

	return nil
}

// Address returns the address the ring is paid to under its current flags.
func (k *KeyRing) Address() (btcutil.Address, error) {
	switch {
	case k.nested:
		return btcutil.NewAddressScriptHash(k.Program(), k.params)

	case k.witness && k.script != nil:
		digest := sha256.Sum256(k.script)
		return btcutil.NewAddressWitnessScriptHash(digest[:], k.params)

	case k.witness:
		return btcutil.NewAddressWitnessPubKeyHash(
			k.KeyHash(), k.params,
		)

	case k.script != nil:
		return btcutil.NewAddressScriptHash(k.script, k.params)

	default:
		return btcutil.NewAddressPubKeyHash(k.KeyHash(), k.params)
	}
}

// PkScript returns the locking script paying the ring's address.
func (k *KeyRing) PkScript() ([]byte, error) {
	addr, err := k.Address()
	if err != nil {
		return nil, err
	}

	return txscript.PayToAddrScript(addr)
}

// OwnsScript reports whether the ring can produce a signature that helps
// satisfy pkScript, either directly or through a redeem script it holds.
func (k *KeyRing) OwnsScript(pkScript []byte) bool {
	pushes, err := txscript.PushedData(pkScript)
	if err != nil {
		return false
	}

	switch txscript.GetScriptClass(pkScript) {
	case txscript.PubKeyTy:
		return bytes.Equal(pushes[0], k.PublicKey())

	case txscript.PubKeyHashTy:
		return bytes.Equal(pushes[0], k.KeyHash())

	case txscript.MultiSigTy:
		return k.containsKey(pushes)

	case txscript.ScriptHashTy:
		return k.Redeem(pushes[0]) != nil

	case txscript.WitnessV0PubKeyHashTy:
		_, program, err := txscript.ExtractWitnessProgramInfo(pkScript)
		return err == nil && bytes.Equal(program, k.KeyHash())

	case txscript.WitnessV0ScriptHashTy:
		_, program, err := txscript.ExtractWitnessProgramInfo(pkScript)
		return err == nil && k.Redeem(program) != nil

	default:
		return false
	}
}

// containsKey reports whether the ring's public key is among pushes.
func (k *KeyRing) containsKey(pushes [][]byte) bool {
	pub := k.PublicKey()
	for _, push := range pushes {
		if bytes.Equal(push, pub) {
			return true
		}
	}

	return false
}

// String returns the ring's address, or its key hash if no address can be
// derived.
func (k *KeyRing) String() string {
	addr, err := k.Address()
	if err != nil {
		return fmt.Sprintf("%x", k.KeyHash())
	}

	return addr.EncodeAddress()
}

// keyHashProgram returns the v0 witness program OP_0 <20-byte hash>.
func keyHashProgram(hash []byte) []byte {
	program := make([]byte, 0, 2+len(hash))
	program = append(program, txscript.OP_0, txscript.OP_DATA_20)

	return append(program, hash...)
}

// witnessScriptHashProgram returns the v0 witness program
// OP_0 <32-byte SHA256(script)>.
func witnessScriptHashProgram(script []byte) []byte {
	digest := sha256.Sum256(script)

	program := make([]byte, 0, 2+sha256.Size)
	program = append(program, txscript.OP_0, txscript.OP_DATA_32)

	return append(program, digest[:]...)
}
