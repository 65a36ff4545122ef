// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mtx

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcmtx/keyring"
)

// Destination is where an output pays to.
type Destination interface {
	// PkScript returns the locking script of the output.
	PkScript() ([]byte, error)

	// isDestination seals the interface.
	isDestination()
}

// AddressDest pays to an address.
type AddressDest struct {
	btcutil.Address
}

// PkScript returns the script paying the address.
func (d AddressDest) PkScript() ([]byte, error) {
	return txscript.PayToAddrScript(d.Address)
}

func (AddressDest) isDestination() {}

// ScriptDest pays to a raw locking script.
type ScriptDest []byte

// PkScript returns the script itself.
func (d ScriptDest) PkScript() ([]byte, error) {
	return d, nil
}

func (ScriptDest) isDestination() {}

// KeyDest pays to the address of a key ring under its current flags.
type KeyDest struct {
	*keyring.KeyRing
}

// PkScript returns the script paying the ring.
func (d KeyDest) PkScript() ([]byte, error) {
	return d.KeyRing.PkScript()
}

func (KeyDest) isDestination() {}

// A compile-time assertion to ensure the destinations are sealed.
var (
	_ Destination = AddressDest{}
	_ Destination = ScriptDest(nil)
	_ Destination = KeyDest{}
)
