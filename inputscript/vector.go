// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package inputscript

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

var (
	// ErrNotTemplated is returned when an input is signed before its
	// unlocking vector was templated, or when the vector holds data in a
	// slot that should be an empty placeholder.
	ErrNotTemplated = errors.New("input has not been templated")

	// ErrMalformedVector is returned when an input's signature script
	// contains anything but data pushes.
	ErrMalformedVector = errors.New("signature script is not push only")
)

// Slot identifies where an unlocking vector is serialized.
type Slot uint8

const (
	// SlotScript is the legacy signature script.
	SlotScript Slot = iota

	// SlotWitness is the segregated witness stack.
	SlotWitness
)

// String returns a human-readable name for the slot.
func (s Slot) String() string {
	if s == SlotWitness {
		return "witness"
	}

	return "script"
}

// Vector is an unlocking stack bound to the input it serializes into. An
// optional redeem script is kept apart from the items and always serialized
// last. Every mutation is written back to the input immediately.
type Vector struct {
	txIn   *wire.TxIn
	slot   Slot
	items  [][]byte
	redeem []byte
}

// OpenVector parses the current contents of slot. When hasRedeem is set the
// last item is split off as the redeem script.
func OpenVector(txIn *wire.TxIn, slot Slot, hasRedeem bool) (*Vector, error) {
	var items [][]byte
	switch slot {
	case SlotWitness:
		items = make([][]byte, 0, len(txIn.Witness))
		for _, item := range txIn.Witness {
			items = append(items, append([]byte{}, item...))
		}

	default:
		var err error
		items, err = parsePushes(txIn.SignatureScript)
		if err != nil {
			return nil, err
		}
	}

	v := &Vector{txIn: txIn, slot: slot, items: items}
	if !hasRedeem {
		return v, nil
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: missing redeem script in %v",
			ErrNotTemplated, slot)
	}

	v.redeem = items[len(items)-1]
	v.items = items[:len(items)-1]

	return v, nil
}

// Slot returns where the vector is serialized.
func (v *Vector) Slot() Slot {
	return v.slot
}

// Len returns the number of items, excluding the redeem script.
func (v *Vector) Len() int {
	return len(v.items)
}

// Item returns the item at index i.
func (v *Vector) Item(i int) []byte {
	return v.items[i]
}

// Items returns a copy of the items, excluding the redeem script.
func (v *Vector) Items() [][]byte {
	items := make([][]byte, len(v.items))
	copy(items, v.items)

	return items
}

// Redeem returns the trailing redeem script, or nil.
func (v *Vector) Redeem() []byte {
	return v.redeem
}

// set replaces item i and writes the vector back.
func (v *Vector) set(i int, item []byte) error {
	v.items[i] = item
	return v.flush()
}

// push appends an item and writes the vector back.
func (v *Vector) push(item []byte) error {
	v.items = append(v.items, item)
	return v.flush()
}

// remove deletes item i without writing the vector back.
func (v *Vector) remove(i int) {
	v.items = append(v.items[:i], v.items[i+1:]...)
}

// pop drops the last item without writing the vector back.
func (v *Vector) pop() {
	v.items = v.items[:len(v.items)-1]
}

// flush serializes the items and the redeem script into the input.
func (v *Vector) flush() error {
	all := v.items
	if v.redeem != nil {
		all = append(append([][]byte{}, v.items...), v.redeem)
	}

	if v.slot == SlotWitness {
		witness := make(wire.TxWitness, 0, len(all))
		for _, item := range all {
			witness = append(witness, append([]byte{}, item...))
		}
		v.txIn.Witness = witness

		return nil
	}

	builder := txscript.NewScriptBuilder()
	for _, item := range all {
		builder.AddData(item)
	}

	script, err := builder.Script()
	if err != nil {
		return fmt.Errorf("encode signature script: %w", err)
	}
	v.txIn.SignatureScript = script

	return nil
}

// parsePushes decodes a push-only script into its stack items. Small integer
// opcodes decode to their minimal numeric encoding, mirroring how
// ScriptBuilder.AddData encodes them.
func parsePushes(script []byte) ([][]byte, error) {
	var items [][]byte

	tokenizer := txscript.MakeScriptTokenizer(0, script)
	for tokenizer.Next() {
		op := tokenizer.Opcode()

		switch {
		case op == txscript.OP_0:
			items = append(items, []byte{})

		case op == txscript.OP_1NEGATE:
			items = append(items, []byte{0x81})

		case op >= txscript.OP_1 && op <= txscript.OP_16:
			items = append(items, []byte{op - (txscript.OP_1 - 1)})

		case op <= txscript.OP_PUSHDATA4:
			items = append(items, append([]byte{}, tokenizer.Data()...))

		default:
			return nil, fmt.Errorf("%w: opcode 0x%02x",
				ErrMalformedVector, op)
		}
	}

	if err := tokenizer.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVector, err)
	}

	return items, nil
}
