package mtx

import (
	"context"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcmtx/inputscript"
	"github.com/btcsuite/btcmtx/keyring"
	"github.com/btcsuite/btcmtx/workers"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const coinValue = 100_000

// multisigScript returns a 2-of-3 multisig over the keys with the given
// seeds.
func multisigScript(t *testing.T, seeds ...byte) []byte {
	t.Helper()

	builder := txscript.NewScriptBuilder().AddOp(txscript.OP_2)
	for _, seed := range seeds {
		builder.AddData(testRing(seed).PublicKey())
	}
	script, err := builder.
		AddOp(txscript.OP_3).
		AddOp(txscript.OP_CHECKMULTISIG).
		Script()
	require.NoError(t, err)

	return script
}

// payToPubKey returns <pub> OP_CHECKSIG for ring.
func payToPubKey(t *testing.T, ring *keyring.KeyRing) []byte {
	t.Helper()

	script, err := txscript.NewScriptBuilder().
		AddData(ring.PublicKey()).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	require.NoError(t, err)

	return script
}

// signCase is an output pattern and the signers that can spend it.
type signCase struct {
	name    string
	prev    []byte
	signers []Signer
}

// signCases returns a case for every supported output pattern. Every case
// uses distinct keys.
func signCases(t *testing.T) []signCase {
	t.Helper()

	ms := multisigScript(t, 10, 11, 12)
	p2pkh := pkScriptOf(t, testRing(8))
	p2pk := payToPubKey(t, testRing(9))

	// msSigners returns rings for keys 10 and 12 holding ms, adjusted
	// by flags.
	msSigners := func(flags func(*keyring.KeyRing) *keyring.KeyRing) (
		[]byte, []Signer) {

		first := flags(testRing(10).SetScript(ms))
		second := flags(testRing(12).SetScript(ms))

		return pkScriptOf(t, first), []Signer{first, second}
	}
	noFlags := func(k *keyring.KeyRing) *keyring.KeyRing { return k }
	witness := func(k *keyring.KeyRing) *keyring.KeyRing {
		return k.SetWitness(true)
	}
	nested := func(k *keyring.KeyRing) *keyring.KeyRing {
		return k.SetNested(true)
	}

	p2shMS, p2shSigners := msSigners(noFlags)
	p2wshMS, p2wshSigners := msSigners(witness)
	nestedMS, nestedSigners := msSigners(nested)

	p2shP2PKH := testRing(8).SetScript(p2pkh)
	p2shP2PK := testRing(9).SetScript(p2pk)

	return []signCase{
		{
			name:    "pubkey",
			prev:    p2pk,
			signers: []Signer{testRing(9)},
		},
		{
			name:    "pubkey hash",
			prev:    p2pkh,
			signers: []Signer{testRing(8)},
		},
		{
			name:    "bare multisig",
			prev:    ms,
			signers: []Signer{testRing(10), testRing(12)},
		},
		{
			name:    "script hash pubkey",
			prev:    pkScriptOf(t, p2shP2PK),
			signers: []Signer{p2shP2PK},
		},
		{
			name:    "script hash pubkey hash",
			prev:    pkScriptOf(t, p2shP2PKH),
			signers: []Signer{p2shP2PKH},
		},
		{
			name:    "script hash multisig",
			prev:    p2shMS,
			signers: p2shSigners,
		},
		{
			name:    "witness pubkey hash",
			prev:    pkScriptOf(t, testRing(13).SetWitness(true)),
			signers: []Signer{testRing(13).SetWitness(true)},
		},
		{
			name:    "witness script hash multisig",
			prev:    p2wshMS,
			signers: p2wshSigners,
		},
		{
			name:    "nested witness pubkey hash",
			prev:    pkScriptOf(t, testRing(14).SetNested(true)),
			signers: []Signer{testRing(14).SetNested(true)},
		},
		{
			name:    "nested witness script hash multisig",
			prev:    nestedMS,
			signers: nestedSigners,
		},
	}
}

// spendOf returns a transaction spending a single coin locked by prev.
func spendOf(t *testing.T, prev []byte, opts ...Option) *MTX {
	t.Helper()

	m := New(opts...)
	_, err := m.AddCoin(testCoin(t, 1, coinValue, prev, 100))
	require.NoError(t, err)
	_, err = m.AddOutput(KeyDest{testRing(1)}, coinValue-1_000)
	require.NoError(t, err)

	return m
}

// TestSignPatterns signs every supported pattern and runs the result
// through the script engine.
func TestSignPatterns(t *testing.T) {
	t.Parallel()

	for _, tc := range signCases(t) {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Arrange.
			m := spendOf(t, tc.prev)

			// Act.
			total, err := m.Sign(
				context.Background(), tc.signers,
				txscript.SigHashAll,
			)

			// Assert.
			require.NoError(t, err)
			require.Positive(t, total)
			require.True(t, m.IsSigned())
			verifyInputs(t, m)
		})
	}
}

// TestSignAllPatternsOnGroup signs a transaction spending every pattern at
// once on a worker group.
func TestSignAllPatternsOnGroup(t *testing.T) {
	t.Parallel()

	m := New(WithPool(workers.NewGroup(2)))

	var signers []Signer
	for i, tc := range signCases(t) {
		_, err := m.AddCoin(testCoin(t, byte(i+1), coinValue, tc.prev,
			100))
		require.NoError(t, err)

		signers = append(signers, tc.signers...)
	}
	_, err := m.AddOutput(KeyDest{testRing(1)}, coinValue)
	require.NoError(t, err)

	_, err = m.Sign(context.Background(), signers, txscript.SigHashAll)
	require.NoError(t, err)
	require.True(t, m.IsSigned())
	verifyInputs(t, m)
}

// TestSignCountsCompletedInputs checks that a multisig input only counts
// once it holds enough signatures.
func TestSignCountsCompletedInputs(t *testing.T) {
	t.Parallel()

	ms := multisigScript(t, 1, 2, 3)

	m := New()
	_, err := m.AddCoin(testCoin(t, 1, coinValue, ms, 100))
	require.NoError(t, err)
	_, err = m.AddCoin(testCoin(t, 2, coinValue,
		pkScriptOf(t, testRing(5)), 100))
	require.NoError(t, err)
	_, err = m.AddOutput(KeyDest{testRing(6)}, coinValue)
	require.NoError(t, err)

	total, err := m.Sign(
		context.Background(), []Signer{testRing(1)}, txscript.SigHashAll,
	)
	require.NoError(t, err)
	require.Zero(t, total)

	signed, err := m.IsInputSigned(0)
	require.NoError(t, err)
	require.False(t, signed)

	// The partial signature is kept.
	txIn, err := m.Input(0)
	require.NoError(t, err)
	require.NotEmpty(t, txIn.SignatureScript)

	total, err = m.Sign(
		context.Background(), []Signer{testRing(3), testRing(5)},
		txscript.SigHashAll,
	)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.True(t, m.IsSigned())
	verifyInputs(t, m)
}

// TestSignSkips checks that unresolved and foreign inputs are skipped
// without failing the batch.
func TestSignSkips(t *testing.T) {
	t.Parallel()

	m := New()
	m.AddOutpoint(wire.OutPoint{Hash: chainhash.Hash{0x77}})
	_, err := m.AddCoin(testCoin(t, 1, coinValue,
		pkScriptOf(t, testRing(1)), 100))
	require.NoError(t, err)
	_, err = m.AddCoin(testCoin(t, 2, coinValue,
		pkScriptOf(t, testRing(2)), 100))
	require.NoError(t, err)
	_, err = m.AddOutput(KeyDest{testRing(3)}, coinValue)
	require.NoError(t, err)

	total, err := m.Sign(
		context.Background(), []Signer{testRing(1), testRing(9)},
		txscript.SigHashAll,
	)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.False(t, m.IsSigned())

	for i, expected := range []bool{false, true, false} {
		signed, err := m.IsInputSigned(i)
		require.NoError(t, err)
		require.Equal(t, expected, signed, "input %d", i)
	}
}

// TestSignWatchOnly checks that a ring without a private key fails signing
// and leaves the transaction untouched.
func TestSignWatchOnly(t *testing.T) {
	t.Parallel()

	priv, err := testRing(1).PrivateKey()
	require.NoError(t, err)
	watch := keyring.FromPublicKey(priv.PubKey(), testParams)

	m := spendOf(t, pkScriptOf(t, watch))

	_, err = m.Sign(context.Background(), []Signer{watch},
		txscript.SigHashAll)
	require.ErrorIs(t, err, keyring.ErrNoPrivateKey)

	txIn, err := m.Input(0)
	require.NoError(t, err)
	require.Empty(t, txIn.SignatureScript)
}

// TestSignPoolFailure checks that a failing pool aborts signing without
// touching the transaction.
func TestSignPoolFailure(t *testing.T) {
	t.Parallel()

	errPool := errors.New("pool closed")
	pool := &mockPool{}
	pool.On("Do", mock.Anything, mock.Anything).Return(errPool)

	m := spendOf(t, pkScriptOf(t, testRing(1)), WithPool(pool))

	_, err := m.Sign(context.Background(), []Signer{testRing(1)},
		txscript.SigHashAll)
	require.ErrorIs(t, err, errPool)
	require.False(t, m.IsSigned())
	pool.AssertNumberOfCalls(t, "Do", 1)
}

// TestTemplateAndSignInput checks the single input entry points.
func TestTemplateAndSignInput(t *testing.T) {
	t.Parallel()

	ring := testRing(1)
	m := spendOf(t, pkScriptOf(t, ring))

	// Signing before templating is a precondition violation.
	_, err := m.SignInput(0, ring, txscript.SigHashAll)
	require.ErrorIs(t, err, inputscript.ErrNotTemplated)

	ok, err := m.TemplateInput(0, testRing(2))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = m.TemplateInput(0, ring)
	require.NoError(t, err)
	require.True(t, ok)

	signed, err := m.SignInput(0, ring, txscript.SigHashAll)
	require.NoError(t, err)
	require.True(t, signed)
	verifyInputs(t, m)

	_, err = m.SignInput(1, ring, txscript.SigHashAll)
	require.ErrorIs(t, err, ErrInputNotFound)

	// An input without a coin cannot be signed on its own.
	m.AddOutpoint(wire.OutPoint{Hash: chainhash.Hash{0x55}})
	_, err = m.SignInput(1, ring, txscript.SigHashAll)
	require.ErrorIs(t, err, ErrMissingCoin)
}

// TestTemplateCount checks Template counts the inputs it templated.
func TestTemplateCount(t *testing.T) {
	t.Parallel()

	m := New()
	for i, seed := range []byte{1, 1, 2} {
		_, err := m.AddCoin(testCoin(t, byte(i+1), coinValue,
			pkScriptOf(t, testRing(seed)), 100))
		require.NoError(t, err)
	}

	total, err := m.Template(testRing(1))
	require.NoError(t, err)
	require.Equal(t, 2, total)

	total, err = m.Template(testRing(2), testRing(3))
	require.NoError(t, err)
	require.Equal(t, 1, total)

	// Templates are complete but hold no signatures yet.
	require.False(t, m.IsSigned())
}

// TestSignBatch signs several transactions concurrently.
func TestSignBatch(t *testing.T) {
	t.Parallel()

	ring := testRing(1)
	script := pkScriptOf(t, ring)

	txs := make([]*MTX, 4)
	for i := range txs {
		m := New()
		_, err := m.AddCoin(testCoin(t, byte(i+1), btcutil.Amount(
			coinValue+i), script, 100))
		require.NoError(t, err)
		_, err = m.AddOutput(KeyDest{testRing(2)}, coinValue-1_000)
		require.NoError(t, err)

		txs[i] = m
	}

	counts, err := SignBatch(
		context.Background(), txs, []Signer{ring}, txscript.SigHashAll,
		2,
	)
	require.NoError(t, err)
	require.Equal(t, []int{1, 1, 1, 1}, counts)

	for _, m := range txs {
		require.True(t, m.IsSigned())
		verifyInputs(t, m)
	}
}
