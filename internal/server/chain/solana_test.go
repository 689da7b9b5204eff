package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRPC struct {
	res       *rpc.GetTransactionResult
	err       error
	health    string
	healthErr error

	gotSig  solana.Signature
	gotOpts *rpc.GetTransactionOpts
}

func (f *fakeRPC) GetTransaction(ctx context.Context, sig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
	f.gotSig = sig
	f.gotOpts = opts
	return f.res, f.err
}

func (f *fakeRPC) GetHealth(ctx context.Context) (string, error) {
	return f.health, f.healthErr
}

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	pk, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return pk.PublicKey()
}

func newLedger(f *fakeRPC) *SolanaLedger {
	orig := newRPCClient
	newRPCClient = func(string) RPCClient { return f }
	defer func() { newRPCClient = orig }()
	return NewSolanaLedger("http://localhost:8899", "")
}

func envelope(t *testing.T, sig solana.Signature, keys ...solana.PublicKey) *rpc.TransactionResultEnvelope {
	t.Helper()
	return signedEnvelope(t, []solana.Signature{sig}, keys...)
}

// signedEnvelope builds a transaction whose first len(sigs) keys are signers.
func signedEnvelope(t *testing.T, sigs []solana.Signature, keys ...solana.PublicKey) *rpc.TransactionResultEnvelope {
	t.Helper()
	tx := &solana.Transaction{
		Signatures: sigs,
		Message: solana.Message{
			Header:      solana.MessageHeader{NumRequiredSignatures: uint8(len(sigs))},
			AccountKeys: keys,
		},
	}
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)

	payload, err := json.Marshal([]string{base64.StdEncoding.EncodeToString(raw), string(solana.EncodingBase64)})
	require.NoError(t, err)

	env := new(rpc.TransactionResultEnvelope)
	require.NoError(t, env.UnmarshalJSON(payload))
	return env
}

func TestNewSolanaLedger_DefaultsCommitment(t *testing.T) {
	l := newLedger(&fakeRPC{})
	assert.Equal(t, rpc.CommitmentConfirmed, l.commitment)
}

func TestGetSettledTransfer_ParsesBalanceChanges(t *testing.T) {
	payer, payee, program := newKey(t), newKey(t), newKey(t)
	sig := solana.SignatureFromBytes(make([]byte, 64))
	sig[0] = 7

	blockTime := solana.UnixTimeSeconds(1_700_000_000)
	f := &fakeRPC{res: &rpc.GetTransactionResult{
		BlockTime:   &blockTime,
		Transaction: envelope(t, sig, payer, payee, program),
		Meta: &rpc.TransactionMeta{
			PreBalances:  []uint64{2_000_000_000, 10, 1},
			PostBalances: []uint64{1_499_995_000, 500_000_010, 1},
		},
	}}
	l := newLedger(f)

	got, err := l.GetSettledTransfer(context.Background(), sig.String())
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.True(t, got.Found)
	assert.True(t, got.Succeeded)
	assert.Equal(t, payer.String(), got.FeePayer)
	assert.Equal(t, []string{payer.String()}, got.Signers)
	assert.Equal(t, map[string]int64{
		payer.String():   -500_005_000,
		payee.String():   500_000_000,
		program.String(): 0,
	}, got.BalanceDeltas)
	assert.Equal(t, time.Unix(1_700_000_000, 0).UTC(), got.SettledAt)

	assert.Equal(t, sig, f.gotSig)
	require.NotNil(t, f.gotOpts)
	assert.Equal(t, solana.EncodingBase64, f.gotOpts.Encoding)
	require.NotNil(t, f.gotOpts.MaxSupportedTransactionVersion)
}

func TestGetSettledTransfer_LoadedAddressesExtendKeys(t *testing.T) {
	payer, lookupPayee := newKey(t), newKey(t)
	sig := solana.SignatureFromBytes(make([]byte, 64))

	f := &fakeRPC{res: &rpc.GetTransactionResult{
		Transaction: envelope(t, sig, payer),
		Meta: &rpc.TransactionMeta{
			PreBalances:     []uint64{1_000, 0},
			PostBalances:    []uint64{400, 500},
			LoadedAddresses: rpc.LoadedAddresses{Writable: solana.PublicKeySlice{lookupPayee}},
		},
	}}

	got, err := newLedger(f).GetSettledTransfer(context.Background(), sig.String())
	require.NoError(t, err)
	d, ok := got.DeltaOf(lookupPayee.String())
	require.True(t, ok)
	assert.Equal(t, int64(500), d)
}

func TestGetSettledTransfer_KeepsEveryCredit(t *testing.T) {
	payer, merchant, bigger := newKey(t), newKey(t), newKey(t)
	sig := solana.SignatureFromBytes(make([]byte, 64))

	f := &fakeRPC{res: &rpc.GetTransactionResult{
		Transaction: envelope(t, sig, payer, bigger, merchant),
		Meta: &rpc.TransactionMeta{
			PreBalances:  []uint64{5_000_000_000, 0, 0},
			PostBalances: []uint64{1_999_995_000, 2_000_000_000, 1_000_000_000},
		},
	}}

	got, err := newLedger(f).GetSettledTransfer(context.Background(), sig.String())
	require.NoError(t, err)

	d, ok := got.DeltaOf(merchant.String())
	require.True(t, ok)
	assert.Equal(t, int64(1_000_000_000), d, "smaller credit is still reported for its own account")
	d, _ = got.DeltaOf(bigger.String())
	assert.Equal(t, int64(2_000_000_000), d)
}

func TestGetSettledTransfer_MultipleSigners(t *testing.T) {
	sponsor, wallet, merchant := newKey(t), newKey(t), newKey(t)
	sigs := []solana.Signature{solana.SignatureFromBytes(make([]byte, 64)), solana.SignatureFromBytes(make([]byte, 64))}
	sigs[1][0] = 1

	f := &fakeRPC{res: &rpc.GetTransactionResult{
		Transaction: signedEnvelope(t, sigs, sponsor, wallet, merchant),
		Meta: &rpc.TransactionMeta{
			PreBalances:  []uint64{1_000_000, 900_000_000, 0},
			PostBalances: []uint64{995_000, 400_000_000, 500_000_000},
		},
	}}

	got, err := newLedger(f).GetSettledTransfer(context.Background(), sigs[0].String())
	require.NoError(t, err)
	assert.Equal(t, sponsor.String(), got.FeePayer)
	assert.True(t, got.SignedBy(sponsor.String()))
	assert.True(t, got.SignedBy(wallet.String()))
	assert.False(t, got.SignedBy(merchant.String()))
}

func TestGetSettledTransfer_FailedTransaction(t *testing.T) {
	payer, payee := newKey(t), newKey(t)
	sig := solana.SignatureFromBytes(make([]byte, 64))

	f := &fakeRPC{res: &rpc.GetTransactionResult{
		Transaction: envelope(t, sig, payer, payee),
		Meta: &rpc.TransactionMeta{
			Err:          map[string]any{"InstructionError": []any{0, "Custom"}},
			PreBalances:  []uint64{1_000, 0},
			PostBalances: []uint64{995, 0},
		},
	}}

	got, err := newLedger(f).GetSettledTransfer(context.Background(), sig.String())
	require.NoError(t, err)
	assert.True(t, got.Found)
	assert.False(t, got.Succeeded)
	d, ok := got.DeltaOf(payee.String())
	assert.True(t, ok)
	assert.Zero(t, d)
}

func TestGetSettledTransfer_NotFound(t *testing.T) {
	sig := solana.SignatureFromBytes(make([]byte, 64))

	got, err := newLedger(&fakeRPC{err: rpc.ErrNotFound}).GetSettledTransfer(context.Background(), sig.String())
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = newLedger(&fakeRPC{}).GetSettledTransfer(context.Background(), sig.String())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetSettledTransfer_TransportError(t *testing.T) {
	sig := solana.SignatureFromBytes(make([]byte, 64))

	_, err := newLedger(&fakeRPC{err: errors.New("connection refused")}).GetSettledTransfer(context.Background(), sig.String())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrLedgerUnavailable))

	_, err = newLedger(&fakeRPC{err: context.DeadlineExceeded}).GetSettledTransfer(context.Background(), sig.String())
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "deadline stays visible to the verifier")
}

func TestGetSettledTransfer_BadSignature(t *testing.T) {
	_, err := newLedger(&fakeRPC{}).GetSettledTransfer(context.Background(), "not-base58-0OIl")
	require.Error(t, err)
}

func TestTransferFromMeta_MismatchedBalances(t *testing.T) {
	keys := solana.PublicKeySlice{newKey(t)}
	_, err := transferFromMeta(&rpc.TransactionMeta{PreBalances: []uint64{1, 2}, PostBalances: []uint64{1}}, keys, 1, time.Time{})
	require.Error(t, err)

	_, err = transferFromMeta(&rpc.TransactionMeta{}, nil, 1, time.Time{})
	require.Error(t, err)

	_, err = transferFromMeta(&rpc.TransactionMeta{}, keys, 0, time.Time{})
	require.Error(t, err, "a transaction always has a fee payer")

	_, err = transferFromMeta(&rpc.TransactionMeta{}, keys, 2, time.Time{})
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	require.NoError(t, newLedger(&fakeRPC{health: rpc.HealthOk}).Ping(context.Background()))
	err := newLedger(&fakeRPC{health: "behind"}).Ping(context.Background())
	assert.True(t, errors.Is(err, common.ErrLedgerUnavailable))
	require.Error(t, newLedger(&fakeRPC{healthErr: errors.New("down")}).Ping(context.Background()))
}
