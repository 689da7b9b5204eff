// Package chain adapts a Solana JSON-RPC endpoint to the settled-transfer
// view used by the transaction verifier.
package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/dmitrijs2005/premiumgate/internal/server/models"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPCClient is the subset of *rpc.Client used by SolanaLedger.
type RPCClient interface {
	GetTransaction(ctx context.Context, sig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
	GetHealth(ctx context.Context) (string, error)
}

// SolanaLedger resolves transaction signatures against a Solana cluster.
type SolanaLedger struct {
	client     RPCClient
	commitment rpc.CommitmentType
}

// newRPCClient is a seam for tests.
var newRPCClient = func(endpoint string) RPCClient {
	return rpc.New(endpoint)
}

// NewSolanaLedger connects to the RPC endpoint at url. An empty commitment
// defaults to "confirmed".
func NewSolanaLedger(url, commitment string) *SolanaLedger {
	c := rpc.CommitmentType(commitment)
	if c == "" {
		c = rpc.CommitmentConfirmed
	}
	return &SolanaLedger{client: newRPCClient(url), commitment: c}
}

// GetSettledTransfer returns the balance effects of the transaction with the
// given base58 signature, or nil when the cluster does not know it. Transport
// failures are returned as errors.
func (l *SolanaLedger) GetSettledTransfer(ctx context.Context, signature string) (*models.SettledTransfer, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}

	maxVersion := uint64(0)
	res, err := l.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     l.commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrLedgerUnavailable, err)
	}
	if res == nil || res.Meta == nil || res.Transaction == nil {
		return nil, nil
	}

	tx, err := res.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}

	keys := make(solana.PublicKeySlice, 0, len(tx.Message.AccountKeys)+len(res.Meta.LoadedAddresses.Writable)+len(res.Meta.LoadedAddresses.ReadOnly))
	keys = append(keys, tx.Message.AccountKeys...)
	keys = append(keys, res.Meta.LoadedAddresses.Writable...)
	keys = append(keys, res.Meta.LoadedAddresses.ReadOnly...)

	var settledAt time.Time
	if res.BlockTime != nil {
		settledAt = res.BlockTime.Time().UTC()
	}

	return transferFromMeta(res.Meta, keys, int(tx.Message.Header.NumRequiredSignatures), settledAt)
}

// Ping reports whether the RPC node considers itself healthy.
func (l *SolanaLedger) Ping(ctx context.Context) error {
	status, err := l.client.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrLedgerUnavailable, err)
	}
	if status != rpc.HealthOk {
		return fmt.Errorf("%w: node health %s", common.ErrLedgerUnavailable, status)
	}
	return nil
}

// transferFromMeta records the balance change of every account the
// transaction touched. The first numSigners keys are the signers, the first of
// which pays the fee.
func transferFromMeta(meta *rpc.TransactionMeta, keys solana.PublicKeySlice, numSigners int, settledAt time.Time) (*models.SettledTransfer, error) {
	if len(keys) == 0 {
		return nil, errors.New("transaction has no account keys")
	}
	if len(meta.PreBalances) != len(meta.PostBalances) || len(meta.PreBalances) > len(keys) {
		return nil, fmt.Errorf("balance arrays do not match account keys (%d pre, %d post, %d keys)",
			len(meta.PreBalances), len(meta.PostBalances), len(keys))
	}
	if numSigners < 1 || numSigners > len(keys) {
		return nil, fmt.Errorf("invalid signer count %d for %d account keys", numSigners, len(keys))
	}

	out := &models.SettledTransfer{
		Found:         true,
		Succeeded:     meta.Err == nil,
		FeePayer:      keys[0].String(),
		Signers:       make([]string, 0, numSigners),
		BalanceDeltas: make(map[string]int64, len(meta.PreBalances)),
		SettledAt:     settledAt,
	}
	for _, k := range keys[:numSigners] {
		out.Signers = append(out.Signers, k.String())
	}
	for i := range meta.PreBalances {
		out.BalanceDeltas[keys[i].String()] = int64(meta.PostBalances[i]) - int64(meta.PreBalances[i])
	}

	return out, nil
}
