// Package models defines the server-side records shared by the ledger
// adapter, repositories and services.
package models

import (
	"slices"
	"time"
)

// SettledTransfer is the ledger's view of a transaction as seen by the
// verifier. BalanceDeltas maps every account address touched by the
// transaction to its post minus pre balance in base units (lamports), so a
// payer has a negative delta. Signers lists the accounts that signed the
// transaction; FeePayer is the first of them.
type SettledTransfer struct {
	Found         bool
	Succeeded     bool
	FeePayer      string
	Signers       []string
	BalanceDeltas map[string]int64
	SettledAt     time.Time
}

// DeltaOf returns the balance change of addr and whether the transaction
// touched that account at all.
func (t *SettledTransfer) DeltaOf(addr string) (int64, bool) {
	if t == nil || t.BalanceDeltas == nil {
		return 0, false
	}
	d, ok := t.BalanceDeltas[addr]
	return d, ok
}

// SignedBy reports whether addr is one of the transaction's signers.
func (t *SettledTransfer) SignedBy(addr string) bool {
	if t == nil || addr == "" {
		return false
	}
	return slices.Contains(t.Signers, addr)
}
