package models

import "time"

// Grant is one access ledger entry. The proof itself is never stored; the
// entry is keyed by its digest.
type Grant struct {
	ProofDigest string    `db:"proof_digest"`
	ContentID   string    `db:"content_id"`
	GrantedAt   time.Time `db:"granted_at"`
}
