// Package grants stores the access ledger: which content item each consumed
// payment proof unlocked.
//
// A proof may unlock exactly one content item. Presenting it again for the
// same item is idempotent; presenting it for a different item is a replay
// and is rejected. Entries are keyed by common.ProofDigest, so the proof
// itself is never persisted.
package grants

import (
	"context"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/server/models"
)

// Outcome is the result of TryGrant.
type Outcome int

const (
	// NewGrant means the proof was unused and is now bound to the content.
	NewGrant Outcome = iota + 1
	// AlreadyGrantedSame means the proof was already bound to this content.
	AlreadyGrantedSame
	// ConflictDifferentContent means the proof is bound to another content
	// item. Nothing was written.
	ConflictDifferentContent
)

func (o Outcome) String() string {
	switch o {
	case NewGrant:
		return "new_grant"
	case AlreadyGrantedSame:
		return "already_granted_same"
	case ConflictDifferentContent:
		return "conflict_different_content"
	default:
		return "unknown"
	}
}

// Granted reports whether the outcome allows the content to be released.
func (o Outcome) Granted() bool {
	return o == NewGrant || o == AlreadyGrantedSame
}

// Repository is the access ledger.
type Repository interface {
	// TryGrant atomically binds proof to contentID unless the proof is
	// already bound. The returned Grant is the stored entry: the new one, or
	// the existing one for AlreadyGrantedSame and ConflictDifferentContent.
	TryGrant(ctx context.Context, proof, contentID string, now time.Time) (models.Grant, Outcome, error)

	// Lookup returns the entry for proof, or common.ErrorNotFound.
	Lookup(ctx context.Context, proof string) (*models.Grant, error)

	// PurgeExpired removes entries granted before cutoff and returns how many
	// were removed.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

func outcomeFor(existing models.Grant, contentID string) Outcome {
	if existing.ContentID == contentID {
		return AlreadyGrantedSame
	}
	return ConflictDifferentContent
}
