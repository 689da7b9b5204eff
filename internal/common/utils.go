package common

import (
	"crypto/sha256"
	"encoding/hex"
)

// WipeByteArray overwrites the contents of b with zeros. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ProofDigest returns the hex sha256 of a payment proof. It is the only form in
// which proofs are persisted.
func ProofDigest(proof string) string {
	sum := sha256.Sum256([]byte("premiumgate/proof/" + proof))
	return hex.EncodeToString(sum[:])
}

// ProofRef is a short, non-reversible reference to a proof, safe for logs.
func ProofRef(proof string) string {
	return ProofDigest(proof)[:8]
}
