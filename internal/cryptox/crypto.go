// Package cryptox implements proof-keyed authenticated encryption of premium
// content.
//
// The content key is derived from the payment proof alone, so no key is ever
// stored. Each EncryptedBlob carries a fingerprint of the derived key, which
// lets Decrypt reject an obviously wrong proof before touching the
// ciphertext. The fingerprint is a hash of the derived key, never of the
// proof itself.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Supported algorithm identifiers stored in EncryptedBlob.AlgorithmID.
const (
	AlgAES256GCM         = "AES-256-GCM"
	AlgXChaCha20Poly1305 = "XCHACHA20-POLY1305"
)

const (
	keySize         = 32
	keyInfo         = "premiumgate/content-key/v1"
	fingerprintInfo = "premiumgate/key-fingerprint/v1"
)

// EncryptedBlob is the at-rest form of a premium content item.
type EncryptedBlob struct {
	Ciphertext     []byte `json:"ciphertext"`
	IV             []byte `json:"iv"`
	KeyFingerprint []byte `json:"key_fingerprint"`
	AlgorithmID    string `json:"algorithm_id"`
}

// DecryptionError reports a blob that could not be opened with the given
// proof: wrong key, tampered data or an unusable blob.
type DecryptionError struct {
	Reason string
}

func (e *DecryptionError) Error() string {
	return "decryption failed: " + e.Reason
}

// Engine seals and opens EncryptedBlobs. It holds no key material and is safe
// for concurrent use.
type Engine struct {
	algorithm string
	rand      io.Reader
}

// NewEngine returns an Engine that encrypts with the given algorithm. An empty
// algorithm selects AES-256-GCM. Decrypt accepts every supported algorithm
// regardless of this setting.
func NewEngine(algorithm string) (*Engine, error) {
	if algorithm == "" {
		algorithm = AlgAES256GCM
	}
	if _, err := newAEAD(algorithm, make([]byte, keySize)); err != nil {
		return nil, err
	}
	return &Engine{algorithm: algorithm, rand: rand.Reader}, nil
}

// Algorithm returns the identifier used for new blobs.
func (e *Engine) Algorithm() string {
	return e.algorithm
}

// DeriveKey derives the 256-bit content key from a payment proof with
// HKDF-SHA256. The same proof always yields the same key.
func DeriveKey(proof string) []byte {
	key := make([]byte, keySize)
	r := hkdf.New(sha256.New, []byte(proof), nil, []byte(keyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only fails after 255*hash-size bytes.
		panic(err)
	}
	return key
}

// Fingerprint returns a one-way fingerprint of a derived key.
func Fingerprint(key []byte) []byte {
	h := sha256.New()
	h.Write([]byte(fingerprintInfo))
	h.Write(key)
	return h.Sum(nil)
}

// Encrypt seals plaintext under the key derived from proof. A fresh random
// nonce is drawn for every call.
func (e *Engine) Encrypt(plaintext []byte, proof string) (*EncryptedBlob, error) {
	key := DeriveKey(proof)
	defer common.WipeByteArray(key)

	aead, err := newAEAD(e.algorithm, key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(e.rand, nonce); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}

	fingerprint := Fingerprint(key)

	return &EncryptedBlob{
		Ciphertext:     aead.Seal(nil, nonce, plaintext, additionalData(e.algorithm, fingerprint)),
		IV:             nonce,
		KeyFingerprint: fingerprint,
		AlgorithmID:    e.algorithm,
	}, nil
}

// Decrypt opens blob with the key derived from proof. Every failure is a
// *DecryptionError.
func (e *Engine) Decrypt(blob *EncryptedBlob, proof string) ([]byte, error) {
	if blob == nil {
		return nil, &DecryptionError{Reason: "missing blob"}
	}

	key := DeriveKey(proof)
	defer common.WipeByteArray(key)

	if subtle.ConstantTimeCompare(Fingerprint(key), blob.KeyFingerprint) != 1 {
		return nil, &DecryptionError{Reason: "key fingerprint mismatch"}
	}

	aead, err := newAEAD(blob.AlgorithmID, key)
	if err != nil {
		return nil, &DecryptionError{Reason: err.Error()}
	}
	if len(blob.IV) != aead.NonceSize() {
		return nil, &DecryptionError{Reason: "invalid nonce size"}
	}

	plaintext, err := aead.Open(nil, blob.IV, blob.Ciphertext, additionalData(blob.AlgorithmID, blob.KeyFingerprint))
	if err != nil {
		return nil, &DecryptionError{Reason: "authentication failed"}
	}
	return plaintext, nil
}

func newAEAD(algorithm string, key []byte) (cipher.AEAD, error) {
	switch algorithm {
	case AlgAES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case AlgXChaCha20Poly1305:
		return chacha20poly1305.NewX(key)
	default:
		return nil, fmt.Errorf("unsupported algorithm %q", algorithm)
	}
}

// additionalData binds the algorithm and fingerprint to the ciphertext so
// neither can be swapped without failing authentication.
func additionalData(algorithm string, fingerprint []byte) []byte {
	ad := make([]byte, 0, len(algorithm)+1+len(fingerprint))
	ad = append(ad, algorithm...)
	ad = append(ad, 0)
	return append(ad, fingerprint...)
}
