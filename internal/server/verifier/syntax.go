package verifier

import (
	"fmt"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/mr-tron/base58"
)

const (
	signatureBytes     = 64
	maxSignatureLength = 88
	addressBytes       = 32
	minAddressLength   = 32
	maxAddressLength   = 44
)

// ValidateSignature checks that s is a base58 encoded 64-byte transaction
// signature. It never contacts the ledger.
func ValidateSignature(s string) error {
	if len(s) == 0 || len(s) > maxSignatureLength {
		return fmt.Errorf("%w: signature length %d", common.ErrMalformedInput, len(s))
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("%w: signature is not base58", common.ErrMalformedInput)
	}
	if len(raw) != signatureBytes {
		return fmt.Errorf("%w: signature decodes to %d bytes", common.ErrMalformedInput, len(raw))
	}
	return nil
}

// ValidateAddress checks that s is a base58 encoded 32-byte account address.
func ValidateAddress(s string) error {
	if len(s) < minAddressLength || len(s) > maxAddressLength {
		return fmt.Errorf("%w: address length %d", common.ErrMalformedInput, len(s))
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("%w: address is not base58", common.ErrMalformedInput)
	}
	if len(raw) != addressBytes {
		return fmt.Errorf("%w: address decodes to %d bytes", common.ErrMalformedInput, len(raw))
	}
	return nil
}
