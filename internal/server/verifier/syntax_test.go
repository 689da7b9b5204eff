package verifier

import (
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestValidateSignature(t *testing.T) {
	good := randomBase58(t, 64)
	assert.NoError(t, ValidateSignature(good))

	for _, s := range []string{"", strings.Repeat("1", 89), "abc+def", randomBase58(t, 63)} {
		err := ValidateSignature(s)
		assert.Error(t, err, s)
		assert.True(t, errors.Is(err, common.ErrMalformedInput))
	}
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress(randomBase58(t, 32)))
	assert.NoError(t, ValidateAddress("11111111111111111111111111111111"))

	for _, s := range []string{"", "short", strings.Repeat("z", 45), randomBase58(t, 31)} {
		err := ValidateAddress(s)
		assert.Error(t, err, s)
		assert.True(t, errors.Is(err, common.ErrMalformedInput))
	}
}
