package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_SealsUnderProof(t *testing.T) {
	env := newGateEnv(t)
	proof := randomBase58(t, 64)

	c, err := env.content.Publish(context.Background(), PublishRequest{
		ContentID: "report-42", Tier: "full", Teaser: "short", Plaintext: []byte("long"), Proof: proof,
	})
	require.NoError(t, err)
	assert.Equal(t, "full", c.Tier)
	assert.Contains(t, c.StorageKey, "/report-42/")

	blob, err := env.content.GetEncryptedBlob(context.Background(), "report-42")
	require.NoError(t, err)
	assert.NotContains(t, string(blob.Ciphertext), "long")

	teaser, err := env.content.GetTeaser(context.Background(), "report-42")
	require.NoError(t, err)
	assert.Equal(t, "short", teaser)

	all, err := env.content.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPublish_Validation(t *testing.T) {
	env := newGateEnv(t)
	proof := randomBase58(t, 64)

	cases := map[string]PublishRequest{
		"no id":        {Tier: "full", Teaser: "t", Plaintext: []byte("x"), Proof: proof},
		"no teaser":    {ContentID: "a", Tier: "full", Plaintext: []byte("x"), Proof: proof},
		"no body":      {ContentID: "a", Tier: "full", Teaser: "t", Proof: proof},
		"unknown tier": {ContentID: "a", Tier: "gold", Teaser: "t", Plaintext: []byte("x"), Proof: proof},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.content.Publish(context.Background(), req)
			assert.True(t, errors.Is(err, common.ErrorIncorrectContent), "got %v", err)
		})
	}

	_, err := env.content.Publish(context.Background(), PublishRequest{
		ContentID: "a", Tier: "full", Teaser: "t", Plaintext: []byte("x"), Proof: "not a signature",
	})
	assert.True(t, errors.Is(err, common.ErrMalformedInput))
}

func TestGetTeaser_NotFound(t *testing.T) {
	env := newGateEnv(t)
	_, err := env.content.GetTeaser(context.Background(), "missing")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
	_, err = env.content.GetEncryptedBlob(context.Background(), "missing")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}
