// Package auth issues and checks the HS256 tokens that protect the content
// publishing endpoint.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims plus the publisher identity.
type Claims struct {
	jwt.RegisteredClaims
	Publisher string `json:"publisher"`
}

const issuer = common.ServiceName

// GenerateToken signs a publisher token valid for validity.
func GenerateToken(publisher string, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		Publisher: publisher,
	})

	return token.SignedString(secretKey)
}

// PublisherFromToken validates tokenString and returns the publisher it was
// issued to. Expired tokens yield common.ErrTokenExpired, anything else that
// does not verify yields common.ErrInvalidToken.
func PublisherFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Publisher == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Publisher, nil
}
