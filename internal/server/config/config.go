// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/server/httpapi"
	"github.com/dmitrijs2005/premiumgate/internal/server/tiers"
	"github.com/dmitrijs2005/premiumgate/internal/server/verifier"
)

// Config holds runtime settings for the premiumgate server.
//
// Fields:
//   - EndpointAddrHTTP / EndpointAddrGRPC: bind addresses for the public API
//     and the gRPC health endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps grants and content in memory.
//   - LedgerURL / Commitment: Solana JSON-RPC endpoint and commitment level.
//   - Recipient: address every payment must be sent to.
//   - Currency / Decimals / Tiers: the price table, prices in whole units.
//   - Tolerance: shortfall accepted on a payment, in base units.
//   - LedgerDeadline: upper bound for one ledger query.
//   - GrantRetention / CleanupInterval: how long grants live and how often
//     expired ones are purged. Proofs older than the retention are refused.
//   - AdminSecret: HMAC secret for publisher JWTs (HS256).
//   - S3*: object storage for sealed bodies. Empty bucket keeps them in memory.
//   - RateLimitRPS / RateLimitBurst: per-client limit on unlock routes.
//   - TrustedProxies: IPs or CIDR ranges whose forwarding headers name the
//     client for rate limiting. Empty keys clients on the peer address.
//   - Algorithm: AEAD used for newly published content.
type Config struct {
	EndpointAddrHTTP string
	EndpointAddrGRPC string
	DatabaseDSN      string
	LedgerURL        string
	Commitment       string
	Recipient        string
	Currency         string
	Decimals         int
	Tiers            []tiers.Spec
	Tolerance        uint64
	LedgerDeadline   time.Duration
	ProbeInterval    time.Duration
	GrantRetention   time.Duration
	CleanupInterval  time.Duration
	AdminSecret      string
	S3AccessKey      string
	S3SecretKey      string
	S3Bucket         string
	S3Region         string
	S3BaseEndpoint   string
	RateLimitRPS     float64
	RateLimitBurst   int
	TrustedProxies   []string
	Algorithm        string
	LogFormat        string
}

// defaultAdminSecret is a placeholder Validate refuses, so a deployment has
// to choose its own.
const defaultAdminSecret = "secretKey"

// LoadDefaults populates Config with development defaults.
// NOTE: AdminSecret and Recipient must be set explicitly.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.LedgerURL = "https://api.devnet.solana.com"
	c.Commitment = "confirmed"
	c.Currency = "SOL"
	c.Decimals = 9
	c.Tiers = []tiers.Spec{{Name: "basic", Price: 0.3}, {Name: "full", Price: 1.0}}
	c.Tolerance = 5000
	c.LedgerDeadline = 10 * time.Second
	c.ProbeInterval = 15 * time.Second
	c.GrantRetention = 30 * 24 * time.Hour
	c.CleanupInterval = time.Hour
	c.AdminSecret = defaultAdminSecret
	c.S3Region = "us-east-1"
	c.RateLimitRPS = 5
	c.RateLimitBurst = 10
	c.Algorithm = "AES-256-GCM"
	c.LogFormat = "json"
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Recipient == "" {
		return errors.New("recipient address is required")
	}
	if err := verifier.ValidateAddress(c.Recipient); err != nil {
		return fmt.Errorf("recipient: %w", err)
	}
	if c.LedgerDeadline <= 0 {
		return errors.New("ledger deadline must be positive")
	}
	if c.GrantRetention <= 0 || c.CleanupInterval <= 0 {
		return errors.New("grant retention and cleanup interval must be positive")
	}
	if _, err := tiers.NewTable(c.Tiers, c.Currency, c.Decimals); err != nil {
		return fmt.Errorf("tiers: %w", err)
	}
	if c.AdminSecret == "" || c.AdminSecret == defaultAdminSecret {
		return errors.New("admin secret must be set to a non-default value")
	}
	if _, err := httpapi.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return err
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
