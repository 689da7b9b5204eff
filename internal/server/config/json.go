package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/flagx"
	"github.com/dmitrijs2005/premiumgate/internal/server/tiers"
	"github.com/dmitrijs2005/premiumgate/internal/timex"
)

// JsonConfig is the DTO read from a JSON config file. Durations use
// timex.Duration so both "10s" and integer nanoseconds are accepted.
// Fields left out of the file keep their current value.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC string         `json:"endpoint_addr_grpc"`
	DatabaseDSN      string         `json:"database_dsn"`
	LedgerURL        string         `json:"ledger_url"`
	Commitment       string         `json:"commitment"`
	Recipient        string         `json:"recipient"`
	Currency         string         `json:"currency"`
	Decimals         *int           `json:"decimals"`
	Tiers            []tiers.Spec   `json:"tiers"`
	Tolerance        *uint64        `json:"tolerance"`
	LedgerDeadline   timex.Duration `json:"ledger_deadline"`
	ProbeInterval    timex.Duration `json:"probe_interval"`
	GrantRetention   timex.Duration `json:"grant_retention"`
	CleanupInterval  timex.Duration `json:"cleanup_interval"`
	AdminSecret      string         `json:"admin_secret"`
	S3AccessKey      string         `json:"s3_access_key"`
	S3SecretKey      string         `json:"s3_secret_key"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
	RateLimitRPS     *float64       `json:"rate_limit_rps"`
	RateLimitBurst   int            `json:"rate_limit_burst"`
	TrustedProxies   []string       `json:"trusted_proxies"`
	Algorithm        string         `json:"algorithm"`
	LogFormat        string         `json:"log_format"`
}

// parseJson overlays values from the file named by -c/-config (or
// $PREMIUMGATE_CONFIG) onto config. An unreadable file or invalid JSON
// panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.ConfigPath()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LedgerURL, c.LedgerURL)
	setString(&config.Commitment, c.Commitment)
	setString(&config.Recipient, c.Recipient)
	setString(&config.Currency, c.Currency)
	setString(&config.AdminSecret, c.AdminSecret)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.Algorithm, c.Algorithm)
	setString(&config.LogFormat, c.LogFormat)

	setDuration(&config.LedgerDeadline, c.LedgerDeadline)
	setDuration(&config.ProbeInterval, c.ProbeInterval)
	setDuration(&config.GrantRetention, c.GrantRetention)
	setDuration(&config.CleanupInterval, c.CleanupInterval)

	if c.Decimals != nil {
		config.Decimals = *c.Decimals
	}
	if len(c.Tiers) > 0 {
		config.Tiers = c.Tiers
	}
	if c.Tolerance != nil {
		config.Tolerance = *c.Tolerance
	}
	if c.RateLimitRPS != nil {
		config.RateLimitRPS = *c.RateLimitRPS
	}
	if c.RateLimitBurst > 0 {
		config.RateLimitBurst = c.RateLimitBurst
	}
	if len(c.TrustedProxies) > 0 {
		config.TrustedProxies = c.TrustedProxies
	}
}
