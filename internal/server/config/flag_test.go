package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:8081", "-m", "127.0.0.1:9090", "-d", "db", "-l", "http://rpc", "-w", "wallet",
			"-s", "secret", "-t", "3", "-k", "48", "-u", "user", "-p", "password", "-b", "bucket",
			"-g", "us-west-1", "-e", "http://endpoint", "-f", "console", "-r", "10.0.0.0/8,127.0.0.1",
		}, expectPanic: false,
			expected: &Config{
				EndpointAddrHTTP: "127.0.0.1:8081",
				EndpointAddrGRPC: "127.0.0.1:9090",
				DatabaseDSN:      "db",
				LedgerURL:        "http://rpc",
				Recipient:        "wallet",
				AdminSecret:      "secret",
				LedgerDeadline:   3 * time.Second,
				GrantRetention:   48 * time.Hour,
				S3AccessKey:      "user",
				S3SecretKey:      "password",
				S3Bucket:         "bucket",
				S3Region:         "us-west-1",
				S3BaseEndpoint:   "http://endpoint",
				LogFormat:        "console",
				TrustedProxies:   []string{"10.0.0.0/8", "127.0.0.1"},
			}},
		{name: "config flag is ignored", args: []string{"cmd", "-c", "conf.json", "-a", ":1"},
			expected: &Config{EndpointAddrHTTP: ":1"}},
		{name: "bad duration panics", args: []string{"cmd", "-t", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(tt.expected, config))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
