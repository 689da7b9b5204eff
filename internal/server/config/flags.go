package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-m string   gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-l string   Solana RPC URL
//	-w string   recipient wallet address
//	-s string   JWT HMAC secret key for publishers
//	-t int      ledger query deadline, seconds
//	-k int      grant retention, hours
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-f string   log format: json, zerolog or console
//	-r string   comma-separated trusted proxy IPs or CIDR ranges
//
// Notes:
//   - os.Args is filtered with flagx.FilterArgs first, so flags owned by
//     other components (-c/-config) do not break parsing.
//   - Duration flags are integers and converted to time.Duration values.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-m", "-d", "-l", "-w", "-s", "-t", "-k", "-u", "-p", "-b", "-g", "-e", "-f", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run the HTTP API")
	fs.StringVar(&config.EndpointAddrGRPC, "m", config.EndpointAddrGRPC, "address and port to run the gRPC health server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LedgerURL, "l", config.LedgerURL, "Solana RPC URL")
	fs.StringVar(&config.Recipient, "w", config.Recipient, "recipient wallet address")
	fs.StringVar(&config.AdminSecret, "s", config.AdminSecret, "secret key")

	ledgerDeadline := fs.Int("t", int(config.LedgerDeadline.Seconds()), "ledger query deadline (in seconds)")
	grantRetention := fs.Int("k", int(config.GrantRetention.Hours()), "grant retention (in hours)")

	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format")
	trustedProxies := fs.String("r", strings.Join(config.TrustedProxies, ","), "trusted proxies (comma-separated IPs or CIDRs)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.LedgerDeadline = time.Duration(*ledgerDeadline) * time.Second
	config.GrantRetention = time.Duration(*grantRetention) * time.Hour
	if *trustedProxies != "" {
		config.TrustedProxies = strings.Split(*trustedProxies, ",")
	}
}
