// Package cli is a thin command-line client for the premiumgate HTTP API.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/dmitrijs2005/premiumgate/internal/netx"
	"github.com/dmitrijs2005/premiumgate/internal/server/auth"
)

const usage = `usage: premiumgate-cli [flags] <command> [args]

commands:
  tiers                              print the price table
  teaser  <contentId>                print the free teaser
  unlock  <contentId> <sig> <wallet> unlock premium content with a payment proof
  publish <contentId> <tier> <sig>   publish content (-teaser, -body-file, -token)
  token   <publisher>                mint a publisher token (-secret, -ttl)
`

// ErrPaymentRequired is returned by unlock when the server answered 402.
var ErrPaymentRequired = errors.New("payment required")

type App struct {
	server string
	client *http.Client
	out    io.Writer

	token    string
	secret   string
	ttl      time.Duration
	teaser   string
	bodyFile string
}

func NewApp(out io.Writer) *App {
	return &App{client: &http.Client{Timeout: 30 * time.Second}, out: out}
}

// Run parses args (without the program name) and executes one command.
func (a *App) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("premiumgate-cli", flag.ContinueOnError)
	fs.SetOutput(a.out)
	fs.Usage = func() { fmt.Fprint(a.out, usage); fs.PrintDefaults() }

	fs.StringVar(&a.server, "s", "http://localhost:8080", "server base URL")
	fs.StringVar(&a.token, "token", "", "publisher bearer token")
	fs.StringVar(&a.secret, "secret", "", "admin secret used to mint tokens")
	fs.DurationVar(&a.ttl, "ttl", time.Hour, "token validity")
	fs.StringVar(&a.teaser, "teaser", "", "teaser text for publish")
	fs.StringVar(&a.bodyFile, "body-file", "", "file with the premium body for publish")

	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cmd, params := rest[0], rest[1:]

	switch cmd {
	case "tiers":
		return a.get(ctx, "/tiers")
	case "teaser":
		if len(params) != 1 {
			return errors.New("usage: teaser <contentId>")
		}
		return a.get(ctx, "/content/"+url.PathEscape(params[0]))
	case "unlock":
		if len(params) != 3 {
			return errors.New("usage: unlock <contentId> <signature> <wallet>")
		}
		return a.unlock(ctx, params[0], params[1], params[2])
	case "publish":
		if len(params) != 3 {
			return errors.New("usage: publish <contentId> <tier> <signature>")
		}
		return a.publish(ctx, params[0], params[1], params[2])
	case "token":
		if len(params) != 1 {
			return errors.New("usage: token <publisher>")
		}
		return a.mintToken(params[0])
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *App) endpoint(path string) string {
	return strings.TrimRight(a.server, "/") + path
}

func (a *App) get(ctx context.Context, path string) error {
	resp, err := netx.DoJSON(ctx, a.client, http.MethodGet, a.endpoint(path), nil, nil)
	if err != nil {
		return err
	}
	return a.print(resp)
}

func (a *App) unlock(ctx context.Context, contentID, signature, wallet string) error {
	resp, err := netx.DoJSON(ctx, a.client, http.MethodPost,
		a.endpoint("/content/"+url.PathEscape(contentID)+"/unlock"),
		map[string]string{
			common.TransactionSignatureHeader: signature,
			common.WalletAddressHeader:        wallet,
		}, nil)
	if err != nil {
		return err
	}
	if err := a.print(resp); err != nil {
		return err
	}
	if resp.StatusCode == http.StatusPaymentRequired {
		return ErrPaymentRequired
	}
	return nil
}

func (a *App) publish(ctx context.Context, contentID, tier, signature string) error {
	if a.token == "" {
		return errors.New("-token is required")
	}
	if a.bodyFile == "" {
		return errors.New("-body-file is required")
	}
	body, err := os.ReadFile(a.bodyFile)
	if err != nil {
		return err
	}

	resp, err := netx.DoJSON(ctx, a.client, http.MethodPost,
		a.endpoint("/admin/content/"+url.PathEscape(contentID)),
		map[string]string{"Authorization": "Bearer " + a.token},
		map[string]string{
			"tier":                 tier,
			"teaser":               a.teaser,
			"content":              string(body),
			"transactionSignature": signature,
		})
	if err != nil {
		return err
	}
	return a.print(resp)
}

func (a *App) mintToken(publisher string) error {
	if a.secret == "" {
		return errors.New("-secret is required")
	}
	token, err := auth.GenerateToken(publisher, []byte(a.secret), a.ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, token)
	return err
}

// print writes the response as indented JSON and turns unexpected statuses
// into errors.
func (a *App) print(resp *netx.Response) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, resp.Body, "", "  "); err != nil {
		buf.Reset()
		buf.Write(resp.Body)
	}
	fmt.Fprintln(a.out, buf.String())

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusPaymentRequired {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return nil
}
