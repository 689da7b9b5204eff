package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/dmitrijs2005/premiumgate/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method, path, sig, wallet, authz string
	body                             map[string]string
}

func newTestServer(t *testing.T, status int, reply string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.sig = r.Header.Get(common.TransactionSignatureHeader)
		rec.wallet = r.Header.Get(common.WalletAddressHeader)
		rec.authz = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		if len(b) > 0 {
			_ = json.Unmarshal(b, &rec.body)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(ts.Close)
	return ts, rec
}

func TestRun_Teaser(t *testing.T) {
	ts, rec := newTestServer(t, http.StatusOK, `{"contentId":"report-42","teaser":"short"}`)
	var out bytes.Buffer

	err := NewApp(&out).Run(context.Background(), []string{"-s", ts.URL, "teaser", "report-42"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/content/report-42", rec.path)
	assert.Contains(t, out.String(), `"teaser": "short"`)
}

func TestRun_UnlockPaymentRequired(t *testing.T) {
	ts, rec := newTestServer(t, http.StatusPaymentRequired, `{"error":"Payment Required"}`)
	var out bytes.Buffer

	err := NewApp(&out).Run(context.Background(), []string{"-s", ts.URL, "unlock", "report-42", "sig", "wallet"})
	assert.True(t, errors.Is(err, ErrPaymentRequired))

	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/content/report-42/unlock", rec.path)
	assert.Equal(t, "sig", rec.sig)
	assert.Equal(t, "wallet", rec.wallet)
	assert.Contains(t, out.String(), "Payment Required")
}

func TestRun_UnlockGranted(t *testing.T) {
	ts, _ := newTestServer(t, http.StatusOK, `{"decrypted":"body"}`)
	var out bytes.Buffer

	err := NewApp(&out).Run(context.Background(), []string{"-s", ts.URL + "/", "unlock", "a", "sig", "wallet"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"decrypted": "body"`)
}

func TestRun_Publish(t *testing.T) {
	ts, rec := newTestServer(t, http.StatusCreated, `{"contentId":"report-9"}`)
	bodyFile := filepath.Join(t.TempDir(), "body.txt")
	require.NoError(t, os.WriteFile(bodyFile, []byte("long form"), 0o600))
	var out bytes.Buffer

	err := NewApp(&out).Run(context.Background(), []string{
		"-s", ts.URL, "-token", "tok", "-teaser", "short", "-body-file", bodyFile,
		"publish", "report-9", "basic", "sig",
	})
	require.NoError(t, err)

	assert.Equal(t, "/admin/content/report-9", rec.path)
	assert.Equal(t, "Bearer tok", rec.authz)
	assert.Equal(t, map[string]string{
		"tier": "basic", "teaser": "short", "content": "long form", "transactionSignature": "sig",
	}, rec.body)
}

func TestRun_ServerErrorIsReturned(t *testing.T) {
	ts, _ := newTestServer(t, http.StatusNotFound, `{"error":"content not found"}`)
	err := NewApp(io.Discard).Run(context.Background(), []string{"-s", ts.URL, "teaser", "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestRun_Token(t *testing.T) {
	var out bytes.Buffer
	err := NewApp(&out).Run(context.Background(), []string{"-secret", "s3cret", "token", "pipeline"})
	require.NoError(t, err)

	publisher, err := auth.PublisherFromToken(strings.TrimSpace(out.String()), []byte("s3cret"))
	require.NoError(t, err)
	assert.Equal(t, "pipeline", publisher)
}

func TestRun_UsageErrors(t *testing.T) {
	cases := [][]string{
		{},
		{"bogus"},
		{"teaser"},
		{"unlock", "a", "b"},
		{"publish", "a", "basic", "sig"},
		{"token", "pipeline"},
	}
	for _, args := range cases {
		t.Run(strings.Join(args, "_"), func(t *testing.T) {
			assert.Error(t, NewApp(io.Discard).Run(context.Background(), args))
		})
	}
}
