// Package httpapi exposes the access gate over HTTP. Locked content is
// answered with 402 Payment Required and a body that tells the client how to
// pay.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/dmitrijs2005/premiumgate/internal/logging"
	"github.com/dmitrijs2005/premiumgate/internal/server/auth"
	"github.com/dmitrijs2005/premiumgate/internal/server/models"
	"github.com/dmitrijs2005/premiumgate/internal/server/services"
	"github.com/dmitrijs2005/premiumgate/internal/server/tiers"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

// AccessGate decides unlock attempts.
type AccessGate interface {
	RequestAccess(ctx context.Context, contentID, proof, sender string) (*services.AccessResponse, error)
	Recipient() string
}

// Catalog serves content metadata and accepts new items.
type Catalog interface {
	GetContent(ctx context.Context, contentID string) (*models.Content, error)
	List(ctx context.Context) ([]models.Content, error)
	Publish(ctx context.Context, req services.PublishRequest) (*models.Content, error)
}

type Handler struct {
	gate        AccessGate
	catalog     Catalog
	tiers       *tiers.Table
	adminSecret []byte
	limiter     *RateLimiter
	logger      logging.Logger
	now         func() time.Time
}

func NewHandler(gate AccessGate, catalog Catalog, table *tiers.Table, adminSecret []byte, limiter *RateLimiter, logger logging.Logger) *Handler {
	if limiter == nil {
		limiter = NewRateLimiter(0, 1)
	}
	return &Handler{
		gate:        gate,
		catalog:     catalog,
		tiers:       table,
		adminSecret: adminSecret,
		limiter:     limiter,
		logger:      logger.With("module", "httpapi"),
		now:         time.Now,
	}
}

// Routes builds the chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors)
	r.Use(instrument(h.logger))

	r.Get("/health", h.health)
	r.Get("/tiers", h.listTiers)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/content", h.listContent)
	r.Get("/content/{contentId}", h.teaser)
	r.Group(func(r chi.Router) {
		r.Use(h.limiter.Middleware)
		r.Post("/content/{contentId}/unlock", h.unlock)
		r.Get("/content/{contentId}/premium", h.unlock)
	})

	r.Post("/admin/content/{contentId}", h.publish)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   common.ServiceName,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) listTiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tiers": h.tiers.All()})
}

type contentView struct {
	ContentID string     `json:"contentId"`
	Teaser    string     `json:"teaser"`
	Tier      tiers.Tier `json:"tier"`
}

func (h *Handler) view(c models.Content) contentView {
	t, _ := h.tiers.Lookup(c.Tier)
	return contentView{ContentID: c.ID, Teaser: c.Teaser, Tier: t}
}

func (h *Handler) listContent(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.List(r.Context())
	if err != nil {
		h.internalError(w, r, "list content", err)
		return
	}
	out := make([]contentView, 0, len(items))
	for _, c := range items {
		out = append(out, h.view(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"contents": out})
}

func (h *Handler) teaser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contentId")
	c, err := h.catalog.GetContent(r.Context(), id)
	if errors.Is(err, common.ErrorNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "content not found")
		return
	}
	if err != nil {
		h.internalError(w, r, "get content", err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(*c))
}

type unlockBody struct {
	TransactionSignature string `json:"transactionSignature"`
	WalletAddress        string `json:"walletAddress"`
	ContentID            string `json:"contentId"`
}

var errContentMismatch = errors.New("body contentId does not match the path")

// credentials reads the proof and sender from headers, then the JSON body,
// then the query string. A contentId in the body must name the content in
// the path.
func credentials(r *http.Request, contentID string) (proof, sender string, err error) {
	proof = strings.TrimSpace(r.Header.Get(common.TransactionSignatureHeader))
	sender = strings.TrimSpace(r.Header.Get(common.WalletAddressHeader))

	if r.Method == http.MethodPost && r.Body != nil && (proof == "" || sender == "") {
		var body unlockBody
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if derr := dec.Decode(&body); derr != nil && !errors.Is(derr, io.EOF) {
			return "", "", fmt.Errorf("%w: %v", common.ErrMalformedInput, derr)
		}
		if body.ContentID != "" && body.ContentID != contentID {
			return "", "", fmt.Errorf("%w: %w", common.ErrMalformedInput, errContentMismatch)
		}
		if proof == "" {
			proof = strings.TrimSpace(body.TransactionSignature)
		}
		if sender == "" {
			sender = strings.TrimSpace(body.WalletAddress)
		}
	}

	q := r.URL.Query()
	if proof == "" {
		proof = strings.TrimSpace(q.Get("signature"))
	}
	if sender == "" {
		sender = strings.TrimSpace(q.Get("wallet"))
	}
	return proof, sender, nil
}

type grantedBody struct {
	ContentID   string `json:"contentId"`
	Decrypted   string `json:"decrypted"`
	AccessLevel string `json:"accessLevel"`
	Amount      uint64 `json:"amountPaid"`
}

type paymentRequiredBody struct {
	Error        string   `json:"error"`
	Message      string   `json:"message"`
	Price        float64  `json:"price"`
	Currency     string   `json:"currency"`
	Recipient    string   `json:"recipient"`
	ContentID    string   `json:"contentId"`
	Teaser       string   `json:"teaser"`
	RequiredTier string   `json:"requiredTier"`
	ReasonCode   string   `json:"reasonCode"`
	Retryable    bool     `json:"retryable"`
	Instructions []string `json:"instructions"`
}

func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contentId")

	proof, sender, err := credentials(r, id)
	if errors.Is(err, errContentMismatch) {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "contentId does not match the requested content")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	resp, err := h.gate.RequestAccess(r.Context(), id, proof, sender)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "content not found")
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "request aborted")
		return
	case err != nil:
		h.internalError(w, r, "request access", err)
		return
	}

	if g := resp.Granted; g != nil {
		writeJSON(w, http.StatusOK, grantedBody{
			ContentID:   g.ContentID,
			Decrypted:   string(g.Plaintext),
			AccessLevel: g.AccessLevel.Name,
			Amount:      g.Amount,
		})
		return
	}

	h.paymentRequired(w, resp.Denied)
}

func (h *Handler) paymentRequired(w http.ResponseWriter, d *services.Denied) {
	recipient := h.gate.Recipient()
	tier := d.RequiredTier
	if d.ReasonCode.Retryable() {
		w.Header().Set("Retry-After", "2")
	}
	writeJSON(w, http.StatusPaymentRequired, paymentRequiredBody{
		Error:        "Payment Required",
		Message:      fmt.Sprintf("Send %g %s to %s to unlock %s", tier.Price, tier.Currency, recipient, d.ContentID),
		Price:        tier.Price,
		Currency:     tier.Currency,
		Recipient:    recipient,
		ContentID:    d.ContentID,
		Teaser:       d.Teaser,
		RequiredTier: tier.Name,
		ReasonCode:   string(d.ReasonCode),
		Retryable:    d.ReasonCode.Retryable(),
		Instructions: []string{
			fmt.Sprintf("Send %g %s to %s", tier.Price, tier.Currency, recipient),
			fmt.Sprintf("Retry with the transaction signature in the %s header", common.TransactionSignatureHeader),
			fmt.Sprintf("Identify the paying wallet in the %s header", common.WalletAddressHeader),
		},
	})
}

type publishBody struct {
	Tier                 string `json:"tier"`
	Teaser               string `json:"teaser"`
	Content              string `json:"content"`
	TransactionSignature string `json:"transactionSignature"`
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	publisher, err := h.publisherFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
		return
	}

	var body publishBody
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		return
	}

	id := chi.URLParam(r, "contentId")
	c, err := h.catalog.Publish(r.Context(), services.PublishRequest{
		ContentID: id,
		Tier:      body.Tier,
		Teaser:    body.Teaser,
		Plaintext: []byte(body.Content),
		Proof:     body.TransactionSignature,
	})
	if errors.Is(err, common.ErrorIncorrectContent) || errors.Is(err, common.ErrMalformedInput) {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if err != nil {
		h.internalError(w, r, "publish content", err)
		return
	}

	h.logger.Info(r.Context(), "content published", "content_id", id, "publisher", publisher)
	writeJSON(w, http.StatusCreated, h.view(*c))
}

// publisherFromRequest authenticates the bearer token of an admin request.
func (h *Handler) publisherFromRequest(r *http.Request) (string, error) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return "", fmt.Errorf("%w: missing bearer token", common.ErrorUnauthorized)
	}
	publisher, err := auth.PublisherFromToken(token, h.adminSecret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}
	return publisher, nil
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(r.Context(), op+" failed", "error", err.Error())
	writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}
