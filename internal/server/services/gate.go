package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/dmitrijs2005/premiumgate/internal/cryptox"
	"github.com/dmitrijs2005/premiumgate/internal/logging"
	"github.com/dmitrijs2005/premiumgate/internal/server/metrics"
	"github.com/dmitrijs2005/premiumgate/internal/server/models"
	"github.com/dmitrijs2005/premiumgate/internal/server/repositories/grants"
	"github.com/dmitrijs2005/premiumgate/internal/server/tiers"
	"github.com/dmitrijs2005/premiumgate/internal/server/verifier"
)

// ReasonCode is the coarse denial reason shown to clients. Fine-grained
// verifier reasons are logged but never returned.
type ReasonCode string

const (
	// No credentials were supplied.
	ReasonPaymentRequired ReasonCode = "PaymentRequired"
	// The signature or an address is syntactically invalid.
	ReasonMalformedInput ReasonCode = "MalformedInput"
	// The ledger does not know the transaction yet. The same proof may
	// succeed once it is confirmed.
	ReasonPaymentNotSettled ReasonCode = "PaymentNotSettled"
	// The transaction failed, paid too little, involved other parties or is
	// too old.
	ReasonPaymentInvalid ReasonCode = "PaymentInvalid"
	// The proof already unlocked a different content item.
	ReasonProofAlreadyConsumed ReasonCode = "ProofAlreadyConsumed"
	ReasonVerificationTimeout  ReasonCode = "VerificationTimeout"
	ReasonLedgerUnavailable    ReasonCode = "LedgerUnavailable"
	// The payment was accepted but the stored body could not be opened.
	ReasonContentUnavailable ReasonCode = "ContentUnavailable"
)

// Retryable reports whether the same proof may succeed on a later attempt.
func (c ReasonCode) Retryable() bool {
	switch c {
	case ReasonPaymentNotSettled, ReasonVerificationTimeout, ReasonLedgerUnavailable:
		return true
	}
	return false
}

func reasonCodeFor(r verifier.Reason) ReasonCode {
	switch r {
	case verifier.ReasonMalformedInput:
		return ReasonMalformedInput
	case verifier.ReasonTransactionNotFound:
		return ReasonPaymentNotSettled
	case verifier.ReasonVerificationTimeout:
		return ReasonVerificationTimeout
	case verifier.ReasonLedgerUnavailable:
		return ReasonLedgerUnavailable
	default:
		return ReasonPaymentInvalid
	}
}

// Granted carries released content.
type Granted struct {
	ContentID   string
	Plaintext   []byte
	AccessLevel tiers.Tier
	Amount      uint64
	FirstGrant  bool
}

// Denied carries only what may be shown without payment.
type Denied struct {
	ContentID    string
	Teaser       string
	RequiredTier tiers.Tier
	ReasonCode   ReasonCode
}

// AccessResponse holds exactly one of Granted or Denied.
type AccessResponse struct {
	Granted *Granted
	Denied  *Denied
}

// PaymentVerifier checks a proof against the ledger.
type PaymentVerifier interface {
	Verify(ctx context.Context, req verifier.Request) verifier.Result
}

// ContentSource supplies content metadata and sealed bodies.
type ContentSource interface {
	GetContent(ctx context.Context, contentID string) (*models.Content, error)
	GetEncryptedBlob(ctx context.Context, contentID string) (*cryptox.EncryptedBlob, error)
}

// Gate decides whether a payment proof unlocks a content item and releases
// the plaintext when it does.
type Gate struct {
	verifier  PaymentVerifier
	ledger    grants.Repository
	content   ContentSource
	engine    *cryptox.Engine
	tiers     *tiers.Table
	recipient string
	logger    logging.Logger
	now       func() time.Time
}

func NewGate(v PaymentVerifier, ledger grants.Repository, content ContentSource, engine *cryptox.Engine, table *tiers.Table, recipient string, logger logging.Logger) *Gate {
	return &Gate{
		verifier:  v,
		ledger:    ledger,
		content:   content,
		engine:    engine,
		tiers:     table,
		recipient: recipient,
		logger:    logger.With("module", "gate"),
		now:       time.Now,
	}
}

// Recipient is the address payments must be sent to.
func (g *Gate) Recipient() string {
	return g.recipient
}

// RequestAccess runs verification, replay protection and decryption for one
// unlock attempt. Unknown content is reported as common.ErrorNotFound; every
// other failure to unlock is a Denied response. A canceled ctx returns its
// error and leaves the access ledger untouched.
func (g *Gate) RequestAccess(ctx context.Context, contentID, proof, sender string) (*AccessResponse, error) {
	content, err := g.content.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	required, ok := g.tiers.Lookup(content.Tier)
	if !ok {
		return nil, fmt.Errorf("%w: content %s has unknown tier %q", common.ErrorInternal, contentID, content.Tier)
	}

	deny := func(code ReasonCode) (*AccessResponse, error) {
		metrics.AccessDecisions.WithLabelValues("denied", string(code)).Inc()
		return &AccessResponse{Denied: &Denied{
			ContentID:    contentID,
			Teaser:       content.Teaser,
			RequiredTier: required,
			ReasonCode:   code,
		}}, nil
	}

	if proof == "" || sender == "" {
		return deny(ReasonPaymentRequired)
	}

	ref := common.ProofRef(proof)

	res := g.verifier.Verify(ctx, verifier.Request{
		Proof:             proof,
		ExpectedAmount:    required.RequiredUnits,
		ExpectedRecipient: g.recipient,
		ExpectedSender:    sender,
		ContentID:         contentID,
	})
	if !res.Valid {
		g.logger.Info(ctx, "access denied", "content_id", contentID, "proof_ref", ref, "reason", string(res.Reason))
		return deny(reasonCodeFor(res.Reason))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, outcome, err := g.ledger.TryGrant(ctx, proof, contentID, g.now())
	if err != nil {
		return nil, fmt.Errorf("record grant: %w", err)
	}
	if outcome == grants.ConflictDifferentContent {
		metrics.ReplayAttempts.Inc()
		g.logger.Warn(ctx, "proof already consumed by another content item",
			"content_id", contentID, "proof_ref", ref, "sender", sender, "fraud_signal", true)
		return deny(ReasonProofAlreadyConsumed)
	}

	blob, err := g.content.GetEncryptedBlob(ctx, contentID)
	if err != nil {
		g.logger.Error(ctx, "content blob unavailable", "content_id", contentID, "error", err.Error())
		return deny(ReasonContentUnavailable)
	}

	plaintext, err := g.engine.Decrypt(blob, proof)
	if err != nil {
		var de *cryptox.DecryptionError
		if errors.As(err, &de) {
			metrics.DecryptionFailures.Inc()
		}
		g.logger.Error(ctx, "content decryption failed", "content_id", contentID, "proof_ref", ref, "error", err.Error())
		return deny(ReasonContentUnavailable)
	}

	level := required
	if paid, ok := g.tiers.Resolve(res.Amount); ok {
		level = tiers.Higher(required, paid)
	}

	metrics.AccessDecisions.WithLabelValues("granted", outcome.String()).Inc()
	g.logger.Info(ctx, "access granted",
		"content_id", contentID, "proof_ref", ref, "access_level", level.Name, "outcome", outcome.String())

	return &AccessResponse{Granted: &Granted{
		ContentID:   contentID,
		Plaintext:   plaintext,
		AccessLevel: level,
		Amount:      res.Amount,
		FirstGrant:  outcome == grants.NewGrant,
	}}, nil
}
