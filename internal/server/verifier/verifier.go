// Package verifier checks a payment proof against the ledger and reports a
// structured result.
//
// Verification is side-effect free: nothing is cached across calls, and
// concurrent calls for the same signature share a single in-flight ledger
// query. Each ledger query runs under a fixed deadline that does not depend
// on the caller, so one impatient caller cannot fail a query others are
// waiting on.
package verifier

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/dmitrijs2005/premiumgate/internal/logging"
	"github.com/dmitrijs2005/premiumgate/internal/server/metrics"
	"github.com/dmitrijs2005/premiumgate/internal/server/models"
	"golang.org/x/sync/singleflight"
)

// Reason explains why a proof did not verify.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonMalformedInput      Reason = "MalformedInput"
	ReasonLedgerUnavailable   Reason = "LedgerUnavailable"
	ReasonVerificationTimeout Reason = "VerificationTimeout"
	ReasonTransactionNotFound Reason = "TransactionNotFound"
	ReasonTransactionFailed   Reason = "TransactionFailed"
	ReasonInsufficientAmount  Reason = "InsufficientAmount"
	ReasonPartyMismatch       Reason = "PartyMismatch"
	ReasonProofExpired        Reason = "ProofExpired"
)

// Transient reports whether retrying the same proof later may succeed.
func (r Reason) Transient() bool {
	return r == ReasonLedgerUnavailable || r == ReasonVerificationTimeout
}

// Ledger resolves a signature to its settled effects. A nil transfer with a
// nil error means the ledger does not know the signature.
type Ledger interface {
	GetSettledTransfer(ctx context.Context, signature string) (*models.SettledTransfer, error)
}

// Request carries the proof and the payment it is expected to represent.
// Amounts are in base units.
type Request struct {
	Proof             string
	ExpectedAmount    uint64
	ExpectedRecipient string
	ExpectedSender    string
	ContentID         string
}

// Result is the outcome of one verification. Amount, Sender, Recipient and
// SettledAt are only set when Valid is true.
type Result struct {
	Valid     bool
	Amount    uint64
	Sender    string
	Recipient string
	SettledAt time.Time
	Reason    Reason
}

func invalid(r Reason) Result {
	return Result{Reason: r}
}

// Options tune a Verifier.
type Options struct {
	// Tolerance is subtracted from the expected amount before comparing, in
	// base units.
	Tolerance uint64
	// Deadline bounds each ledger query.
	Deadline time.Duration
	// MaxProofAge rejects transfers settled longer ago than this. Zero
	// disables the check.
	MaxProofAge time.Duration
}

// Verifier validates payment proofs. It is safe for concurrent use.
type Verifier struct {
	ledger Ledger
	opts   Options
	logger logging.Logger
	now    func() time.Time
	group  singleflight.Group
}

const defaultDeadline = 10 * time.Second

// New returns a Verifier backed by ledger.
func New(ledger Ledger, opts Options, logger logging.Logger) *Verifier {
	if opts.Deadline <= 0 {
		opts.Deadline = defaultDeadline
	}
	return &Verifier{
		ledger: ledger,
		opts:   opts,
		logger: logger.With("module", "verifier"),
		now:    time.Now,
	}
}

// Verify checks req.Proof. Syntax errors are reported without a ledger call.
func (v *Verifier) Verify(ctx context.Context, req Request) Result {
	res := v.verify(ctx, req)

	outcome := "valid"
	if !res.Valid {
		outcome = string(res.Reason)
	}
	metrics.VerificationsTotal.WithLabelValues(outcome).Inc()

	v.logger.Debug(ctx, "verification finished",
		"proof_ref", common.ProofRef(req.Proof),
		"content_id", req.ContentID,
		"valid", res.Valid,
		"reason", string(res.Reason),
	)
	return res
}

func (v *Verifier) verify(ctx context.Context, req Request) Result {
	if err := ValidateSignature(req.Proof); err != nil {
		return invalid(ReasonMalformedInput)
	}
	if err := ValidateAddress(req.ExpectedRecipient); err != nil {
		return invalid(ReasonMalformedInput)
	}
	if err := ValidateAddress(req.ExpectedSender); err != nil {
		return invalid(ReasonMalformedInput)
	}

	transfer, err := v.fetch(ctx, req.Proof)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return invalid(ReasonVerificationTimeout)
		}
		v.logger.Warn(ctx, "ledger query failed", "proof_ref", common.ProofRef(req.Proof), "error", err.Error())
		return invalid(ReasonLedgerUnavailable)
	}

	return v.evaluate(transfer, req)
}

// evaluate applies the payment rules to a ledger answer. Checks run in a
// fixed order: existence, on-chain success, parties, amount, age. The amount
// is the expected recipient's own balance change, whatever else the
// transaction moved.
func (v *Verifier) evaluate(t *models.SettledTransfer, req Request) Result {
	if t == nil || !t.Found {
		return invalid(ReasonTransactionNotFound)
	}
	if !t.Succeeded {
		return invalid(ReasonTransactionFailed)
	}
	if !t.SignedBy(req.ExpectedSender) {
		return invalid(ReasonPartyMismatch)
	}
	credit, touched := t.DeltaOf(req.ExpectedRecipient)
	if !touched {
		return invalid(ReasonPartyMismatch)
	}
	if credit <= 0 {
		return invalid(ReasonInsufficientAmount)
	}

	amount := uint64(credit)
	if amount+v.opts.Tolerance < req.ExpectedAmount {
		return invalid(ReasonInsufficientAmount)
	}

	// without a block time the age cannot be bounded
	if v.opts.MaxProofAge > 0 && (t.SettledAt.IsZero() || v.now().Sub(t.SettledAt) > v.opts.MaxProofAge) {
		return invalid(ReasonProofExpired)
	}

	return Result{
		Valid:     true,
		Amount:    amount,
		Sender:    req.ExpectedSender,
		Recipient: req.ExpectedRecipient,
		SettledAt: t.SettledAt,
	}
}

// fetch queries the ledger, sharing the query with concurrent callers that
// ask about the same signature. The caller stops waiting when ctx is done.
func (v *Verifier) fetch(ctx context.Context, signature string) (*models.SettledTransfer, error) {
	ch := v.group.DoChan(signature, func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.opts.Deadline)
		defer cancel()

		start := time.Now()
		t, err := v.ledger.GetSettledTransfer(qctx, signature)
		if err == nil && qctx.Err() != nil {
			err = qctx.Err()
		}

		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.VerificationLatency.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		return t, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Shared {
			metrics.VerificationsCoalesced.Inc()
		}
		if r.Err != nil {
			return nil, r.Err
		}
		t, _ := r.Val.(*models.SettledTransfer)
		return t, nil
	}
}
