package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/dmitrijs2005/premiumgate/internal/cryptox"
	"github.com/dmitrijs2005/premiumgate/internal/logging"
	"github.com/dmitrijs2005/premiumgate/internal/server/blobstore"
	"github.com/dmitrijs2005/premiumgate/internal/server/models"
	"github.com/dmitrijs2005/premiumgate/internal/server/repositories/contents"
	"github.com/dmitrijs2005/premiumgate/internal/server/tiers"
	"github.com/dmitrijs2005/premiumgate/internal/server/verifier"
	"github.com/google/uuid"
)

// PublishRequest is what the content pipeline submits for one item: the free
// teaser, the premium plaintext and the payment proof it is sealed under.
type PublishRequest struct {
	ContentID string
	Tier      string
	Teaser    string
	Plaintext []byte
	Proof     string
}

// ContentService owns content metadata and encrypted bodies.
type ContentService struct {
	repo   contents.Repository
	blobs  blobstore.Store
	engine *cryptox.Engine
	tiers  *tiers.Table
	logger logging.Logger
	now    func() time.Time
}

func NewContentService(repo contents.Repository, blobs blobstore.Store, engine *cryptox.Engine, table *tiers.Table, logger logging.Logger) *ContentService {
	return &ContentService{
		repo:   repo,
		blobs:  blobs,
		engine: engine,
		tiers:  table,
		logger: logger.With("module", "content"),
		now:    time.Now,
	}
}

func newStorageKey(contentID string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("contents/%d/%02d/%s/%v", d.Year(), d.Month(), contentID, uuid.New())
}

// GetContent returns content metadata or common.ErrorNotFound.
func (s *ContentService) GetContent(ctx context.Context, contentID string) (*models.Content, error) {
	return s.repo.Get(ctx, contentID)
}

// GetTeaser returns the free summary of a content item.
func (s *ContentService) GetTeaser(ctx context.Context, contentID string) (string, error) {
	c, err := s.repo.Get(ctx, contentID)
	if err != nil {
		return "", err
	}
	return c.Teaser, nil
}

// GetEncryptedBlob returns the sealed body of a content item.
func (s *ContentService) GetEncryptedBlob(ctx context.Context, contentID string) (*cryptox.EncryptedBlob, error) {
	c, err := s.repo.Get(ctx, contentID)
	if err != nil {
		return nil, err
	}
	return s.blobs.Get(ctx, c.StorageKey)
}

// List returns metadata of every published item.
func (s *ContentService) List(ctx context.Context) ([]models.Content, error) {
	return s.repo.List(ctx)
}

// Publish seals the plaintext under the key derived from req.Proof, stores the
// blob and records the metadata. Republishing an id replaces its body.
func (s *ContentService) Publish(ctx context.Context, req PublishRequest) (*models.Content, error) {
	if strings.TrimSpace(req.ContentID) == "" || req.Teaser == "" || len(req.Plaintext) == 0 {
		return nil, fmt.Errorf("%w: content id, teaser and body are required", common.ErrorIncorrectContent)
	}
	if _, ok := s.tiers.Lookup(req.Tier); !ok {
		return nil, fmt.Errorf("%w: unknown tier %q", common.ErrorIncorrectContent, req.Tier)
	}
	if err := verifier.ValidateSignature(req.Proof); err != nil {
		return nil, err
	}

	blob, err := s.engine.Encrypt(req.Plaintext, req.Proof)
	if err != nil {
		return nil, fmt.Errorf("seal content: %w", err)
	}

	c := &models.Content{
		ID:         req.ContentID,
		Tier:       req.Tier,
		Teaser:     req.Teaser,
		StorageKey: newStorageKey(req.ContentID),
		CreatedAt:  s.now().UTC(),
	}

	if err := s.blobs.Put(ctx, c.StorageKey, blob); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}
	if err := s.repo.Upsert(ctx, c); err != nil {
		return nil, fmt.Errorf("store content: %w", err)
	}

	s.logger.Info(ctx, "content published",
		"content_id", c.ID,
		"tier", c.Tier,
		"algorithm", blob.AlgorithmID,
		"proof_ref", common.ProofRef(req.Proof),
	)
	return c, nil
}
