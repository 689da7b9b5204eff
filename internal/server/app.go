// Package server wires the premiumgate components together: storage
// backends, the ledger client, the access gate, the HTTP API, the gRPC health
// endpoint and the grant janitor.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/premiumgate/internal/cryptox"
	"github.com/dmitrijs2005/premiumgate/internal/logging"
	"github.com/dmitrijs2005/premiumgate/internal/server/blobstore"
	"github.com/dmitrijs2005/premiumgate/internal/server/chain"
	"github.com/dmitrijs2005/premiumgate/internal/server/config"
	"github.com/dmitrijs2005/premiumgate/internal/server/httpapi"
	"github.com/dmitrijs2005/premiumgate/internal/server/repositories/contents"
	"github.com/dmitrijs2005/premiumgate/internal/server/repositories/grants"
	"github.com/dmitrijs2005/premiumgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/premiumgate/internal/server/services"
	"github.com/dmitrijs2005/premiumgate/internal/server/tiers"
	"github.com/dmitrijs2005/premiumgate/internal/server/verifier"

	gs "github.com/dmitrijs2005/premiumgate/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	ledger  *chain.SolanaLedger
	handler *httpapi.Handler
	janitor *services.GrantJanitor
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(c.LogFormat)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	table, err := tiers.NewTable(c.Tiers, c.Currency, c.Decimals)
	if err != nil {
		return nil, err
	}

	engine, err := cryptox.NewEngine(c.Algorithm)
	if err != nil {
		return nil, err
	}

	app := &App{config: c, logger: logger}

	grantRepo, contentRepo, err := app.initStorage(ctx)
	if err != nil {
		return nil, err
	}

	blobs, err := app.initBlobStore(ctx)
	if err != nil {
		app.close()
		return nil, err
	}

	app.ledger = chain.NewSolanaLedger(c.LedgerURL, c.Commitment)

	v := verifier.New(app.ledger, verifier.Options{
		Tolerance:   c.Tolerance,
		Deadline:    c.LedgerDeadline,
		MaxProofAge: c.GrantRetention,
	}, logger)

	content := services.NewContentService(contentRepo, blobs, engine, table, logger)
	gate := services.NewGate(v, grantRepo, content, engine, table, c.Recipient, logger)

	limiter := httpapi.NewRateLimiter(c.RateLimitRPS, c.RateLimitBurst)
	if err := limiter.TrustProxies(c.TrustedProxies...); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	app.handler = httpapi.NewHandler(gate, content, table, []byte(c.AdminSecret), limiter, logger)
	app.janitor = services.NewGrantJanitor(grantRepo, c.GrantRetention, c.CleanupInterval, logger)

	return app, nil
}

// initStorage picks PostgreSQL when a DSN is configured and in-memory
// repositories otherwise.
func (app *App) initStorage(ctx context.Context) (grants.Repository, contents.Repository, error) {
	if app.config.DatabaseDSN == "" {
		app.logger.Warn(ctx, "no database configured, grants and content are kept in memory")
		return grants.NewMemoryRepository(), contents.NewMemoryRepository(), nil
	}

	db, err := repomanager.OpenPostgres(ctx, app.config.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}

	app.db = db
	return m.Grants(db), m.Contents(db), nil
}

func (app *App) initBlobStore(ctx context.Context) (blobstore.Store, error) {
	c := app.config
	if c.S3Bucket == "" {
		app.logger.Warn(ctx, "no bucket configured, sealed content is kept in memory")
		return blobstore.NewMemoryStore(), nil
	}

	s, err := blobstore.NewS3Store(ctx, blobstore.S3Settings{
		Region:       c.S3Region,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
	})
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}
	return s, nil
}

func (app *App) close() {
	if app.db != nil {
		_ = app.db.Close()
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.handler, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewHealthServer(app.config.EndpointAddrGRPC, app.logger, app.ledger, app.config.ProbeInterval)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or ctx is canceled, then
// waits for every component to stop.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.logger.Info(ctx, "Starting app...", "recipient", app.config.Recipient)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.janitor.Run(ctx)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
}
