package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chartly/internal/config"
	"chartly/internal/ingest"
	mcpserver "chartly/internal/mcp"
	"chartly/internal/schema"
	"chartly/internal/secret"
	"chartly/internal/service"
	"chartly/internal/sources"
	"chartly/internal/storage"
	"chartly/internal/store"
	"chartly/internal/web"
)

func main() {
	cfg, err := config.Load(".env", ".env.local")
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := cfg.Logger()

	ctx := context.Background()

	// Document store for imported collections.
	docs, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDB, log)
	if err != nil {
		log.WithError(err).Fatal("connect document store")
	}
	defer docs.Close(context.Background())

	provenance := store.NewProvenanceStore(docs)
	if err := provenance.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Fatal("ensure provenance indexes")
	}

	// Local state: uploads, saved connections, import jobs.
	db, err := storage.New(cfg.SQLitePath, cfg.UploadDir)
	if err != nil {
		log.WithError(err).Fatal("open sqlite")
	}
	defer db.Close()

	secrets, err := secret.NewFileStore(cfg.SecretsDir)
	if err != nil {
		log.WithError(err).Fatal("open secret store")
	}

	uploads := storage.NewUploadStore(db)
	conns := service.NewConnectionService(storage.NewConnectionStore(db), secrets)
	defer conns.Close()

	registry := sources.NewRegistry(
		sources.NewUploadSource(uploads),
		sources.NewDatabaseSource(conns, 0),
	)
	if cfg.SheetExportURL != "" {
		registry.Register(sources.NewSheetSource(sources.NewHTTPRowsProvider(cfg.SheetExportURL, nil)))
	}

	inserter := ingest.NewInserter(log)
	inserter.BatchSize = cfg.BatchSize
	orch := ingest.NewOrchestrator(docs, inserter, provenance, log)

	imports := service.NewImportService(
		storage.NewJobStore(db), registry, orch,
		schema.HeuristicSuggester{}, log, cfg.PageSize, cfg.SampleSize,
	)
	imports.RestartWatchers(ctx)
	defer imports.Stop()

	if cfg.MCPEnabled {
		mcp := mcpserver.New(mcpserver.Deps{
			Imports:    imports,
			Uploads:    uploads,
			Provenance: provenance,
			Log:        log,
		})
		go func() {
			if err := mcp.ServeStdio(); err != nil {
				log.WithError(err).Error("mcp server stopped")
			}
		}()
	}

	server := web.NewServer(imports, conns, uploads, provenance, log, cfg.MaxUploadSize)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info("shutting down")
		imports.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Let in-flight imports finish before the listener closes.
		imports.WaitRunning(shutdownCtx)
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutdown")
		}
	}()

	if err := server.Start(cfg.SocketAddress()); err != nil {
		log.WithError(err).Info("server stopped")
	}
}
