package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/cache"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/catalog"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/config"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/fetcher"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/history"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/httpapi"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/llm"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/pipeline"
	"github.com/Rnteacher/stremio-hebrew-subtitles/internal/translator"
	"github.com/Rnteacher/stremio-hebrew-subtitles/pkg/log"
)

const tempFileMaxAge = time.Hour

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	store, err := cache.NewDiskStore(cfg.Storage.CacheDir)
	if err != nil {
		log.Fatal("Failed to open subtitle cache: %v", err)
	}

	// History is diagnostics only; run without it if the DB cannot open.
	var hist *history.Store
	if hist, err = history.NewStore(cfg.Storage.HistoryDB); err != nil {
		log.Error("Failed to open history store, continuing without: %v", err)
		hist = nil
	} else {
		defer hist.Close()
	}

	catalogClient := catalog.NewClient(cfg.Catalog.APIKey,
		catalog.WithTimeout(cfg.Catalog.LookupTimeout))
	resolver := catalog.NewResolver(catalogClient, cfg.Translate.SourceLanguage.String())

	llmClient, err := llm.NewClient(&llm.Config{
		APIKey:      cfg.LLM.APIKey,
		APIURL:      cfg.LLM.APIURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     int(cfg.Translate.BatchTimeout / time.Second),
		AppName:     cfg.LLM.AppName,
	})
	if err != nil {
		log.Fatal("Failed to create LLM client: %v", err)
	}

	trans := translator.NewLLMTranslator(llmClient, translator.Config{
		SourceLanguage: cfg.Translate.SourceLanguage,
		TargetLanguage: cfg.Translate.TargetLanguage,
		ChunkThreshold: cfg.Translate.ChunkThreshold,
		BatchSize:      cfg.Translate.BatchSize,
		BatchTimeout:   cfg.Translate.BatchTimeout,
	})

	pipeOpts := []pipeline.Option{}
	serverOpts := []httpapi.Option{}
	if hist != nil {
		pipeOpts = append(pipeOpts, pipeline.WithHistory(hist))
		serverOpts = append(serverOpts, httpapi.WithHistory(hist))
	}

	pipe := pipeline.New(store, resolver, fetcher.New(cfg.Catalog.DownloadTimeout),
		trans, cfg.Server.BaseURL, cfg.Translate.TargetLangCode, pipeOpts...)

	server := httpapi.NewServer(pipe, store, serverOpts...)

	janitor := cron.New()
	if _, err := janitor.AddFunc(cfg.Storage.JanitorCron, func() {
		if removed, err := store.SweepTemp(tempFileMaxAge); err != nil {
			log.Warn("Temp file sweep failed: %v", err)
		} else if removed > 0 {
			log.Info("Removed %d abandoned temp files", removed)
		}
		if hist == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if deleted, err := hist.Prune(ctx, cfg.Storage.HistoryKeep); err != nil {
			log.Warn("History prune failed: %v", err)
		} else if deleted > 0 {
			log.Info("Pruned %d history rows", deleted)
		}
	}); err != nil {
		log.Fatal("Invalid janitor schedule %q: %v", cfg.Storage.JanitorCron, err)
	}
	janitor.Start()
	defer janitor.Stop()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening on %s (base URL %s)", addr, cfg.Server.BaseURL)
		errCh <- server.ListenAndServe(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal("Server stopped: %v", err)
	case sig := <-sigCh:
		log.Info("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Shutdown did not complete cleanly: %v", err)
	}
}
