package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rdflg/rdflg/internal/application"
	appanalysis "github.com/rdflg/rdflg/internal/application/analysis"
	"github.com/rdflg/rdflg/internal/application/community"
	appnarration "github.com/rdflg/rdflg/internal/application/narration"
	"github.com/rdflg/rdflg/internal/config"
	"github.com/rdflg/rdflg/internal/domain/ai"
	domain "github.com/rdflg/rdflg/internal/domain/analysis"
	"github.com/rdflg/rdflg/internal/infra/ai/gemini"
	"github.com/rdflg/rdflg/internal/infra/ai/openai"
	"github.com/rdflg/rdflg/internal/infra/db/migrations"
	mysqlp "github.com/rdflg/rdflg/internal/infra/db/mysql"
	"github.com/rdflg/rdflg/internal/infra/db/postgres"
	"github.com/rdflg/rdflg/internal/infra/db/sqlite"
	minioStore "github.com/rdflg/rdflg/internal/infra/storage"
	"github.com/rdflg/rdflg/internal/infra/tts/elevenlabs"
)

// app holds the wired collaborators shared by the subcommands.
type app struct {
	db       *sql.DB
	repo     domain.Repository
	store    *minioStore.Store
	writer   *appanalysis.Writer
	analysis *appanalysis.Service
	narrator *appnarration.Service
}

// openRepository connects the configured database and, when asked, migrates it.
func openRepository(ctx context.Context, cfg *config.Config, log *zap.Logger) (*sql.DB, domain.Repository, error) {
	dsn := cfg.DSN()
	switch cfg.Database.Driver {
	case migrations.SQLite:
		store, err := sqlite.Open(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite open: %w", err)
		}
		return store.DB(), store, nil
	case migrations.MySQL, migrations.Postgres:
		if cfg.Database.AutoMigrate {
			if err := migrations.Up(cfg.Database.Driver, dsn); err != nil {
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info("database migrated", zap.String("driver", cfg.Database.Driver))
		}
		if cfg.Database.Driver == migrations.MySQL {
			db, err := mysqlp.Connect(ctx, dsn)
			if err != nil {
				return nil, nil, fmt.Errorf("mysql connect: %w", err)
			}
			return db, mysqlp.NewAnalysisRepository(db), nil
		}
		db, err := postgres.Connect(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		return db, postgres.NewAnalysisRepository(db), nil
	}
	return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

func newLLM(ctx context.Context, cfg *config.Config) (ai.Client, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return openai.NewClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL), nil
	case "gemini":
		return gemini.NewClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
	}
	return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
}

// newApp wires everything. The LLM client is optional so that offline
// subcommands (community, export) work without an API key.
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, needLLM bool) (*app, error) {
	db, repo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a := &app{db: db, repo: repo}

	if cfg.Minio.Enabled {
		a.store, err = minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
			log,
		)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("minio init: %w", err)
		}
	}

	var llm ai.Client
	if needLLM {
		if llm, err = newLLM(ctx, cfg); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	a.writer = &appanalysis.Writer{
		Repo:    repo,
		Timeout: cfg.AnalysisWriteTimeout(),
		Log:     log.Named("writer"),
	}
	if a.store != nil {
		a.writer.Archive = a.store
	}

	a.analysis = &appanalysis.Service{
		History: &community.Loader{Repo: repo, Size: cfg.Analysis.HistoryWindow, Log: log.Named("history")},
		Requester: &appanalysis.Requester{
			Client:     llm,
			Timeout:    cfg.LLMTimeout(),
			MaxRetries: cfg.Retries(),
			BaseDelay:  cfg.RetryBaseDelay(),
			Log:        log.Named("llm"),
		},
		Writer: a.writer,
		Repo:   repo,
		Clock:  application.SystemClock{},
		Log:    log.Named("analysis"),
		Opts: appanalysis.Options{
			TopIssues:           cfg.Analysis.TopIssues,
			ConsumerTextLimit:   cfg.Analysis.ConsumerTextLimit,
			EnterpriseTextLimit: cfg.Analysis.EnterpriseTextLimit,
			ConsumerRoundUnit:   cfg.Analysis.ConsumerRoundUnit,
			EnterpriseRoundUnit: cfg.Analysis.EnterpriseRoundUnit,
		},
	}

	a.narrator = &appnarration.Service{
		Synth:        elevenlabs.NewClient(cfg.Voice.APIKey, cfg.Voice.BaseURL, cfg.VoiceTimeout()),
		DefaultVoice: cfg.Voice.VoiceID,
		MaxChars:     cfg.Voice.MaxChars,
		Timeout:      cfg.VoiceTimeout(),
		Clock:        application.SystemClock{},
		Log:          log.Named("narration"),
	}
	if a.store != nil && cfg.Voice.Archive {
		a.narrator.Archive = a.store
	}
	return a, nil
}

// close waits for pending write-backs, then releases the database.
func (a *app) close(ctx context.Context) error {
	drainErr := a.writer.Drain(ctx)
	return errors.Join(drainErr, a.db.Close())
}
