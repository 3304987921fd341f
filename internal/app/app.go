package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vancomm/minesweeper/internal/audit"
	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/database"
	"github.com/vancomm/minesweeper/internal/repository"
)

const shutdownTimeout = 30 * time.Second

type App struct {
	logger       *slog.Logger
	router       *http.ServeMux
	repo         repository.Repository
	tokens       *config.GameTokens
	ws           *config.WebSocket
	journal      *audit.Journal
	difficulties *config.Difficulties
	migrations   fs.FS
}

func New(logger *slog.Logger, migrations fs.FS) *App {
	return &App{
		logger:     logger,
		router:     http.NewServeMux(),
		migrations: migrations,
	}
}

// configure reads every setting from the environment and opens storage.
func (a *App) configure(ctx context.Context) error {
	storage, err := config.NewStorage()
	if err != nil {
		return err
	}
	a.tokens, err = config.NewGameTokens()
	if err != nil {
		return fmt.Errorf("unable to load game token settings: %w", err)
	}
	a.ws, err = config.NewWebSocket()
	if err != nil {
		return err
	}
	a.difficulties, err = config.NewDifficulties()
	if err != nil {
		return err
	}
	auditConfig, err := config.NewAudit()
	if err != nil {
		return err
	}
	a.journal, err = audit.New(auditConfig)
	if err != nil {
		return err
	}
	a.repo, err = database.Open(ctx, storage, a.migrations, a.logger)
	if err != nil {
		return err
	}
	return nil
}

func (a *App) Start(ctx context.Context) error {
	if err := a.configure(ctx); err != nil {
		return err
	}
	defer a.repo.Close()

	a.loadRoutes()

	addr := config.Port()
	server := &http.Server{
		Addr:              addr,
		Handler:           a.handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("server listening", slog.String("addr", addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("unable to listen and serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
