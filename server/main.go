package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"hle-arena/server/engine"
	"hle-arena/server/learn"
	"hle-arena/server/store"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	"github.com/rs/zerolog"
)

func main() {
	cfg := LoadConfig()
	color.NoColor = color.NoColor || cfg.NoColor
	logger := NewLogger(cfg)

	var migrate, serve bool
	for _, a := range os.Args[1:] {
		switch a {
		case "--migrate":
			migrate = true
		case "--serve":
			serve = true
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchSignals(cancel)

	db := openDB(ctx, cfg, logger, migrate || cfg.AutoMigrate)
	if db != nil {
		defer db.Close(context.Background())
	}
	if migrate {
		if db == nil {
			logger.Fatal().Msg("--migrate needs a reachable DATABASE_URL")
		}
		logger.Info().Msg("migrated")
		return
	}

	nb := learn.New(cfg.SmoothingK)
	if db != nil && cfg.LearnRestore {
		restoreClassifier(ctx, db, nb, cfg.RestoreLimit, logger)
	}

	if serve {
		r := Router(db, nb, logger)
		srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadTimeout: 15 * time.Second, WriteTimeout: 20 * time.Second}
		go func() {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info().Str("port", cfg.Port).Msgf("listening on http://localhost:%s (Ctrl+C to stop)", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server stopped")
		}
		return
	}

	var in prompter
	if liner.TerminalSupported() {
		in = newLinerPrompter()
	} else {
		in = newScanPrompter(os.Stdin, os.Stdout)
	}
	err := play(ctx, cfg, in, os.Stdout, logger, nb, db)
	in.Close()
	if err != nil {
		logger.Fatal().Err(err).Msg("game aborted")
	}
}

// play runs one interactive game. Running out of input ends the game
// quietly without a winner.
func play(ctx context.Context, cfg Config, in prompter, out io.Writer, logger zerolog.Logger, nb *learn.Classifier, db *store.DB) error {
	s := newSession(cfg, in, out, logger, nb)
	s.attachDB(ctx, db)
	winner, err := s.Run(ctx)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
		fmt.Fprintln(out, "\nGoodbye.")
		logger.Info().Int("turns", s.g.Turns).Msg("game abandoned")
		return nil
	case err != nil:
		return err
	}
	s.finish(ctx, winner)
	return nil
}

// openDB connects when DATABASE_URL is set. Any failure leaves the game
// playable without persistence.
func openDB(ctx context.Context, cfg Config, logger zerolog.Logger, migrate bool) *store.DB {
	if cfg.DatabaseURL == "" {
		return nil
	}
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Warn().Err(err).Msg("DB disabled (open failed)")
		return nil
	}
	if err := db.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msg("DB disabled (ping failed)")
		db.Close(ctx)
		return nil
	}
	if migrate {
		if err := store.Migrate(ctx, db); err != nil {
			logger.Warn().Err(err).Msg("migrate failed (continuing without DB)")
			db.Close(ctx)
			return nil
		}
	}
	return db
}

// restoreClassifier replays stored training records, oldest first.
func restoreClassifier(ctx context.Context, db *store.DB, nb *learn.Classifier, limit int, logger zerolog.Logger) {
	rows, err := db.LoadTrainingRecords(ctx, limit)
	if err != nil {
		logger.Warn().Err(err).Msg("training records unavailable")
		return
	}
	recs := make([]learn.Record, 0, len(rows))
	for _, r := range rows {
		g, err := engine.ParseGuess(r.Label)
		if err != nil {
			continue
		}
		recs = append(recs, learn.Record{Values: r.Values, Label: g})
	}
	if err := nb.Restore(recs); err != nil {
		logger.Warn().Err(err).Msg("restore stopped early")
	}
	logger.Info().Int("records", nb.Len()).Msg("classifier restored")
}

func watchSignals(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
	cancel()
}
