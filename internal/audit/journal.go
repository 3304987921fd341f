// Package audit keeps a rotating JSON journal of game events, separate from
// the request log.
package audit

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/snowzach/rotatefilehook"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/game"
)

type Journal struct {
	log *logrus.Logger
}

// New opens the journal described by cfg. Without a file name every event
// is dropped.
func New(cfg *config.Audit) (*Journal, error) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.InfoLevel)

	if cfg == nil || cfg.File == "" {
		return &Journal{log: log}, nil
	}

	hook, err := rotatefilehook.NewRotateFileHook(rotatefilehook.RotateFileConfig{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Level:      logrus.InfoLevel,
		Formatter:  &logrus.JSONFormatter{},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open audit log: %w", err)
	}
	log.AddHook(hook)
	return &Journal{log: log}, nil
}

func NewWithLogger(log *logrus.Logger) *Journal {
	return &Journal{log: log}
}

func sessionFields(gameSessionID int64, s *game.Session) logrus.Fields {
	params := s.Params()
	return logrus.Fields{
		"game_session_id": gameSessionID,
		"difficulty":      s.Difficulty,
		"seed":            params.Seed(),
	}
}

func (j *Journal) GameCreated(gameSessionID int64, s *game.Session) {
	j.log.WithFields(sessionFields(gameSessionID, s)).Info("game created")
}

func (j *Journal) Move(gameSessionID int64, move string, col, row int, s *game.Session) {
	j.log.WithFields(sessionFields(gameSessionID, s)).
		WithFields(logrus.Fields{
			"move":     move,
			"col":      col,
			"row":      row,
			"revealed": s.Board.RevealedCount(),
			"flagged":  s.Board.FlaggedCount(),
		}).
		Info("move")
}

// GameFinished records the outcome. Losses are logged at warning level.
func (j *Journal) GameFinished(gameSessionID int64, s *game.Session) {
	entry := j.log.WithFields(sessionFields(gameSessionID, s)).
		WithFields(logrus.Fields{
			"won":        s.Won(),
			"dead":       s.Dead(),
			"elapsed_ms": s.Elapsed().Milliseconds(),
			"hints_left": s.HintsLeft,
		})
	if s.Won() {
		entry.Info("game won")
	} else {
		entry.Warn("game lost")
	}
}
