package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/mines"
	"github.com/vancomm/minesweeper/internal/repository"
)

const (
	defaultHighscoreLimit = 10
	maxHighscoreLimit     = 100
)

func (dto HighscoresDTO) Filter(difficulties *config.Difficulties) (repository.HighscoreFilter, error) {
	filter := repository.HighscoreFilter{Limit: defaultHighscoreLimit}
	if dto.Difficulty != "" {
		d, err := difficulties.Lookup(dto.Difficulty)
		if err != nil {
			if !strings.EqualFold(dto.Difficulty, customDifficulty) {
				return filter, fmt.Errorf("%w: %w", ErrBadQuery, err)
			}
			d.Name = customDifficulty
		}
		filter.Difficulty = &d.Name
	}
	if dto.Seed != "" {
		params, err := mines.ParseSeed(dto.Seed)
		if err != nil {
			return filter, fmt.Errorf("%w: %w", ErrBadQuery, err)
		}
		filter.GameParams = params
	}
	switch {
	case dto.Limit < 0:
		return filter, fmt.Errorf("%w: negative limit", ErrBadQuery)
	case dto.Limit > 0:
		filter.Limit = min(dto.Limit, maxHighscoreLimit)
	}
	return filter, nil
}

func (g *GameHandler) Highscores(w http.ResponseWriter, r *http.Request) {
	var dto HighscoresDTO
	if err := decodeQuery(&dto, r); err != nil {
		sendError(w, g.logger, err, "")
		return
	}
	filter, err := dto.Filter(g.difficulties)
	if err != nil {
		sendError(w, g.logger, err, "")
		return
	}

	highscores, err := g.repo.GetHighscores(r.Context(), filter)
	if err != nil {
		sendError(w, g.logger.With(slog.Any("filter", filter)), err,
			"failed to fetch highscores")
		return
	}
	sendJSONOrLog(w, g.logger, highscores)
}

// BestHighscore replies with the fastest score matching the query.
func (g *GameHandler) BestHighscore(w http.ResponseWriter, r *http.Request) {
	var dto HighscoresDTO
	if err := decodeQuery(&dto, r); err != nil {
		sendError(w, g.logger, err, "")
		return
	}
	filter, err := dto.Filter(g.difficulties)
	if err != nil {
		sendError(w, g.logger, err, "")
		return
	}

	best, err := repository.BestTime(r.Context(), g.repo, filter)
	if err != nil {
		sendError(w, g.logger, err, "failed to fetch best time")
		return
	}
	sendJSONOrLog(w, g.logger, best)
}

func (g *GameHandler) Difficulties(w http.ResponseWriter, r *http.Request) {
	sendJSONOrLog(w, g.logger, map[string]any{
		"default":      g.difficulties.DefaultDifficulty().Name,
		"difficulties": g.difficulties.Presets,
	})
}

type Status struct {
	Status     string `json:"status"`
	Difficulty string `json:"default_difficulty"`
}

func (g *GameHandler) Status(w http.ResponseWriter, r *http.Request) {
	sendJSONOrLog(w, g.logger, Status{
		Status:     "ok",
		Difficulty: g.difficulties.DefaultDifficulty().Name,
	})
}
