package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/game"
	"github.com/vancomm/minesweeper/internal/mines"
	"github.com/vancomm/minesweeper/internal/repository"
)

var (
	ErrMissingToken = errors.New("game token required")
	ErrBadSessionID = errors.New("invalid game session id")
	ErrBadQuery     = errors.New("invalid query")
)

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

// decodeQuery fills dst from the URL query of r.
func decodeQuery(dst any, r *http.Request) error {
	if err := decoder.Decode(dst, r.URL.Query()); err != nil {
		return fmt.Errorf("%w: %w", ErrBadQuery, err)
	}
	return nil
}

func SendJSON(w http.ResponseWriter, v any) (int, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	w.Header().Set("Content-Type", "application/json")
	return w.Write(payload)
}

func sendJSONOrLog(w http.ResponseWriter, logger *slog.Logger, v any) {
	_, err := SendJSON(w, v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		logger.Error(
			"unable to send response",
			slog.Any("response", v),
			slog.Any("error", err),
		)
	}
}

func wrapError(err error) map[string]string {
	return map[string]string{
		"error": err.Error(),
	}
}

// statusCode maps domain errors to HTTP statuses.
func statusCode(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrGameFinished),
		errors.Is(err, game.ErrNoHints),
		errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, mines.ErrBadParams),
		errors.Is(err, mines.ErrTooManyMines),
		errors.Is(err, ErrBadSessionID),
		errors.Is(err, ErrBadQuery):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingToken),
		errors.Is(err, config.ErrTokenMismatch):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// sendError replies with the status matching err. Internal errors are
// logged and hidden from the client.
func sendError(w http.ResponseWriter, logger *slog.Logger, err error, msg string) {
	status := statusCode(err)
	if status == http.StatusInternalServerError {
		logger.Error(msg, slog.Any("error", err))
		err = errors.New(http.StatusText(status))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	payload, _ := json.Marshal(wrapError(err))
	if _, werr := w.Write(payload); werr != nil {
		logger.Debug("unable to send error", slog.Any("error", werr))
	}
}
