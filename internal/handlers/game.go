package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/vancomm/minesweeper/internal/audit"
	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/game"
	"github.com/vancomm/minesweeper/internal/middleware"
	"github.com/vancomm/minesweeper/internal/repository"
)

const sessionLockStripes = 64

type GameHandler struct {
	logger       *slog.Logger
	repo         repository.Repository
	tokens       *config.GameTokens
	ws           *config.WebSocket
	journal      *audit.Journal
	difficulties *config.Difficulties
	newRand      func() *rand.Rand
	now          func() time.Time

	// moves on one session are serialized so concurrent requests cannot
	// overwrite each other's state
	locks [sessionLockStripes]sync.Mutex
}

func NewGameHandler(
	logger *slog.Logger,
	repo repository.Repository,
	tokens *config.GameTokens,
	ws *config.WebSocket,
	journal *audit.Journal,
	difficulties *config.Difficulties,
	newRand func() *rand.Rand,
) *GameHandler {
	return &GameHandler{
		logger:       logger,
		repo:         repo,
		tokens:       tokens,
		ws:           ws,
		journal:      journal,
		difficulties: difficulties,
		newRand:      newRand,
		now:          time.Now,
	}
}

func (g *GameHandler) lock(gameSessionID int64) func() {
	mu := &g.locks[uint64(gameSessionID)%sessionLockStripes]
	mu.Lock()
	return mu.Unlock
}

func parseSessionID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadSessionID, r.PathValue("id"))
	}
	return id, nil
}

// authorize checks that the request carries the token issued for the
// session.
func authorize(r *http.Request, gameSessionID int64) error {
	claims, ok := middleware.GameClaims(r.Context())
	if !ok {
		return ErrMissingToken
	}
	if claims.GameSessionID != gameSessionID {
		return config.ErrTokenMismatch
	}
	return nil
}

func (g *GameHandler) load(ctx context.Context, gameSessionID int64) (*game.Session, error) {
	row, err := g.repo.FetchGameSession(ctx, gameSessionID)
	if err != nil {
		return nil, err
	}
	s, err := row.Session(g.newRand(), g.now)
	if err != nil {
		return nil, fmt.Errorf("stored game %d is corrupt: %w", gameSessionID, err)
	}
	return s, nil
}

// playedMove is a journal entry waiting for the session to be saved.
type playedMove struct {
	move     string
	col, row int
}

// save persists s and records a winning time once the game is over.
func (g *GameHandler) save(
	ctx context.Context, gameSessionID int64, s *game.Session, wasFinished bool,
) error {
	if _, err := g.repo.UpdateGameSession(ctx, gameSessionID, s); err != nil {
		return err
	}
	if wasFinished {
		return nil
	}
	h, ok := repository.NewHighscore(gameSessionID, s)
	if !ok {
		return nil
	}
	err := g.repo.RecordHighscore(ctx, h)
	if errors.Is(err, repository.ErrDuplicate) {
		g.logger.Warn("highscore already recorded",
			slog.Int64("gameSessionID", gameSessionID))
		return nil
	}
	return err
}

// journalMoves writes saved moves and, on the move that ended the game, its
// outcome.
func (g *GameHandler) journalMoves(
	gameSessionID int64, s *game.Session, wasFinished bool, moves ...playedMove,
) {
	for _, m := range moves {
		g.journal.Move(gameSessionID, m.move, m.col, m.row, s)
	}
	if !wasFinished && s.Finished() {
		g.journal.GameFinished(gameSessionID, s)
	}
}

// play loads an owned session, applies action and stores the result.
func (g *GameHandler) play(
	w http.ResponseWriter, r *http.Request,
	action func(s *game.Session, dto *GameSessionDTO) (playedMove, error),
) {
	gameSessionID, err := parseSessionID(r)
	if err != nil {
		sendError(w, g.logger, err, "")
		return
	}
	if err := authorize(r, gameSessionID); err != nil {
		sendError(w, g.logger, err, "")
		return
	}

	unlock := g.lock(gameSessionID)
	defer unlock()

	s, err := g.load(r.Context(), gameSessionID)
	if err != nil {
		sendError(w, g.logger, err, "unable to load game session")
		return
	}

	wasFinished := s.Finished()
	dto := &GameSessionDTO{}
	move, err := action(s, dto)
	if err != nil {
		sendError(w, g.logger, err, "unable to apply move")
		return
	}

	if err := g.save(r.Context(), gameSessionID, s, wasFinished); err != nil {
		sendError(w, g.logger, err, "unable to save game session")
		return
	}
	g.journalMoves(gameSessionID, s, wasFinished, move)

	reply := NewGameSessionDTO(gameSessionID, s)
	reply.Hint = dto.Hint
	sendJSONOrLog(w, g.logger, reply)
}

func (g *GameHandler) NewGame(w http.ResponseWriter, r *http.Request) {
	var dto NewGameDTO
	if err := decodeQuery(&dto, r); err != nil {
		sendError(w, g.logger, err, "")
		return
	}
	difficulty, err := dto.Resolve(g.difficulties)
	if err != nil {
		sendError(w, g.logger, err, "")
		return
	}

	s, err := game.New(difficulty.Name, difficulty.GameParams, g.newRand(), g.now)
	if err != nil {
		sendError(w, g.logger, err, "unable to create game")
		return
	}

	row, err := g.repo.CreateGameSession(r.Context(), s)
	if err != nil {
		sendError(w, g.logger, err, "unable to create game session")
		return
	}

	token, err := g.tokens.Sign(row.GameSessionID)
	if err != nil {
		sendError(w, g.logger, err, "unable to sign game token")
		return
	}

	g.journal.GameCreated(row.GameSessionID, s)
	g.logger.Debug("game created",
		slog.Int64("gameSessionID", row.GameSessionID),
		slog.String("seed", difficulty.Seed()))

	reply := NewGameSessionDTO(row.GameSessionID, s)
	reply.Token = token
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	sendJSONOrLog(w, g.logger, reply)
}

func (g *GameHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	gameSessionID, err := parseSessionID(r)
	if err != nil {
		sendError(w, g.logger, err, "")
		return
	}
	s, err := g.load(r.Context(), gameSessionID)
	if err != nil {
		sendError(w, g.logger, err, "unable to load game session")
		return
	}
	sendJSONOrLog(w, g.logger, NewGameSessionDTO(gameSessionID, s))
}

func (g *GameHandler) MakeAMove(w http.ResponseWriter, r *http.Request) {
	var dto MoveDTO
	if err := decodeQuery(&dto, r); err != nil {
		sendError(w, g.logger, err, "")
		return
	}
	move, err := ParseMove(dto.Move)
	if err != nil {
		sendError(w, g.logger, err, "")
		return
	}

	g.play(w, r, func(s *game.Session, _ *GameSessionDTO) (playedMove, error) {
		if err := move.Apply(s, dto.Col, dto.Row); err != nil {
			return playedMove{}, err
		}
		return playedMove{move.String(), dto.Col, dto.Row}, nil
	})
}

func (g *GameHandler) Hint(w http.ResponseWriter, r *http.Request) {
	g.play(w, r, func(s *game.Session, dto *GameSessionDTO) (playedMove, error) {
		p, err := s.Hint()
		if err != nil {
			return playedMove{}, err
		}
		dto.Hint = &PointDTO{Col: p.Col, Row: p.Row}
		return playedMove{"hint", p.Col, p.Row}, nil
	})
}

func (g *GameHandler) Forfeit(w http.ResponseWriter, r *http.Request) {
	g.play(w, r, func(s *game.Session, _ *GameSessionDTO) (playedMove, error) {
		if err := s.Forfeit(); err != nil {
			return playedMove{}, err
		}
		return playedMove{"forfeit", -1, -1}, nil
	})
}
