package handlers

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/vancomm/minesweeper/internal/game"
)

func iterBySep(s string, sep string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		i := 0
		found := true
		var piece string
		for found {
			piece, s, found = strings.Cut(s, sep)
			if !yield(i, piece) {
				return
			}
			i += 1
		}
	}
}

// commandNargs lists the websocket commands: g(et), o(pen), f(lag),
// c(hord), h(int) and q(uit).
var commandNargs = map[string]int{
	"g": 0,
	"o": 2,
	"f": 2,
	"c": 2,
	"h": 0,
	"q": 0,
}

type command struct {
	name     string
	col, row int
}

func parseCommand(c string) (cmd command, err error) {
	parts := strings.Fields(c)
	if len(parts) == 0 {
		return command{}, fmt.Errorf("%w: empty command", ErrBadQuery)
	}

	nargs, ok := commandNargs[parts[0]]
	if !ok {
		return command{}, fmt.Errorf("%w: unknown command %q", ErrBadQuery, parts[0])
	}
	if nargs != len(parts)-1 {
		return command{}, fmt.Errorf("%w: %q takes %d arguments", ErrBadQuery, parts[0], nargs)
	}

	cmd.name = parts[0]
	if nargs == 2 {
		if cmd.col, err = strconv.Atoi(parts[1]); err != nil {
			return command{}, fmt.Errorf("%w: column must be an int", ErrBadQuery)
		}
		if cmd.row, err = strconv.Atoi(parts[2]); err != nil {
			return command{}, fmt.Errorf("%w: row must be an int", ErrBadQuery)
		}
	}
	return cmd, nil
}

// apply plays cmd on s and reports the move for the journal, an empty move
// for g. hint is set for the h command.
func (cmd command) apply(s *game.Session) (move playedMove, hint *PointDTO, err error) {
	switch cmd.name {
	case "g":
		return playedMove{}, nil, nil
	case "o":
		return playedMove{Reveal.String(), cmd.col, cmd.row}, nil, Reveal.Apply(s, cmd.col, cmd.row)
	case "f":
		return playedMove{Flag.String(), cmd.col, cmd.row}, nil, Flag.Apply(s, cmd.col, cmd.row)
	case "c":
		return playedMove{Chord.String(), cmd.col, cmd.row}, nil, Chord.Apply(s, cmd.col, cmd.row)
	case "h":
		p, err := s.Hint()
		if err != nil {
			return playedMove{}, nil, err
		}
		return playedMove{"hint", p.Col, p.Row}, &PointDTO{Col: p.Col, Row: p.Row}, nil
	case "q":
		return playedMove{"forfeit", -1, -1}, nil, s.Forfeit()
	}
	return playedMove{}, nil, fmt.Errorf("%w: unknown command %q", ErrBadQuery, cmd.name)
}

// runCommands plays every newline separated command of text against the
// stored session and returns the new view of it.
func (g *GameHandler) runCommands(
	ctx context.Context, gameSessionID int64, text string,
) (*GameSessionDTO, error) {
	unlock := g.lock(gameSessionID)
	defer unlock()

	s, err := g.load(ctx, gameSessionID)
	if err != nil {
		return nil, err
	}
	wasFinished := s.Finished()

	var (
		hint  *PointDTO
		moves []playedMove
	)
	for _, line := range iterBySep(text, "\n") {
		cmd, err := parseCommand(line)
		if err != nil {
			return nil, err
		}
		move, h, err := cmd.apply(s)
		if err != nil {
			return nil, err
		}
		if h != nil {
			hint = h
		}
		if move.move != "" {
			moves = append(moves, move)
		}
		if s.Finished() {
			break
		}
	}

	if err := g.save(ctx, gameSessionID, s, wasFinished); err != nil {
		return nil, err
	}
	g.journalMoves(gameSessionID, s, wasFinished, moves...)
	dto := NewGameSessionDTO(gameSessionID, s)
	dto.Hint = hint
	return dto, nil
}

func (g *GameHandler) ConnectWS(w http.ResponseWriter, r *http.Request) {
	gameSessionID, err := parseSessionID(r)
	if err != nil {
		sendError(w, g.logger, err, "")
		return
	}
	if err := authorize(r, gameSessionID); err != nil {
		sendError(w, g.logger, err, "")
		return
	}
	s, err := g.load(r.Context(), gameSessionID)
	if err != nil {
		sendError(w, g.logger, err, "unable to load game session")
		return
	}

	c, err := g.ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("unable to upgrade", slog.Any("error", err))
		return
	}
	defer c.Close()

	if err := c.WriteJSON(NewGameSessionDTO(gameSessionID, s)); err != nil {
		g.logger.Error("unable to write json", slog.Any("error", err))
		return
	}

	for {
		mt, message, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.logger.Warn("abnormal ws break", slog.Any("error", err))
			}
			break
		}
		if mt != websocket.TextMessage {
			break
		}
		text := strings.TrimSpace(string(message))
		g.logger.Debug(fmt.Sprintf("\t> %s", text))

		var reply any
		dto, err := g.runCommands(r.Context(), gameSessionID, text)
		if err != nil {
			status := statusCode(err)
			if status == http.StatusInternalServerError {
				g.logger.Error("unable to process commands", slog.Any("error", err))
				return
			}
			reply = wrapError(err)
		} else {
			reply = dto
		}

		if err := c.WriteJSON(reply); err != nil {
			g.logger.Error("unable to write json", slog.Any("error", err))
			break
		}
		g.logger.Debug("\t< <session data>")
	}
}
