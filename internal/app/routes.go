package app

import (
	"hash/maphash"
	"math/rand/v2"
	"net/http"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/handlers"
	"github.com/vancomm/minesweeper/internal/middleware"
)

func createRand() *rand.Rand {
	return rand.New(rand.NewPCG(
		new(maphash.Hash).Sum64(), new(maphash.Hash).Sum64(),
	))
}

func (a *App) loadRoutes() {
	game := handlers.NewGameHandler(
		a.logger, a.repo, a.tokens, a.ws, a.journal, a.difficulties, createRand,
	)

	base := config.BasePath()
	a.router.HandleFunc("POST "+base+"/game", game.NewGame)
	a.router.HandleFunc("GET "+base+"/game/{id}", game.Fetch)
	a.router.HandleFunc("POST "+base+"/game/{id}/move", game.MakeAMove)
	a.router.HandleFunc("POST "+base+"/game/{id}/hint", game.Hint)
	a.router.HandleFunc("POST "+base+"/game/{id}/forfeit", game.Forfeit)
	a.router.HandleFunc("GET "+base+"/game/{id}/connect", game.ConnectWS)
	a.router.HandleFunc("GET "+base+"/highscores", game.Highscores)
	a.router.HandleFunc("GET "+base+"/highscores/best", game.BestHighscore)
	a.router.HandleFunc("GET "+base+"/difficulties", game.Difficulties)
	a.router.HandleFunc("GET "+base+"/status", game.Status)
}

func (a *App) handler() http.Handler {
	return middleware.Wrap(
		a.router,
		middleware.Auth(a.logger, a.tokens),
		middleware.Cors(config.AllowedOrigins()),
		middleware.Logging(a.logger),
	)
}
