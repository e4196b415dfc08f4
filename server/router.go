// server/router.go
package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hle-arena/server/agent"
	"hle-arena/server/engine"
	"hle-arena/server/judge"
	"hle-arena/server/learn"
	"hle-arena/server/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// api serves advice and the game history. db may be nil, in which case
// only the stateless routes answer.
type api struct {
	db     *store.DB
	nb     *learn.Classifier
	k      float64
	logger zerolog.Logger
}

func Router(db *store.DB, nb *learn.Classifier, logger zerolog.Logger) http.Handler {
	a := &api{db: db, nb: nb, logger: logger.With().Str("component", "http").Logger()}
	if nb != nil {
		a.k = nb.K()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/api/health", a.health)
	r.Post("/api/advise", a.advise)

	r.Group(func(r chi.Router) {
		r.Use(a.requireDB)
		r.Get("/api/games", a.listGames)
		r.Get("/api/games/last", a.lastGame)
		r.Get("/api/games/{id}", a.getGame)
		r.Get("/api/games/{id}/turns", a.gameTurns)
		r.Get("/api/training/summary", a.trainingSummary)
		r.Get("/api/rating", a.ratings)
	})
	return r
}

func (a *api) requireDB(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.db == nil {
			http.Error(w, "database not configured", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"ok": true, "db": a.db != nil}
	if a.db != nil {
		if err := a.db.Ping(r.Context()); err != nil {
			out["ok"] = false
			out["error"] = err.Error()
		}
	}
	writeJSON(w, out)
}

// adviseReq carries a hand and, optionally, the cards still to be drawn.
// Without a pool the rest of the deck is assumed.
type adviseReq struct {
	Hand []string `json:"hand"`
	Pool []string `json:"pool"`
}

type adviseResp struct {
	Hand       []engine.Card      `json:"hand"`
	PoolSize   int                `json:"pool_size"`
	Best       judge.MoveEV       `json:"best"`
	Moves      []judge.MoveEV     `json:"moves"`
	Potential  map[string]float64 `json:"potential"`
	Classifier *learn.Result      `json:"classifier,omitempty"`
	Records    int                `json:"records"`
}

func (a *api) advise(w http.ResponseWriter, r *http.Request) {
	var req adviseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	hand, err := engine.ParseCards(req.Hand)
	if err != nil || len(hand) != engine.HandSize {
		http.Error(w, "hand must be 3 cards like [\"As\",\"Td\",\"7h\"]", http.StatusBadRequest)
		return
	}
	var pool []engine.Card
	if len(req.Pool) > 0 {
		if pool, err = engine.ParseCards(req.Pool); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		rest := engine.NewStack(engine.FullDeck()...)
		for _, c := range hand {
			rest.Remove(c)
		}
		pool = rest.Cards()
	}

	moves, err := judge.Evaluate(hand, pool)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ev, best, err := judge.Plan(hand, pool)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := adviseResp{
		Best:      judge.MoveEV{Move: best, EV: ev},
		Moves:     moves,
		PoolSize:  len(pool),
		Hand:      hand,
		Potential: map[string]float64{},
	}
	for _, c := range hand {
		if p, err := agent.Potential(engine.Value(c), len(pool)); err == nil {
			resp.Potential[c.String()] = p
		}
	}
	if a.nb != nil {
		resp.Records = a.nb.Len()
		res, err := a.nb.Classify(hand)
		switch {
		case err == nil:
			resp.Classifier = &res
		case !errors.Is(err, learn.ErrUndefinedPrior):
			a.logger.Warn().Err(err).Msg("classify failed")
		}
	}
	writeJSON(w, resp)
}

func (a *api) listGames(w http.ResponseWriter, r *http.Request) {
	limit := atoiDef(r.URL.Query().Get("limit"), 20)
	if limit <= 0 || limit > 500 {
		limit = 20
	}
	games, err := a.db.ListGames(r.Context(), limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, map[string]any{"rows": orEmpty(games)})
}

func (a *api) lastGame(w http.ResponseWriter, r *http.Request) {
	g, err := a.db.LastGame(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeGame(w, r, g)
}

func (a *api) getGame(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	g, err := a.db.GetGame(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeGame(w, r, g)
}

// writeGame bundles a game with its review accuracy.
func (a *api) writeGame(w http.ResponseWriter, r *http.Request, g store.Game) {
	acc, err := a.db.GameReviewAccuracy(r.Context(), g.ID)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"game":   g,
		"review": map[string]any{"top": acc.Good, "total": acc.Total, "ratio": acc.Ratio()},
	})
}

func (a *api) gameTurns(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	side := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("side")))
	if side != "" && !engine.SideID(side).Valid() {
		http.Error(w, "side must be player or cpu", http.StatusBadRequest)
		return
	}
	turns, err := a.db.GameTurns(r.Context(), id, side)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, map[string]any{"rows": orEmpty(turns)})
}

func (a *api) trainingSummary(w http.ResponseWriter, r *http.Request) {
	counts, err := a.db.TrainingLabelCounts(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	out := map[string]any{"stored": counts}
	if a.nb != nil {
		live := map[string]int{}
		for _, g := range engine.Guesses {
			live[g.String()] = a.nb.ClassCount(g)
		}
		out["live"] = live
		out["k"] = a.k
		if p, err := a.nb.Priors(); err == nil {
			out["priors"] = p
		}
	}
	writeJSON(w, out)
}

func (a *api) ratings(w http.ResponseWriter, r *http.Request) {
	rs, err := a.db.Ratings(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, map[string]any{"rows": orEmpty(rs)})
}

func (a *api) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	a.logger.Error().Err(err).Msg("query failed")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "bad id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func orEmpty[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
