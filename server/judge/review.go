package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"hle-arena/server/engine"
	"hle-arena/server/store"
)

const Solver = "Expectimax"

// Review compares the move actually played with the planner's best move
// for the same hand and pool.
type Review struct {
	Chosen MoveEV   `json:"chosen"`
	Best   MoveEV   `json:"best"`
	Gap    float64  `json:"gap"`
	IsTop  bool     `json:"is_top"`
	All    []MoveEV `json:"all"`
}

// ReviewTurn scores chosen against every alternative. A choice within eps
// points of the best counts as a top move.
func ReviewTurn(hand, pool []engine.Card, chosen engine.Move, eps float64) (Review, error) {
	if chosen.Index < 0 || chosen.Index >= len(hand) {
		return Review{}, fmt.Errorf("%w: %d", engine.ErrBadIndex, chosen.Index)
	}
	if !chosen.Guess.Valid() {
		return Review{}, fmt.Errorf("%w: %d", engine.ErrInvalidGuess, int(chosen.Guess))
	}
	evs, err := Evaluate(hand, pool)
	if err != nil {
		return Review{}, err
	}
	best := evs[0]
	var picked MoveEV
	for _, e := range evs {
		if e.EV > best.EV {
			best = e
		}
		if e.Move.Index == chosen.Index && e.Move.Guess == chosen.Guess {
			picked = e
		}
	}
	gap := best.EV - picked.EV
	return Review{
		Chosen: picked,
		Best:   best,
		Gap:    gap,
		IsTop:  gap <= math.Max(eps, 0),
		All:    evs,
	}, nil
}

// ReviewLog rebuilds a stored turn and reviews it.
func ReviewLog(t store.TurnLog, eps float64) (Review, error) {
	hand, err := engine.ParseCards(t.Hand)
	if err != nil {
		return Review{}, fmt.Errorf("turn %d hand: %w", t.ID, err)
	}
	pool, err := engine.ParseCards(t.Pool)
	if err != nil {
		return Review{}, fmt.Errorf("turn %d pool: %w", t.ID, err)
	}
	guess, err := engine.ParseGuess(t.Guess)
	if err != nil {
		return Review{}, fmt.Errorf("turn %d: %w", t.ID, err)
	}
	return ReviewTurn(hand, pool, engine.Move{Index: t.CardIndex, Guess: guess}, eps)
}

// ReviewGame re-scores every player turn of a game with the planner and
// writes one turn_eval row per turn. Turns that can't be rebuilt are skipped.
func ReviewGame(ctx context.Context, db *store.DB, gameID int64, eps float64) (int, error) {
	turns, err := db.GameTurns(ctx, gameID, string(engine.Player))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range turns {
		rv, err := ReviewLog(t, eps)
		if err != nil {
			continue
		}
		evs := make(map[string]float64, len(rv.All))
		for _, e := range rv.All {
			evs[e.Move.String()] = e.EV
		}
		raw, _ := json.Marshal(evs)
		if err := db.InsertTurnEval(ctx, store.TurnEval{
			TurnLogID: t.ID,
			Solver:    Solver,
			EVsJSON:   string(raw),
			BestCard:  rv.Best.Move.Card.String(),
			BestGuess: rv.Best.Move.Guess.String(),
			EVChosen:  rv.Chosen.EV,
			EVBest:    rv.Best.EV,
			EVGap:     rv.Gap,
			IsTop:     rv.IsTop,
		}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
