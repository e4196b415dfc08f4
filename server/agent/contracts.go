package agent

import (
	"fmt"
	"strconv"
	"strings"

	"hle-arena/server/engine"
)

type Observation struct {
	Side       string   `json:"side"`     // "player" | "cpu"
	Hand       []string `json:"hand"`     // e.g. ["As","Kd","7h"]
	Values     []int    `json:"values"`   // 1..13, same order as Hand
	Score      int      `json:"score"`    // own score
	Opponent   int      `json:"opponent"` // opponent score
	Target     int      `json:"target"`
	PoolSize   int      `json:"pool_size"`
	Discarded  int      `json:"discarded"`
	Legal      []string `json:"legal_guesses"`
	TurnsSoFar int      `json:"turns"`
}

// MoveIn is a move as typed by a person or posted by a client.
type MoveIn struct {
	Index string `json:"index"`
	Guess string `json:"guess"`
}

// BuildObservation converts engine state into the view one side gets.
func BuildObservation(g *engine.GameState, id engine.SideID) (Observation, error) {
	s, err := g.Side(id)
	if err != nil {
		return Observation{}, err
	}
	opp := g.CPU
	if id == engine.CPU {
		opp = g.Player
	}
	legal := make([]string, 0, len(engine.Guesses))
	for _, gs := range engine.Guesses {
		legal = append(legal, gs.String())
	}
	return Observation{
		Side:       string(id),
		Hand:       engine.CardStrings(s.Hand),
		Values:     engine.Values(s.Hand),
		Score:      s.Score,
		Opponent:   opp.Score,
		Target:     g.Cfg.Target,
		PoolSize:   g.Pool.Size(),
		Discarded:  g.Discard.Size(),
		Legal:      legal,
		TurnsSoFar: g.Turns,
	}, nil
}

// Validate turns raw input into a move against the observation. The index
// is 0-based into the hand.
func Validate(o Observation, in MoveIn) (engine.Move, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(in.Index))
	if err != nil {
		return engine.Move{}, fmt.Errorf("%w: %q", engine.ErrBadIndex, in.Index)
	}
	if idx < 0 || idx >= len(o.Hand) {
		return engine.Move{}, fmt.Errorf("%w: %d (hand has %d cards)", engine.ErrBadIndex, idx, len(o.Hand))
	}
	guess, err := engine.ParseGuess(in.Guess)
	if err != nil {
		return engine.Move{}, err
	}
	card, err := engine.ParseCard(o.Hand[idx])
	if err != nil {
		return engine.Move{}, err
	}
	return engine.Move{Index: idx, Card: card, Guess: guess}, nil
}
