package judge

import (
	"fmt"

	"hle-arena/server/engine"
)

// MoveEV is the expected points of betting Move, averaged over every card
// that could come out of the pool next.
type MoveEV struct {
	Move engine.Move `json:"move"`
	EV   float64     `json:"ev"`
}

// Utility is the points a guess on card would earn if candidate came next.
// A Higher/Lower guess is paid by the gap either way; Equal is all or
// nothing.
func Utility(card, candidate engine.Card, guess engine.Guess) float64 {
	cv, nv := engine.Value(card), engine.Value(candidate)
	gap := float64(nv - cv)
	if gap < 0 {
		gap = -gap
	}
	switch guess {
	case engine.Higher:
		if nv > cv {
			return gap
		}
		return -gap
	case engine.Lower:
		if nv < cv {
			return gap
		}
		return -gap
	default:
		if nv == cv {
			return engine.EqualReward
		}
		return -engine.EqualReward
	}
}

// Evaluate returns the expectation of every (card, guess) pair, hand order
// first then Higher, Lower, Equal.
func Evaluate(hand, pool []engine.Card) ([]MoveEV, error) {
	if len(pool) == 0 {
		return nil, engine.ErrEmptyPool
	}
	for _, c := range hand {
		if v := engine.Value(c); v < engine.MinValue || v > engine.MaxValue {
			return nil, fmt.Errorf("%w: %v", engine.ErrOutOfRange, c)
		}
	}

	p := 1 / float64(len(pool))
	out := make([]MoveEV, 0, len(hand)*len(engine.Guesses))
	for i, card := range hand {
		for _, guess := range engine.Guesses {
			var sum float64
			for _, next := range pool {
				sum += Utility(card, next, guess)
			}
			out = append(out, MoveEV{
				Move: engine.Move{Index: i, Card: card, Guess: guess},
				EV:   p * sum,
			})
		}
	}
	return out, nil
}

// Plan picks the pair with the highest expectation; the earliest pair in
// enumeration order wins a tie.
func Plan(hand, pool []engine.Card) (float64, engine.Move, error) {
	evs, err := Evaluate(hand, pool)
	if err != nil {
		return 0, engine.Move{}, err
	}
	if len(evs) == 0 {
		return 0, engine.Move{}, fmt.Errorf("%w: no cards in hand", engine.ErrHandSize)
	}
	best := evs[0]
	for _, e := range evs[1:] {
		if e.EV > best.EV {
			best = e
		}
	}
	return best.EV, best.Move, nil
}
