package engine

import "fmt"

const (
	TiePenalty  = 5
	EqualReward = 20
)

// Score resolves a guess without touching any side. A Higher/Lower guess that
// meets an equal card costs the flat tie penalty and nothing else.
func Score(current, next Card, guess Guess) (Outcome, error) {
	cv, nv := Value(current), Value(next)
	diff := nv - cv
	if diff < 0 {
		diff = -diff
	}
	switch guess {
	case Higher:
		switch {
		case nv > cv:
			return Outcome{Won: true, Delta: diff}, nil
		case nv == cv:
			return Outcome{Delta: TiePenalty}, nil
		}
		return Outcome{Delta: diff}, nil
	case Lower:
		switch {
		case nv < cv:
			return Outcome{Won: true, Delta: diff}, nil
		case nv == cv:
			return Outcome{Delta: TiePenalty}, nil
		}
		return Outcome{Delta: diff}, nil
	case Equal:
		return Outcome{Won: nv == cv, Delta: EqualReward}, nil
	}
	return Outcome{}, fmt.Errorf("%w: %d", ErrInvalidGuess, int(guess))
}

// apply adds or deducts the outcome; scores never go below zero.
func (s *Side) apply(o Outcome) {
	if o.Won {
		s.Score += o.Delta
		return
	}
	s.Score -= o.Delta
	if s.Score < 0 {
		s.Score = 0
	}
}

// Resolve scores guess for side and updates its score. Nothing changes when
// the side or the guess is invalid.
func (g *GameState) Resolve(current, next Card, guess Guess, id SideID) (Outcome, error) {
	s, err := g.Side(id)
	if err != nil {
		return Outcome{}, err
	}
	o, err := Score(current, next, guess)
	if err != nil {
		return Outcome{}, err
	}
	s.apply(o)
	return o, nil
}
