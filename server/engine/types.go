package engine

import (
	"fmt"
	"strings"
)

type SideID string

const (
	Player SideID = "player"
	CPU    SideID = "cpu"
)

func (s SideID) Valid() bool { return s == Player || s == CPU }

// Guess is the bet placed on the next card relative to a held card.
type Guess int

const (
	Higher Guess = iota
	Lower
	Equal
)

// Guesses lists every guess in enumeration order. Tie-breaks everywhere
// follow this order.
var Guesses = [...]Guess{Higher, Lower, Equal}

func (g Guess) Valid() bool { return g >= Higher && g <= Equal }

func (g Guess) String() string {
	switch g {
	case Higher:
		return "Higher"
	case Lower:
		return "Lower"
	case Equal:
		return "Equal"
	}
	return fmt.Sprintf("Guess(%d)", int(g))
}

func (g Guess) MarshalText() ([]byte, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGuess, int(g))
	}
	return []byte(g.String()), nil
}

func (g *Guess) UnmarshalText(b []byte) error {
	v, err := ParseGuess(string(b))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// ParseGuess accepts the label case-insensitively, plus the one-letter
// shorthands h/l/e.
func ParseGuess(s string) (Guess, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "higher", "h":
		return Higher, nil
	case "lower", "l":
		return Lower, nil
	case "equal", "e":
		return Equal, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidGuess, s)
}

// Outcome of one resolved guess. Delta is the nominal amount won or lost,
// before any clamping of the score at zero.
type Outcome struct {
	Won   bool `json:"won"`
	Delta int  `json:"delta"`
}

// Move is a recommendation: bet Card (held at Index) with Guess.
type Move struct {
	Index int   `json:"index"`
	Card  Card  `json:"card"`
	Guess Guess `json:"guess"`
}

func (m Move) String() string { return fmt.Sprintf("%s %s", m.Card, m.Guess) }

type TurnResult struct {
	Side    SideID  `json:"side"`
	Index   int     `json:"index"`
	Current Card    `json:"current"`
	Next    Card    `json:"next"`
	Guess   Guess   `json:"guess"`
	Outcome Outcome `json:"outcome"`
	Score   int     `json:"score"`
	Refill  bool    `json:"refill"`
}
