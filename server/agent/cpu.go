package agent

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"hle-arena/server/engine"

	"github.com/rs/zerolog"
)

// Potential scores how favourable a held card is to bet on, without search:
// an extremity bonus plus the larger of the higher/lower spreads, scaled by
// the fraction of the deck still in the pool.
func Potential(value, poolSize int) (float64, error) {
	if value < engine.MinValue || value > engine.MaxValue {
		return 0, fmt.Errorf("%w: %d", engine.ErrOutOfRange, value)
	}
	if poolSize <= 0 {
		return 0, nil
	}

	var base int
	switch value {
	case 1, 13:
		base = 7
	case 2, 12:
		base = 5
	case 6, 7, 8:
		base = 3
	default:
		base = 1
	}
	higher := engine.MaxValue - value
	lower := value - engine.MinValue
	score := float64(base + max(higher, lower))
	return score * float64(poolSize) / engine.DeckSize, nil
}

// CPU is the automated opponent.
type CPU struct {
	rng    *rand.Rand
	logger zerolog.Logger
}

func NewCPU(logger zerolog.Logger, seed int64) *CPU {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &CPU{
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger.With().Str("component", "cpu").Int64("seed", seed).Logger(),
	}
}

// ChooseMove bets the card with the highest potential (first one wins a
// tie). Low cards go Higher, high cards go Lower, the middle band is a coin
// toss over all three guesses.
func (c *CPU) ChooseMove(hand []engine.Card, poolSize int) (engine.Move, error) {
	if len(hand) == 0 {
		return engine.Move{}, errors.New("empty hand")
	}

	best := -1
	var bestScore float64
	for i, card := range hand {
		p, err := Potential(engine.Value(card), poolSize)
		if err != nil {
			return engine.Move{}, err
		}
		if best < 0 || p > bestScore {
			best, bestScore = i, p
		}
	}

	card := hand[best]
	var guess engine.Guess
	switch v := engine.Value(card); {
	case v <= 4:
		guess = engine.Higher
	case v >= 10:
		guess = engine.Lower
	default:
		guess = engine.Guesses[c.rng.Intn(len(engine.Guesses))]
	}

	c.logger.Debug().
		Strs("hand", engine.CardStrings(hand)).
		Int("pool", poolSize).
		Str("card", card.String()).
		Float64("potential", bestScore).
		Stringer("guess", guess).
		Msg("cpu move")
	return engine.Move{Index: best, Card: card, Guess: guess}, nil
}
