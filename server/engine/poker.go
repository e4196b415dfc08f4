package engine

import (
	poker "github.com/paulhankin/poker"
)

// Bridge to the paulhankin/poker card model. Its ranks are already Ace=1..King=13,
// which is exactly our valuation.

var phSuits = [4]poker.Suit{poker.Club, poker.Diamond, poker.Heart, poker.Spade}

func toPH(c Card) (poker.Card, error) {
	var (
		s    poker.Suit
		zero poker.Card
	)
	switch c.Suit {
	case 'c':
		s = poker.Club
	case 'd':
		s = poker.Diamond
	case 'h':
		s = poker.Heart
	case 's':
		s = poker.Spade
	default:
		return zero, ErrBadCard
	}
	return poker.MakeCard(s, poker.Rank(c.Rank))
}

// FullDeck returns the 52 cards in suit-major order, validated against the
// poker library's card space.
func FullDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for si, s := range phSuits {
		for r := MinValue; r <= MaxValue; r++ {
			if _, err := poker.MakeCard(s, poker.Rank(r)); err != nil {
				continue
			}
			deck = append(deck, Card{Rank: r, Suit: suitChars[si]})
		}
	}
	return deck
}

// Describe names a 3-card hand the poker way, e.g. "pair of 7s". Returns ""
// for anything the library can't describe.
func Describe(hand []Card) string {
	pcs := make([]poker.Card, 0, len(hand))
	for _, c := range hand {
		pc, err := toPH(c)
		if err != nil {
			return ""
		}
		pcs = append(pcs, pc)
	}
	d, err := poker.Describe(pcs)
	if err != nil {
		return ""
	}
	return d
}
