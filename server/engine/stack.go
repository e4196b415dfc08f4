package engine

import (
	"fmt"
	"math/rand"
)

// Stack is an ordered pile of cards: the draw pool, the discard pile, or a
// hand. Dealing takes from the front.
type Stack struct {
	cards []Card
}

func NewStack(cards ...Card) *Stack {
	return &Stack{cards: append([]Card(nil), cards...)}
}

func (s *Stack) Size() int { return len(s.cards) }

// Cards returns a copy in draw order.
func (s *Stack) Cards() []Card { return append([]Card(nil), s.cards...) }

func (s *Stack) Shuffle(r *rand.Rand) { shuffle(r, s.cards) }

// Deal removes n cards from the front. It fails without removing anything
// when fewer than n remain.
func (s *Stack) Deal(n int) ([]Card, error) {
	if n < 0 {
		return nil, fmt.Errorf("deal %d cards", n)
	}
	if n > len(s.cards) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrEmptyPool, n, len(s.cards))
	}
	out := append([]Card(nil), s.cards[:n]...)
	s.cards = s.cards[n:]
	return out, nil
}

func (s *Stack) Add(cards ...Card) { s.cards = append(s.cards, cards...) }

func (s *Stack) Clear() { s.cards = nil }

func (s *Stack) Contains(c Card) bool { return s.index(c) >= 0 }

// Remove takes out the first card equal by rank and suit.
func (s *Stack) Remove(c Card) bool {
	i := s.index(c)
	if i < 0 {
		return false
	}
	s.cards = append(s.cards[:i], s.cards[i+1:]...)
	return true
}

func (s *Stack) index(c Card) int {
	for i, x := range s.cards {
		if x == c {
			return i
		}
	}
	return -1
}
