package engine

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const (
	MinValue = 1
	MaxValue = 13
	DeckSize = 52
)

const (
	rankChars = " A23456789TJQK"
	suitChars = "cdhs"
)

// Card is immutable once dealt. Rank runs Ace(1)..King(13); suit never
// affects value or comparisons. e.g. "As" => rank 1, suit 's'
type Card struct {
	Rank int
	Suit byte
}

// Value maps a card to 1..13 with Ace low.
func Value(c Card) int { return c.Rank }

func (c Card) String() string {
	if c.Rank < MinValue || c.Rank > MaxValue {
		return fmt.Sprintf("?%c", c.Suit)
	}
	return fmt.Sprintf("%c%c", rankChars[c.Rank], c.Suit)
}

func (c Card) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Card) UnmarshalText(b []byte) error {
	p, err := ParseCard(string(b))
	if err != nil {
		return err
	}
	*c = p
	return nil
}

// ParseCard reads "As", "10h", "Td", "qc". Rank is case-insensitive, suit
// is one of c/d/h/s.
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return Card{}, fmt.Errorf("%w: %q", ErrBadCard, s)
	}
	rs, suit := strings.ToUpper(s[:len(s)-1]), s[len(s)-1]
	if suit >= 'A' && suit <= 'Z' {
		suit += 'a' - 'A'
	}
	if !strings.ContainsRune(suitChars, rune(suit)) {
		return Card{}, fmt.Errorf("%w: suit in %q", ErrBadCard, s)
	}
	if rs == "10" {
		rs = "T"
	}
	if len(rs) != 1 {
		return Card{}, fmt.Errorf("%w: rank in %q", ErrBadCard, s)
	}
	rank := strings.IndexByte(rankChars, rs[0])
	if rank < MinValue {
		return Card{}, fmt.Errorf("%w: rank in %q", ErrBadCard, s)
	}
	return Card{Rank: rank, Suit: suit}, nil
}

func ParseCards(ss []string) ([]Card, error) {
	out := make([]Card, 0, len(ss))
	for _, s := range ss {
		c, err := ParseCard(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func CardStrings(cs []Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

// Values returns the numeric rank of each card, in order.
func Values(cs []Card) []int {
	out := make([]int, len(cs))
	for i, c := range cs {
		out[i] = Value(c)
	}
	return out
}

// NewDeck returns a freshly shuffled 52-card deck.
func NewDeck(seed int64) []Card {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed))
	deck := FullDeck()
	shuffle(r, deck)
	return deck
}

func shuffle(r *rand.Rand, deck []Card) {
	for i := len(deck) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// WinningGuess is the guess that would have won for this pair of cards.
func WinningGuess(current, next Card) Guess {
	switch {
	case Value(next) > Value(current):
		return Higher
	case Value(next) < Value(current):
		return Lower
	default:
		return Equal
	}
}
