package engine

import (
	"fmt"
	"math/rand"
	"time"
)

const (
	HandSize      = 3
	DefaultTarget = 50
)

type Config struct {
	Seed   int64 // 0 => time-based
	Target int   // score that ends the game; 0 => DefaultTarget
}

type Side struct {
	ID    SideID
	Score int
	Hand  []Card
}

// GameState owns everything that moves during a game. It is not safe for
// concurrent use; a game is played one turn at a time.
type GameState struct {
	Cfg     Config
	Player  *Side
	CPU     *Side
	Pool    *Stack
	Discard *Stack
	Turns   int
	Refills int

	rng *rand.Rand
}

// NewGame shuffles a full deck and deals both hands.
func NewGame(cfg Config) *GameState {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(cfg.Seed))
	deck := FullDeck()
	shuffle(r, deck)
	g, _ := newGame(cfg, r, deck) // a full deck always covers both hands
	return g
}

// NewGameWithDeck deals from deck exactly as given (front first). Refills
// still shuffle with a generator seeded from cfg.Seed.
func NewGameWithDeck(cfg Config, deck []Card) (*GameState, error) {
	return newGame(cfg, rand.New(rand.NewSource(cfg.Seed)), deck)
}

func newGame(cfg Config, r *rand.Rand, deck []Card) (*GameState, error) {
	if cfg.Target <= 0 {
		cfg.Target = DefaultTarget
	}
	g := &GameState{
		Cfg:     cfg,
		Player:  &Side{ID: Player},
		CPU:     &Side{ID: CPU},
		Pool:    NewStack(deck...),
		Discard: NewStack(),
		rng:     r,
	}
	var err error
	if g.Player.Hand, err = g.Pool.Deal(HandSize); err != nil {
		return nil, fmt.Errorf("deal player: %w", err)
	}
	if g.CPU.Hand, err = g.Pool.Deal(HandSize); err != nil {
		return nil, fmt.Errorf("deal cpu: %w", err)
	}
	return g, nil
}

func (g *GameState) Side(id SideID) (*Side, error) {
	switch id {
	case Player:
		return g.Player, nil
	case CPU:
		return g.CPU, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidSide, string(id))
}

// Terminate reports whether side has reached the target score.
func (g *GameState) Terminate(id SideID) bool {
	s, err := g.Side(id)
	if err != nil {
		return false
	}
	return s.Score >= g.Cfg.Target
}

func (g *GameState) Over() bool { return g.Terminate(Player) || g.Terminate(CPU) }

// Winner is the side that reached the target, the player first.
func (g *GameState) Winner() (SideID, bool) {
	switch {
	case g.Terminate(Player):
		return Player, true
	case g.Terminate(CPU):
		return CPU, true
	}
	return "", false
}

// CardsInPlay counts pool, discard and both hands. Always DeckSize for a
// game started from a full deck.
func (g *GameState) CardsInPlay() int {
	return g.Pool.Size() + g.Discard.Size() + len(g.Player.Hand) + len(g.CPU.Hand)
}

// Refill merges the discard pile back into the pool and reshuffles.
func (g *GameState) Refill() {
	g.Pool.Add(g.Discard.Cards()...)
	g.Pool.Shuffle(g.rng)
	g.Discard.Clear()
	g.Refills++
}

// Draw takes the next card, refilling first when the pool is empty.
func (g *GameState) Draw() (c Card, refilled bool, err error) {
	if g.Pool.Size() == 0 {
		g.Refill()
		refilled = true
	}
	cs, err := g.Pool.Deal(1)
	if err != nil {
		return Card{}, refilled, err
	}
	return cs[0], refilled, nil
}

// PlayTurn bets the card at index with guess: draws the next card, scores
// it, discards the bet card and puts the drawn card in its slot. All inputs
// are checked before anything moves.
func (g *GameState) PlayTurn(id SideID, index int, guess Guess) (TurnResult, error) {
	s, err := g.Side(id)
	if err != nil {
		return TurnResult{}, err
	}
	if index < 0 || index >= len(s.Hand) {
		return TurnResult{}, fmt.Errorf("%w: %d", ErrBadIndex, index)
	}
	if !guess.Valid() {
		return TurnResult{}, fmt.Errorf("%w: %d", ErrInvalidGuess, int(guess))
	}
	if g.Pool.Size() == 0 && g.Discard.Size() == 0 {
		return TurnResult{}, ErrEmptyPool
	}

	current := s.Hand[index]
	next, refilled, err := g.Draw()
	if err != nil {
		return TurnResult{}, err
	}
	o, err := Score(current, next, guess)
	if err != nil {
		return TurnResult{}, err
	}
	s.apply(o)
	g.Discard.Add(current)
	s.Hand[index] = next
	g.Turns++

	return TurnResult{
		Side:    id,
		Index:   index,
		Current: current,
		Next:    next,
		Guess:   guess,
		Outcome: o,
		Score:   s.Score,
		Refill:  refilled,
	}, nil
}
