// Package learn keeps a running naive-Bayes model of which guess wins for
// a given hand, learned from the player's resolved turns.
package learn

import (
	"errors"
	"fmt"

	"hle-arena/server/engine"
)

// DefaultK is the Laplace denominator offset: the number of values a hand
// slot can take.
const DefaultK = 13

var ErrUndefinedPrior = errors.New("class prior undefined: no training records")

const numClasses = len(engine.Guesses)

// Record is one observation: the hand values at decision time and the guess
// class that would have won.
type Record struct {
	Values [engine.HandSize]int `json:"values"`
	Label  engine.Guess         `json:"label"`
}

// Result holds an un-normalized score per class, indexed by engine.Guess.
// Scores rank classes; they are not probabilities.
type Result struct {
	Scores    [numClasses]float64 `json:"scores"`
	Best      engine.Guess        `json:"best"`
	BestScore float64             `json:"best_score"`
}

// Classifier is append-only. Counts are maintained on every Observe so a
// query never rescans the history.
type Classifier struct {
	k       float64
	records []Record

	classCount [numClasses]int
	// match[slot][value][class]
	match [engine.HandSize][engine.MaxValue + 1][numClasses]int
	prior [numClasses]float64
}

func New(k float64) *Classifier {
	if k <= 0 {
		k = DefaultK
	}
	return &Classifier{k: k}
}

func (c *Classifier) K() float64 { return c.k }

func (c *Classifier) Len() int { return len(c.records) }

// Records returns the history in insertion order.
func (c *Classifier) Records() []Record { return append([]Record(nil), c.records...) }

func handValues(hand []engine.Card) ([engine.HandSize]int, error) {
	var vals [engine.HandSize]int
	if len(hand) != engine.HandSize {
		return vals, fmt.Errorf("%w: got %d", engine.ErrHandSize, len(hand))
	}
	for i, card := range hand {
		vals[i] = engine.Value(card)
	}
	return vals, checkValues(vals)
}

func checkValues(vals [engine.HandSize]int) error {
	for _, v := range vals {
		if v < engine.MinValue || v > engine.MaxValue {
			return fmt.Errorf("%w: %d", engine.ErrOutOfRange, v)
		}
	}
	return nil
}

// Observe appends the hand with the class that won for it.
func (c *Classifier) Observe(hand []engine.Card, label engine.Guess) error {
	vals, err := handValues(hand)
	if err != nil {
		return err
	}
	return c.ObserveValues(vals, label)
}

func (c *Classifier) ObserveValues(vals [engine.HandSize]int, label engine.Guess) error {
	if !label.Valid() {
		return fmt.Errorf("%w: %d", engine.ErrInvalidGuess, int(label))
	}
	if err := checkValues(vals); err != nil {
		return err
	}
	c.records = append(c.records, Record{Values: vals, Label: label})
	c.classCount[label]++
	for slot, v := range vals {
		c.match[slot][v][label]++
	}
	c.updatePriors()
	return nil
}

// Restore replays a saved history. It stops at the first bad record and
// keeps everything before it.
func (c *Classifier) Restore(records []Record) error {
	for i, r := range records {
		if err := c.ObserveValues(r.Values, r.Label); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

func (c *Classifier) updatePriors() {
	n := float64(len(c.records))
	for i := range c.prior {
		c.prior[i] = float64(c.classCount[i]) / n
	}
}

// Priors is each class's share of the history, indexed by engine.Guess.
func (c *Classifier) Priors() ([numClasses]float64, error) {
	if len(c.records) == 0 {
		return [numClasses]float64{}, ErrUndefinedPrior
	}
	return c.prior, nil
}

// ClassCount is the number of records labelled g.
func (c *Classifier) ClassCount(g engine.Guess) int {
	if !g.Valid() {
		return 0
	}
	return c.classCount[g]
}

// Classify scores each class for hand:
//
//	prior(c) * Π_slot (matches(slot, value, c) + 1) / (count(c) + K)
//
// With no history at all the priors are undefined and it fails with
// ErrUndefinedPrior. A class never seen in a non-empty history has prior 0.
// Ties go to the earlier class in Higher, Lower, Equal order.
func (c *Classifier) Classify(hand []engine.Card) (Result, error) {
	vals, err := handValues(hand)
	if err != nil {
		return Result{}, err
	}
	return c.ClassifyValues(vals)
}

func (c *Classifier) ClassifyValues(vals [engine.HandSize]int) (Result, error) {
	if err := checkValues(vals); err != nil {
		return Result{}, err
	}
	if len(c.records) == 0 {
		return Result{}, ErrUndefinedPrior
	}

	var res Result
	for i, g := range engine.Guesses {
		score := c.prior[g]
		denom := float64(c.classCount[g]) + c.k
		for slot, v := range vals {
			score *= float64(c.match[slot][v][g]+1) / denom
		}
		res.Scores[g] = score
		if i == 0 || score > res.BestScore {
			res.Best, res.BestScore = g, score
		}
	}
	return res, nil
}
