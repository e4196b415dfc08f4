package learn

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"hle-arena/server/engine"
)

func hand(t *testing.T, ss ...string) []engine.Card {
	t.Helper()
	cs, err := engine.ParseCards(ss)
	if err != nil {
		t.Fatal(err)
	}
	return cs
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-12 }

func TestClassifyEmptyHistory(t *testing.T) {
	c := New(DefaultK)
	if _, err := c.Classify(hand(t, "5c", "9d", "Ah")); !errors.Is(err, ErrUndefinedPrior) {
		t.Fatalf("err = %v, want ErrUndefinedPrior", err)
	}
	if _, err := c.Priors(); !errors.Is(err, ErrUndefinedPrior) {
		t.Fatalf("Priors err = %v", err)
	}
}

func TestClassifyUnseenClassHasZeroPrior(t *testing.T) {
	c := New(DefaultK)
	if err := c.Observe(hand(t, "5c", "9d", "Ah"), engine.Higher); err != nil {
		t.Fatal(err)
	}
	res, err := c.Classify(hand(t, "5c", "9d", "Ah"))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Scores[engine.Equal] != 0 || res.Scores[engine.Lower] != 0 {
		t.Fatalf("unseen classes scored %v", res.Scores)
	}
	if res.Best != engine.Higher || res.BestScore <= 0 {
		t.Fatalf("best = %v %v", res.Best, res.BestScore)
	}
}

func TestClassifyKnownScores(t *testing.T) {
	c := New(13)
	for _, r := range []struct {
		h     []string
		label engine.Guess
	}{
		{[]string{"5c", "9d", "Ah"}, engine.Higher},
		{[]string{"5d", "2d", "3h"}, engine.Higher},
		{[]string{"Qc", "9s", "As"}, engine.Lower},
	} {
		if err := c.Observe(hand(t, r.h...), r.label); err != nil {
			t.Fatal(err)
		}
	}
	pri, err := c.Priors()
	if err != nil {
		t.Fatal(err)
	}
	if !near(pri[engine.Higher], 2.0/3) || !near(pri[engine.Lower], 1.0/3) || pri[engine.Equal] != 0 {
		t.Fatalf("priors = %v", pri)
	}

	res, err := c.Classify(hand(t, "5h", "9h", "Ad"))
	if err != nil {
		t.Fatal(err)
	}
	wantHigher := 2.0 / 3 * (3.0 / 15) * (2.0 / 15) * (2.0 / 15)
	wantLower := 1.0 / 3 * (1.0 / 14) * (2.0 / 14) * (2.0 / 14)
	if !near(res.Scores[engine.Higher], wantHigher) || !near(res.Scores[engine.Lower], wantLower) {
		t.Fatalf("scores = %v, want H=%v L=%v", res.Scores, wantHigher, wantLower)
	}
	if res.Best != engine.Higher || !near(res.BestScore, wantHigher) {
		t.Fatalf("best = %v %v", res.Best, res.BestScore)
	}
}

func TestSmoothingConstantIsConfigurable(t *testing.T) {
	a, b := New(3), New(13)
	for _, c := range []*Classifier{a, b} {
		if err := c.Observe(hand(t, "5c", "9d", "Ah"), engine.Lower); err != nil {
			t.Fatal(err)
		}
	}
	ra, _ := a.Classify(hand(t, "5c", "9d", "Ah"))
	rb, _ := b.Classify(hand(t, "5c", "9d", "Ah"))
	if !near(ra.Scores[engine.Lower], math.Pow(2.0/4, 3)) || !near(rb.Scores[engine.Lower], math.Pow(2.0/14, 3)) {
		t.Fatalf("K=3 %v, K=13 %v", ra.Scores, rb.Scores)
	}
	if New(0).K() != DefaultK {
		t.Fatal("non-positive K should fall back to the default")
	}
}

func TestScoreMonotoneInMatchCount(t *testing.T) {
	few, more := New(DefaultK), New(DefaultK)
	_ = few.ObserveValues([3]int{5, 2, 2}, engine.Higher)
	_ = few.ObserveValues([3]int{3, 3, 3}, engine.Higher)
	_ = more.ObserveValues([3]int{5, 2, 2}, engine.Higher)
	_ = more.ObserveValues([3]int{5, 3, 3}, engine.Higher)

	q := [3]int{5, 4, 4}
	rf, err := few.ClassifyValues(q)
	if err != nil {
		t.Fatal(err)
	}
	rm, err := more.ClassifyValues(q)
	if err != nil {
		t.Fatal(err)
	}
	if rm.Scores[engine.Higher] < rf.Scores[engine.Higher] {
		t.Fatalf("more matches scored lower: %v < %v", rm.Scores[engine.Higher], rf.Scores[engine.Higher])
	}
}

func TestObserveNeverLowersObservedClass(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	c := New(DefaultK)
	randVals := func() [3]int {
		return [3]int{1 + r.Intn(13), 1 + r.Intn(13), 1 + r.Intn(13)}
	}
	_ = c.ObserveValues(randVals(), engine.Equal)
	for i := 0; i < 300; i++ {
		vals := randVals()
		label := engine.Guesses[r.Intn(3)]
		before, err := c.ClassifyValues(vals)
		if err != nil {
			t.Fatal(err)
		}
		if err := c.ObserveValues(vals, label); err != nil {
			t.Fatal(err)
		}
		after, err := c.ClassifyValues(vals)
		if err != nil {
			t.Fatal(err)
		}
		if after.Scores[label] < before.Scores[label] {
			t.Fatalf("step %d: %v score dropped %v -> %v", i, label, before.Scores[label], after.Scores[label])
		}
	}
	if c.Len() != 301 {
		t.Fatalf("len = %d", c.Len())
	}
	pri, _ := c.Priors()
	if !near(pri[0]+pri[1]+pri[2], 1) {
		t.Fatalf("priors sum to %v", pri[0]+pri[1]+pri[2])
	}
}

func TestObserveRejects(t *testing.T) {
	c := New(DefaultK)
	if err := c.Observe(hand(t, "5c", "9d", "Ah"), engine.Guess(3)); !errors.Is(err, engine.ErrInvalidGuess) {
		t.Errorf("label 3: %v", err)
	}
	if err := c.Observe(hand(t, "5c", "9d"), engine.Higher); !errors.Is(err, engine.ErrHandSize) {
		t.Errorf("short hand: %v", err)
	}
	if err := c.ObserveValues([3]int{0, 4, 4}, engine.Higher); !errors.Is(err, engine.ErrOutOfRange) {
		t.Errorf("value 0: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("rejected observations were stored: %d", c.Len())
	}
}

func TestRestoreKeepsOrder(t *testing.T) {
	c := New(DefaultK)
	recs := []Record{
		{Values: [3]int{1, 2, 3}, Label: engine.Higher},
		{Values: [3]int{13, 12, 11}, Label: engine.Lower},
		{Values: [3]int{7, 7, 7}, Label: engine.Guess(8)},
		{Values: [3]int{4, 4, 4}, Label: engine.Equal},
	}
	if err := c.Restore(recs); !errors.Is(err, engine.ErrInvalidGuess) {
		t.Fatalf("err = %v", err)
	}
	got := c.Records()
	if len(got) != 2 || got[0] != recs[0] || got[1] != recs[1] {
		t.Fatalf("records = %+v", got)
	}
	if c.ClassCount(engine.Higher) != 1 || c.ClassCount(engine.Lower) != 1 || c.ClassCount(engine.Equal) != 0 {
		t.Fatal("class counts")
	}
}
