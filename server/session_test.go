package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"hle-arena/server/engine"
	"hle-arena/server/learn"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

func testConfig(target int) Config {
	return Config{
		DeckSeed:      7,
		Target:        target,
		SmoothingK:    learn.DefaultK,
		Advise:        true,
		ReviewEpsilon: 0.25,
		EloStart:      1500,
		EloK:          24,
	}
}

// newScriptedSession deals the unshuffled deck: the player holds Ac 2c 3c,
// the CPU 4c 5c 6c and 7c is drawn first.
func newScriptedSession(t *testing.T, target int, input string) (*session, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true
	var out bytes.Buffer
	s := newSession(testConfig(target), newScanPrompter(strings.NewReader(input), io.Discard), &out, zerolog.Nop(), nil)
	g, err := engine.NewGameWithDeck(engine.Config{Seed: 7, Target: target}, engine.FullDeck())
	if err != nil {
		t.Fatalf("NewGameWithDeck: %v", err)
	}
	s.g = g
	return s, &out
}

func TestSessionPlayerReachesTarget(t *testing.T) {
	s, out := newScriptedSession(t, 6, "x\nh\n0\nhigher\n")

	winner, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if winner != engine.Player {
		t.Fatalf("winner = %q, want player", winner)
	}
	if s.g.Player.Score != 6 || s.g.Turns != 1 {
		t.Fatalf("score=%d turns=%d, want 6 and 1", s.g.Player.Score, s.g.Turns)
	}
	if !strings.Contains(out.String(), "Error:") {
		t.Fatalf("bad index was not reported:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Planner:") {
		t.Fatalf("advice missing:\n%s", out.String())
	}

	if s.nb.Len() != 1 || s.nb.ClassCount(engine.Higher) != 1 {
		t.Fatalf("classifier len=%d higher=%d, want 1 and 1", s.nb.Len(), s.nb.ClassCount(engine.Higher))
	}
	st := s.stats[engine.Player]
	if st.Turns != 1 || st.Wins != 1 || st.PointsWon != 6 {
		t.Fatalf("stats = %+v", *st)
	}
	// Ac Higher is the planner's pick on a fresh deck.
	if st.AdvisedTurn != 1 || st.TopMoves != 1 {
		t.Fatalf("advice tally = %d/%d, want 1/1", st.TopMoves, st.AdvisedTurn)
	}

	s.finish(context.Background(), winner)
	if !strings.Contains(out.String(), "Player won with 6 points") {
		t.Fatalf("summary missing:\n%s", out.String())
	}
}

func TestSessionEndsOnEOF(t *testing.T) {
	s, _ := newScriptedSession(t, 50, "0\nh\n")

	_, err := s.Run(context.Background())
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if s.g.Turns != 2 {
		t.Fatalf("turns = %d, want player and cpu turn", s.g.Turns)
	}
	if n := s.g.CardsInPlay(); n != engine.DeckSize {
		t.Fatalf("cards in play = %d", n)
	}
	if s.stats[engine.CPU].Turns != 1 {
		t.Fatalf("cpu turns = %d", s.stats[engine.CPU].Turns)
	}
}

func TestSessionCancelled(t *testing.T) {
	s, _ := newScriptedSession(t, 50, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestPlayHandlesEOF(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	in := newScanPrompter(strings.NewReader(""), io.Discard)
	if err := play(context.Background(), testConfig(50), in, &out, zerolog.Nop(), nil, nil); err != nil {
		t.Fatalf("play: %v", err)
	}
	if !strings.Contains(out.String(), "Goodbye.") {
		t.Fatalf("missing goodbye:\n%s", out.String())
	}
}

func TestLongScriptedGameKeepsDeckWhole(t *testing.T) {
	// Always bet slot 0 Equal; the session must survive refills.
	s, _ := newScriptedSession(t, 500, strings.Repeat("0\ne\n", 80))
	if _, err := s.Run(context.Background()); err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("Run: %v", err)
	}
	if n := s.g.CardsInPlay(); n != engine.DeckSize {
		t.Fatalf("cards in play = %d", n)
	}
	if s.g.Refills == 0 {
		t.Fatalf("expected at least one refill in %d turns", s.g.Turns)
	}
}

func TestScanPrompter(t *testing.T) {
	var out bytes.Buffer
	p := newScanPrompter(strings.NewReader("one\ntwo\n"), &out)
	for _, want := range []string{"one", "two"} {
		got, err := p.Prompt("> ")
		if err != nil || got != want {
			t.Fatalf("Prompt = %q, %v; want %q", got, err, want)
		}
	}
	if _, err := p.Prompt("> "); !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if out.String() != "> > > " {
		t.Fatalf("prompts written = %q", out.String())
	}
}
