package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"hle-arena/server/agent"
	"hle-arena/server/engine"
	"hle-arena/server/judge"
	"hle-arena/server/learn"
	"hle-arena/server/store"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
)

//
// ===== pretty printing =====
//

var (
	colGood = color.New(color.FgGreen)
	colBad  = color.New(color.FgRed)
	colHead = color.New(color.FgWhite, color.Bold)
	colInfo = color.New(color.FgCyan)
	colDim  = color.New(color.Faint)
)

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s %s %s\n", colDim.Sprint("──"), colHead.Sprint(title), colDim.Sprint("──"))
}

func sideLabel(id engine.SideID) string {
	if id == engine.Player {
		return "Player"
	}
	return "CPU"
}

//
// ===== session =====
//

// session drives one game between the person at the prompt and the CPU.
type session struct {
	cfg    Config
	g      *engine.GameState
	cpu    *agent.CPU
	hint   *agent.CPU
	nb     *learn.Classifier
	in     prompter
	out    io.Writer
	logger zerolog.Logger

	db     *store.DB
	gameID int64

	stats map[engine.SideID]*SideStats
	elo   Elo
}

func newSession(cfg Config, in prompter, out io.Writer, logger zerolog.Logger, nb *learn.Classifier) *session {
	if nb == nil {
		nb = learn.New(cfg.SmoothingK)
	}
	return &session{
		cfg:    cfg,
		g:      engine.NewGame(engine.Config{Seed: cfg.DeckSeed, Target: cfg.Target}),
		cpu:    agent.NewCPU(logger, cfg.DeckSeed+1),
		hint:   agent.NewCPU(zerolog.Nop(), cfg.DeckSeed+2),
		nb:     nb,
		in:     in,
		out:    out,
		logger: logger.With().Str("component", "session").Int64("deck_seed", cfg.DeckSeed).Logger(),
		stats: map[engine.SideID]*SideStats{
			engine.Player: {},
			engine.CPU:    {},
		},
		elo: NewElo(cfg.EloStart, cfg.EloK),
	}
}

// attachDB enables persistence for this game. Failures only disable it.
func (s *session) attachDB(ctx context.Context, db *store.DB) {
	if db == nil {
		return
	}
	id, err := db.CreateGame(ctx, s.cfg.DeckSeed, s.g.Cfg.Target, s.nb.K())
	if err != nil {
		s.logger.Warn().Err(err).Msg("CreateGame failed; disabling DB this run")
		return
	}
	s.db, s.gameID = db, id
	a, errA := db.GetOrInitRating(ctx, string(engine.Player), s.cfg.EloStart)
	b, errB := db.GetOrInitRating(ctx, string(engine.CPU), s.cfg.EloStart)
	if errA == nil && errB == nil {
		s.elo.A, s.elo.B, s.elo.Games = a.Elo, b.Elo, a.Games
	}
	s.logger.Info().Int64("game_id", id).Msg("game persisted")
}

func (s *session) disableDB(err error, what string) {
	s.logger.Warn().Err(err).Str("op", what).Msg("persistence failed; disabling DB this run")
	s.db = nil
}

// Run alternates player and CPU turns until one side reaches the target.
// It returns io.EOF if input runs out first.
func (s *session) Run(ctx context.Context) (engine.SideID, error) {
	section(s.out, fmt.Sprintf("Higher / Lower / Equal: first to %d", s.g.Cfg.Target))
	for !s.g.Over() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		s.printBoard()
		if err := s.playerTurn(ctx); err != nil {
			return "", err
		}
		if s.g.Over() {
			break
		}
		if err := s.cpuTurn(ctx); err != nil {
			return "", err
		}
	}
	w, _ := s.g.Winner()
	return w, nil
}

// drawable is what the next card will come from: the pool, or the discard
// pile when the pool is about to be refilled.
func (s *session) drawable() []engine.Card {
	if s.g.Pool.Size() > 0 {
		return s.g.Pool.Cards()
	}
	return s.g.Discard.Cards()
}

func (s *session) playerTurn(ctx context.Context) error {
	obs, err := agent.BuildObservation(s.g, engine.Player)
	if err != nil {
		return err
	}
	handBefore := append([]engine.Card(nil), s.g.Player.Hand...)
	poolBefore := s.drawable()

	var best *engine.Move
	if s.cfg.Advise {
		best = s.advise(handBefore, poolBefore)
	}

	var res engine.TurnResult
	for {
		idx, err := s.in.Prompt(fmt.Sprintf("Which card would you like to bet (0-%d)? ", len(obs.Hand)-1))
		if err != nil {
			return err
		}
		gs, err := s.in.Prompt("Card is higher, lower or equal? ")
		if err != nil {
			return err
		}
		move, err := agent.Validate(obs, agent.MoveIn{Index: idx, Guess: gs})
		if err != nil {
			fmt.Fprintf(s.out, "%s %v\n", colBad.Sprint("Error:"), err)
			continue
		}
		res, err = s.g.PlayTurn(engine.Player, move.Index, move.Guess)
		if err != nil {
			s.logger.Warn().Err(err).Msg("player turn rejected")
			fmt.Fprintf(s.out, "%s %v\n", colBad.Sprint("Error:"), err)
			continue
		}
		break
	}

	st := s.stats[engine.Player]
	st.Record(res)
	if best != nil {
		st.AdvisedTurn++
		if best.Index == res.Index && best.Guess == res.Guess {
			st.TopMoves++
		}
	}

	label := engine.WinningGuess(res.Current, res.Next)
	if err := s.nb.Observe(handBefore, label); err != nil {
		s.logger.Warn().Err(err).Msg("classifier rejected observation")
	}

	s.printResult(res)
	s.persistTurn(ctx, res, handBefore, poolBefore)
	if s.db != nil {
		vals := engine.Values(handBefore)
		if err := s.db.InsertTrainingRecord(ctx, s.gameID, [3]int{vals[0], vals[1], vals[2]}, label.String()); err != nil {
			s.disableDB(err, "InsertTrainingRecord")
		}
	}
	return nil
}

func (s *session) cpuTurn(ctx context.Context) error {
	handBefore := append([]engine.Card(nil), s.g.CPU.Hand...)
	poolBefore := s.drawable()

	move, err := s.cpu.ChooseMove(handBefore, len(poolBefore))
	if err != nil {
		s.logger.Warn().Err(err).Msg("cpu could not choose; skipping turn")
		return nil
	}
	res, err := s.g.PlayTurn(engine.CPU, move.Index, move.Guess)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cpu turn rejected")
		return nil
	}
	s.stats[engine.CPU].Record(res)
	s.printResult(res)
	s.persistTurn(ctx, res, handBefore, poolBefore)
	return nil
}

// advise prints the planner's pick and the classifier's ranking, and
// returns the planner's move.
func (s *session) advise(hand, pool []engine.Card) *engine.Move {
	ev, m, err := judge.Plan(hand, pool)
	if err != nil {
		s.logger.Warn().Err(err).Msg("planner unavailable")
	} else {
		fmt.Fprintf(s.out, "%s bet %s (slot %d) %s, expected %+.2f\n",
			colInfo.Sprint("Planner:"), m.Card, m.Index, m.Guess, ev)
	}

	res, cerr := s.nb.Classify(hand)
	switch {
	case errors.Is(cerr, learn.ErrUndefinedPrior):
		if hm, err := s.hint.ChooseMove(hand, len(pool)); err == nil {
			fmt.Fprintf(s.out, "%s no history yet; heuristic says %s %s\n", colInfo.Sprint("Learner:"), hm.Card, hm.Guess)
		}
	case cerr != nil:
		s.logger.Warn().Err(cerr).Msg("classifier unavailable")
	default:
		parts := make([]string, 0, len(engine.Guesses))
		for _, g := range engine.Guesses {
			parts = append(parts, fmt.Sprintf("%s=%.3g", g, res.Scores[g]))
		}
		fmt.Fprintf(s.out, "%s hands like this usually go %s (%s, %d records)\n",
			colInfo.Sprint("Learner:"), res.Best, strings.Join(parts, " "), s.nb.Len())
	}
	if err != nil {
		return nil
	}
	return &m
}

func (s *session) persistTurn(ctx context.Context, res engine.TurnResult, hand, pool []engine.Card) {
	if s.db == nil {
		return
	}
	_, err := s.db.InsertTurnLog(ctx, store.TurnLog{
		GameID:      s.gameID,
		TurnNo:      s.g.Turns,
		Side:        string(res.Side),
		Hand:        engine.CardStrings(hand),
		Pool:        engine.CardStrings(pool),
		CardIndex:   res.Index,
		Guess:       res.Guess.String(),
		CurrentCard: res.Current.String(),
		NextCard:    res.Next.String(),
		Won:         res.Outcome.Won,
		Delta:       res.Outcome.Delta,
		ScoreAfter:  res.Score,
		Refill:      res.Refill,
	})
	if err != nil {
		s.disableDB(err, "InsertTurnLog")
	}
}

// finish records the result, reviews the player's decisions and updates
// ratings. Everything here is best effort.
func (s *session) finish(ctx context.Context, winner engine.SideID) {
	dA, dB := s.elo.UpdateGame(s.g.Player.Score, s.g.CPU.Score, s.g.Cfg.Target)
	s.logger.Info().
		Str("winner", string(winner)).
		Int("player", s.g.Player.Score).
		Int("cpu", s.g.CPU.Score).
		Int("turns", s.g.Turns).
		Float64("elo_player", s.elo.A).
		Float64("elo_cpu", s.elo.B).
		Msg("game over")

	s.printSummary(winner, dA, dB)

	if s.db == nil {
		return
	}
	if err := s.db.CompleteGame(ctx, s.gameID, s.g.Player.Score, s.g.CPU.Score, s.g.Turns, string(winner)); err != nil {
		s.logger.Warn().Err(err).Msg("CompleteGame failed")
		return
	}
	n, err := judge.ReviewGame(ctx, s.db, s.gameID, s.cfg.ReviewEpsilon)
	if err != nil {
		s.logger.Warn().Err(err).Msg("review failed")
	} else if acc, err := s.db.GameReviewAccuracy(ctx, s.gameID); err == nil {
		s.logger.Info().Int("reviewed", n).Int("top", acc.Good).Float64("ratio", acc.Ratio()).Msg("review complete")
	}
	if err := s.db.UpdateRating(ctx, string(engine.Player), s.elo.A, winner == engine.Player); err != nil {
		s.logger.Warn().Err(err).Msg("UpdateRating(player) failed")
	}
	if err := s.db.UpdateRating(ctx, string(engine.CPU), s.elo.B, winner == engine.CPU); err != nil {
		s.logger.Warn().Err(err).Msg("UpdateRating(cpu) failed")
	}
}

func (s *session) printBoard() {
	t := table.NewWriter()
	t.SetOutputMirror(s.out)
	t.AppendHeader(table.Row{"Side", "Score", "Hand", "Reads as"})
	for _, side := range []*engine.Side{s.g.Player, s.g.CPU} {
		hand := make([]string, len(side.Hand))
		for i, c := range side.Hand {
			hand[i] = fmt.Sprintf("%d:%s", i, c)
		}
		t.AppendRow(table.Row{sideLabel(side.ID), side.Score, strings.Join(hand, " "), engine.Describe(side.Hand)})
	}
	t.AppendFooter(table.Row{"Pool", s.g.Pool.Size(), "Discard", s.g.Discard.Size()})
	t.SetStyle(table.StyleLight)
	t.Render()
}

func (s *session) printResult(r engine.TurnResult) {
	verb, c := "lost", colBad
	if r.Outcome.Won {
		verb, c = "won", colGood
	}
	if r.Refill {
		fmt.Fprintln(s.out, colDim.Sprint("(pool empty: discard pile reshuffled)"))
	}
	fmt.Fprintf(s.out, "%s bet %s %s, next card was %s: %s %d points (score %d)\n",
		sideLabel(r.Side), r.Current, r.Guess, r.Next, c.Sprint(verb), r.Outcome.Delta, r.Score)
}

func (s *session) printSummary(winner engine.SideID, dA, dB float64) {
	section(s.out, "Result")
	winScore := s.g.Player.Score
	if winner == engine.CPU {
		winScore = s.g.CPU.Score
	}
	fmt.Fprintf(s.out, "%s won with %d points!\n", colGood.Sprint(sideLabel(winner)), winScore)

	t := table.NewWriter()
	t.SetOutputMirror(s.out)
	t.AppendHeader(table.Row{"Side", "Turns", "Won", "Win% (95% CI)", "H/L/E", "Points +/-", "Planner agreed", "Elo Δ"})
	for _, id := range []engine.SideID{engine.Player, engine.CPU} {
		st := s.stats[id]
		lo, hi := WilsonCI95(st.Wins, 0, st.Turns)
		agreed := "-"
		if st.AdvisedTurn > 0 {
			agreed = fmt.Sprintf("%d/%d", st.TopMoves, st.AdvisedTurn)
		}
		delta := dA
		if id == engine.CPU {
			delta = dB
		}
		t.AppendRow(table.Row{
			sideLabel(id), st.Turns, st.Wins,
			fmt.Sprintf("%.0f%% (%.0f-%.0f)", 100*st.WinRate(), 100*lo, 100*hi),
			fmt.Sprintf("%d/%d/%d", st.Guesses[engine.Higher], st.Guesses[engine.Lower], st.Guesses[engine.Equal]),
			fmt.Sprintf("+%d/-%d", st.PointsWon, st.PointsLost),
			agreed,
			fmt.Sprintf("%+.1f", delta),
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
