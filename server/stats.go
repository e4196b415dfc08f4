package main

import (
	"math"

	"hle-arena/server/engine"
)

type SideStats struct {
	Turns       int
	Wins        int
	Guesses     [3]int // by engine.Guess
	GuessWins   [3]int
	PointsWon   int
	PointsLost  int
	Refills     int
	TopMoves    int // turns that matched the planner's best move
	AdvisedTurn int // turns where the planner was consulted
}

func (s *SideStats) Record(r engine.TurnResult) {
	s.Turns++
	if r.Guess.Valid() {
		s.Guesses[r.Guess]++
	}
	if r.Outcome.Won {
		s.Wins++
		s.PointsWon += r.Outcome.Delta
		if r.Guess.Valid() {
			s.GuessWins[r.Guess]++
		}
	} else {
		s.PointsLost += r.Outcome.Delta
	}
	if r.Refill {
		s.Refills++
	}
}

func (s *SideStats) WinRate() float64 {
	if s.Turns == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Turns)
}

// Net is nominal points won minus lost; it can differ from the score
// because the score is clamped at zero.
func (s *SideStats) Net() int { return s.PointsWon - s.PointsLost }

// --------- CI helpers ---------

// WilsonCI95 for a Bernoulli win rate; ties count half.
func WilsonCI95(wins, ties, total int) (low, hi float64) {
	if total <= 0 {
		return 0, 1
	}
	z := 1.96
	n := float64(total)
	p := (float64(wins) + 0.5*float64(ties)) / n
	den := 1 + (z*z)/n
	center := p + (z*z)/(2*n)
	half := z * math.Sqrt((p*(1-p))/n+(z*z)/(4*n*n))
	return (center - half) / den, (center + half) / den
}
