package main

import "math"

// Elo holds ratings for the player (A) and the CPU (B).
type Elo struct {
	A, B  float64 // ratings
	K     float64 // base K
	Games int     // games processed
}

func NewElo(start, k float64) Elo { return Elo{A: start, B: start, K: k} }

func (e Elo) expect() (ea, eb float64) {
	ea = 1.0 / (1.0 + math.Pow(10, (e.B-e.A)/400.0))
	return ea, 1.0 - ea
}

// UpdateGame applies one finished game → returns applied deltas (dA, dB).
// The soft score comes from the final margin, normalized by the target.
func (e *Elo) UpdateGame(playerScore, cpuScore, target int) (dA, dB float64) {
	ea, eb := e.expect()

	if target <= 0 {
		target = 50
	}
	margin := float64(playerScore - cpuScore)
	sA := 0.5 + 0.5*math.Tanh(margin/(0.5*float64(target)))
	sB := 1.0 - sA

	kEff := e.K * marginScale(playerScore-cpuScore, target) * decay(e.Games)

	dA = kEff * (sA - ea)
	dB = kEff * (sB - eb)

	e.A += dA
	e.B += dB
	e.Games++
	return dA, dB
}

// ---- helpers ----

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func marginScale(margin, target int) float64 {
	if target <= 0 {
		return 1.0
	}
	m := math.Abs(float64(margin)) / float64(target)
	return clamp(1.0+0.35*math.Tanh(2*m), 1.0, 1.35)
}

func decay(games int) float64 {
	return 1.0 / (1.0 + 0.01*float64(games)) // slow anneal
}
