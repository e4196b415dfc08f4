package store

import (
	"context"
	"embed"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema embed.FS

type DB struct{ *pgxpool.Pool }

func Open(dsn string) (*DB, error) {
	p, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close(ctx context.Context)      { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

/* -----------------------------
   Games
------------------------------*/

type Game struct {
	ID          int64      `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	EndedAt     *time.Time `json:"ended_at"`
	DeckSeed    int64      `json:"deck_seed"`
	Target      int        `json:"target"`
	SmoothingK  float64    `json:"smoothing_k"`
	PlayerScore int        `json:"player_score"`
	CPUScore    int        `json:"cpu_score"`
	Turns       int        `json:"turns"`
	Winner      *string    `json:"winner"`
}

const gameCols = `id, created_at, ended_at, deck_seed, target, smoothing_k, player_score, cpu_score, turns, winner`

func scanGame(row pgx.Row) (Game, error) {
	var g Game
	err := row.Scan(&g.ID, &g.CreatedAt, &g.EndedAt, &g.DeckSeed, &g.Target, &g.SmoothingK,
		&g.PlayerScore, &g.CPUScore, &g.Turns, &g.Winner)
	return g, err
}

// Create a game row and return the id.
func (db *DB) CreateGame(ctx context.Context, deckSeed int64, target int, smoothingK float64) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
		INSERT INTO games(deck_seed, target, smoothing_k)
		VALUES ($1,$2,$3)
		RETURNING id
	`, deckSeed, target, smoothingK).Scan(&id)
	return id, err
}

func (db *DB) CompleteGame(ctx context.Context, gameID int64, playerScore, cpuScore, turns int, winner string) error {
	var w any
	if v := strings.TrimSpace(winner); v != "" {
		w = v
	}
	_, err := db.Exec(ctx, `
		UPDATE games
		   SET ended_at = now(),
		       player_score = $2,
		       cpu_score = $3,
		       turns = $4,
		       winner = $5
		 WHERE id = $1
	`, gameID, playerScore, cpuScore, turns, w)
	return err
}

// LastGame returns the most recent game, or pgx.ErrNoRows.
func (db *DB) LastGame(ctx context.Context) (Game, error) {
	return scanGame(db.QueryRow(ctx, `SELECT `+gameCols+` FROM games ORDER BY id DESC LIMIT 1`))
}

func (db *DB) GetGame(ctx context.Context, id int64) (Game, error) {
	return scanGame(db.QueryRow(ctx, `SELECT `+gameCols+` FROM games WHERE id = $1`, id))
}

func (db *DB) ListGames(ctx context.Context, limit int) ([]Game, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := db.Query(ctx, `SELECT `+gameCols+` FROM games ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

/* -----------------------------
   Turns
------------------------------*/

// TurnLog is one resolved turn, with the hand and pool as they were when
// the guess was made.
type TurnLog struct {
	ID          int64    `json:"id"`
	GameID      int64    `json:"game_id"`
	TurnNo      int      `json:"turn_no"`
	Side        string   `json:"side"`
	Hand        []string `json:"hand"`
	Pool        []string `json:"pool"`
	CardIndex   int      `json:"card_index"`
	Guess       string   `json:"guess"`
	CurrentCard string   `json:"current_card"`
	NextCard    string   `json:"next_card"`
	Won         bool     `json:"won"`
	Delta       int      `json:"delta"`
	ScoreAfter  int      `json:"score_after"`
	Refill      bool     `json:"refill"`
}

// InsertTurnLog records one turn and returns its id.
func (db *DB) InsertTurnLog(ctx context.Context, t TurnLog) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
        INSERT INTO turn_logs(
            game_id, turn_no, side, hand, pool,
            card_index, guess, current_card, next_card,
            won, delta, score_after, refill
        ) VALUES (
            $1,$2,$3,$4,$5,
            $6,$7,$8,$9,
            $10,$11,$12,$13
        )
        RETURNING id
    `,
		t.GameID, t.TurnNo, t.Side, t.Hand, t.Pool,
		t.CardIndex, t.Guess, t.CurrentCard, t.NextCard,
		t.Won, t.Delta, t.ScoreAfter, t.Refill,
	).Scan(&id)
	return id, err
}

// GameTurns lists a game's turns in play order; side filters when non-empty.
func (db *DB) GameTurns(ctx context.Context, gameID int64, side string) ([]TurnLog, error) {
	rows, err := db.Query(ctx, `
        SELECT id, game_id, turn_no, side, hand, pool,
               card_index, guess, current_card, next_card,
               won, delta, score_after, refill
          FROM turn_logs
         WHERE game_id = $1 AND ($2 = '' OR side = $2)
         ORDER BY turn_no, id
    `, gameID, side)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TurnLog
	for rows.Next() {
		var t TurnLog
		if err := rows.Scan(&t.ID, &t.GameID, &t.TurnNo, &t.Side, &t.Hand, &t.Pool,
			&t.CardIndex, &t.Guess, &t.CurrentCard, &t.NextCard,
			&t.Won, &t.Delta, &t.ScoreAfter, &t.Refill); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type TurnEval struct {
	TurnLogID int64
	Solver    string
	EVsJSON   string
	BestCard  string
	BestGuess string
	EVChosen  float64
	EVBest    float64
	EVGap     float64
	IsTop     bool
}

// InsertTurnEval records a review of one turn; re-reviewing overwrites.
func (db *DB) InsertTurnEval(ctx context.Context, e TurnEval) error {
	var evs any
	if e.EVsJSON != "" {
		evs = e.EVsJSON
	}
	_, err := db.Exec(ctx, `
        INSERT INTO turn_eval(
            turn_log_id, solver, evs_json,
            best_card, best_guess,
            ev_chosen, ev_best, ev_gap, is_top_action
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (turn_log_id) DO UPDATE SET
            solver = EXCLUDED.solver,
            evs_json = EXCLUDED.evs_json,
            best_card = EXCLUDED.best_card,
            best_guess = EXCLUDED.best_guess,
            ev_chosen = EXCLUDED.ev_chosen,
            ev_best = EXCLUDED.ev_best,
            ev_gap = EXCLUDED.ev_gap,
            is_top_action = EXCLUDED.is_top_action
    `, e.TurnLogID, e.Solver, evs, e.BestCard, e.BestGuess, e.EVChosen, e.EVBest, e.EVGap, e.IsTop)
	return err
}

type ReviewAccuracy struct {
	Good  int `json:"good"`
	Total int `json:"total"`
}

func (ra ReviewAccuracy) Ratio() float64 {
	if ra.Total <= 0 {
		return 0
	}
	return float64(ra.Good) / float64(ra.Total)
}

// GameReviewAccuracy counts reviewed turns of a game and how many matched
// the planner's best move.
func (db *DB) GameReviewAccuracy(ctx context.Context, gameID int64) (ReviewAccuracy, error) {
	var ra ReviewAccuracy
	err := db.QueryRow(ctx, `
        SELECT COALESCE(SUM(CASE WHEN e.is_top_action THEN 1 ELSE 0 END), 0)::int,
               COUNT(*)::int
          FROM turn_eval e
          JOIN turn_logs t ON t.id = e.turn_log_id
         WHERE t.game_id = $1
    `, gameID).Scan(&ra.Good, &ra.Total)
	return ra, err
}

/* -----------------------------
   Training records
------------------------------*/

type TrainingRow struct {
	Values [3]int
	Label  string
}

func (db *DB) InsertTrainingRecord(ctx context.Context, gameID int64, values [3]int, label string) error {
	var g any
	if gameID > 0 {
		g = gameID
	}
	_, err := db.Exec(ctx, `
		INSERT INTO training_records(game_id, v1, v2, v3, label)
		VALUES ($1,$2,$3,$4,$5)
	`, g, values[0], values[1], values[2], label)
	return err
}

// LoadTrainingRecords returns up to limit of the newest records, oldest
// first so replaying them preserves insertion order.
func (db *DB) LoadTrainingRecords(ctx context.Context, limit int) ([]TrainingRow, error) {
	if limit <= 0 {
		limit = 10000
	}
	rows, err := db.Query(ctx, `
		SELECT v1, v2, v3, label FROM (
			SELECT id, v1, v2, v3, label FROM training_records ORDER BY id DESC LIMIT $1
		) t ORDER BY id
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TrainingRow
	for rows.Next() {
		var r TrainingRow
		if err := rows.Scan(&r.Values[0], &r.Values[1], &r.Values[2], &r.Label); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TrainingLabelCounts returns how many records carry each label.
func (db *DB) TrainingLabelCounts(ctx context.Context) (map[string]int, error) {
	rows, err := db.Query(ctx, `SELECT label, COUNT(*)::int FROM training_records GROUP BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		out[label] = n
	}
	return out, rows.Err()
}

/* -----------------------------
   Ratings
------------------------------*/

type Rating struct {
	Name  string  `json:"name"`
	Elo   float64 `json:"elo"`
	Games int     `json:"games"`
	Wins  int     `json:"wins"`
}

// Ensure a ratings row exists and fetch it.
func (db *DB) GetOrInitRating(ctx context.Context, name string, start float64) (Rating, error) {
	if _, err := db.Exec(ctx, `INSERT INTO ratings(name, elo) VALUES ($1,$2) ON CONFLICT (name) DO NOTHING`, name, start); err != nil {
		return Rating{}, err
	}
	r := Rating{Name: name}
	err := db.QueryRow(ctx, `SELECT elo, games, wins FROM ratings WHERE name = $1`, name).Scan(&r.Elo, &r.Games, &r.Wins)
	return r, err
}

// Persist a new rating and bump the career counters.
func (db *DB) UpdateRating(ctx context.Context, name string, elo float64, won bool) error {
	w := 0
	if won {
		w = 1
	}
	_, err := db.Exec(ctx, `
		UPDATE ratings
		   SET elo = $2,
		       games = games + 1,
		       wins = wins + $3,
		       updated_at = now()
		 WHERE name = $1
	`, name, elo, w)
	return err
}

func (db *DB) Ratings(ctx context.Context) ([]Rating, error) {
	rows, err := db.Query(ctx, `SELECT name, elo, games, wins FROM ratings ORDER BY elo DESC`)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()
	var out []Rating
	for rows.Next() {
		var r Rating
		if err := rows.Scan(&r.Name, &r.Elo, &r.Games, &r.Wins); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
