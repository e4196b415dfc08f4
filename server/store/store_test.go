package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestReviewAccuracyRatio(t *testing.T) {
	if r := (ReviewAccuracy{}).Ratio(); r != 0 {
		t.Fatalf("empty ratio = %v", r)
	}
	if r := (ReviewAccuracy{Good: 3, Total: 4}).Ratio(); r != 0.75 {
		t.Fatalf("ratio = %v", r)
	}
}

// openTestDB needs a disposable Postgres in TEST_DATABASE_URL.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close(context.Background()) })
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestGameLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.CreateGame(ctx, 42, 50, 13)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	tid, err := db.InsertTurnLog(ctx, TurnLog{
		GameID: id, TurnNo: 1, Side: "player",
		Hand: []string{"Ac", "2c", "3c"}, Pool: []string{"7c", "Kd"},
		CardIndex: 0, Guess: "Higher", CurrentCard: "Ac", NextCard: "7c",
		Won: true, Delta: 6, ScoreAfter: 6,
	})
	if err != nil {
		t.Fatalf("InsertTurnLog: %v", err)
	}
	if err := db.InsertTurnEval(ctx, TurnEval{TurnLogID: tid, Solver: "test", EVsJSON: `[]`, BestCard: "Ac", BestGuess: "Higher", EVChosen: 9, EVBest: 9, IsTop: true}); err != nil {
		t.Fatalf("InsertTurnEval: %v", err)
	}
	if err := db.CompleteGame(ctx, id, 6, 0, 1, "player"); err != nil {
		t.Fatalf("CompleteGame: %v", err)
	}

	g, err := db.GetGame(ctx, id)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if g.EndedAt == nil || g.Winner == nil || *g.Winner != "player" || g.PlayerScore != 6 {
		t.Fatalf("game = %+v", g)
	}

	turns, err := db.GameTurns(ctx, id, "player")
	if err != nil || len(turns) != 1 {
		t.Fatalf("GameTurns = %v, %v", turns, err)
	}
	if turns[0].Hand[2] != "3c" || turns[0].Pool[1] != "Kd" {
		t.Fatalf("turn = %+v", turns[0])
	}
	if cpu, _ := db.GameTurns(ctx, id, "cpu"); len(cpu) != 0 {
		t.Fatalf("cpu turns = %v", cpu)
	}

	acc, err := db.GameReviewAccuracy(ctx, id)
	if err != nil || acc.Good != 1 || acc.Total != 1 {
		t.Fatalf("accuracy = %+v, %v", acc, err)
	}

	if _, err := db.GetGame(ctx, -1); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("missing game err = %v", err)
	}
}

func TestTrainingRecordsOldestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.InsertTrainingRecord(ctx, 0, [3]int{1, 2, 3}, "Higher"); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertTrainingRecord(ctx, 0, [3]int{13, 12, 11}, "Lower"); err != nil {
		t.Fatal(err)
	}
	rows, err := db.LoadTrainingRecords(ctx, 2)
	if err != nil || len(rows) != 2 {
		t.Fatalf("LoadTrainingRecords = %v, %v", rows, err)
	}
	if rows[0].Label != "Higher" || rows[1].Values != [3]int{13, 12, 11} {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestRatings(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	r, err := db.GetOrInitRating(ctx, "store-test", 1500)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateRating(ctx, "store-test", r.Elo+10, true); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetOrInitRating(ctx, "store-test", 1500)
	if err != nil {
		t.Fatal(err)
	}
	if got.Elo != r.Elo+10 || got.Games != r.Games+1 || got.Wins != r.Wins+1 {
		t.Fatalf("before %+v after %+v", r, got)
	}
}
