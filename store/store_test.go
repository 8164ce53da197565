package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/brensch/cycles/engine"
	"github.com/brensch/cycles/game"
)

func sampleRows(gameID, agent string, policy engine.PolicyKind, n int) []DecisionRow {
	rows := make([]DecisionRow, 0, n)
	for i := 0; i < n; i++ {
		d := engine.Decision{
			Tick:     i,
			Position: game.Position{X: i, Y: 2},
			Scores:   engine.Scores{5, 4, 3, engine.SentinelScore},
			Move:     game.Directions[i%2],
			Inertia:  20 + i,
			Fleeing:  i == 0,
		}
		rows = append(rows, NewDecisionRow(gameID, agent, policy, "test", d))
	}
	return rows
}

func TestNewDecisionRow(t *testing.T) {
	d := engine.Decision{
		Tick:     4,
		Position: game.Position{X: 1, Y: 9},
		Scores:   engine.Scores{1, 2, 3, 4},
		Move:     game.West,
		Inertia:  17,
		Stale:    true,
	}
	r := NewDecisionRow("g", "bot", engine.PolicyVisitedBorder, "live", d)
	if r.Tick != 4 || r.X != 1 || r.Y != 9 || r.Move != "west" || r.Inertia != 17 || !r.Stale {
		t.Fatalf("row=%+v", r)
	}
	if r.ScoreN != 1 || r.ScoreE != 2 || r.ScoreS != 3 || r.ScoreW != 4 {
		t.Fatalf("scores=%d,%d,%d,%d", r.ScoreN, r.ScoreE, r.ScoreS, r.ScoreW)
	}
	if r.Policy != "visited-border" {
		t.Fatalf("policy=%q", r.Policy)
	}
}

func TestWriteDecisionsParquet_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	rows := sampleRows("g1", "bot", engine.PolicyOpenSpace, 5)

	path, err := WriteDecisionsParquet(dir, rows)
	if err != nil {
		t.Fatalf("WriteDecisionsParquet: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("file written to %s, want under %s", path, dir)
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, "tmp", "*"))
	if len(leftovers) != 0 {
		t.Fatalf("tmp files left behind: %v", leftovers)
	}

	got, err := ReadDecisionsParquet(path)
	if err != nil {
		t.Fatalf("ReadDecisionsParquet: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("rows=%d want=%d", len(got), len(rows))
	}
	for i := range rows {
		if got[i] != rows[i] {
			t.Fatalf("row %d=%+v want %+v", i, got[i], rows[i])
		}
	}
}

func TestWriteDecisionsParquet_Empty(t *testing.T) {
	path, err := WriteDecisionsParquet(t.TempDir(), nil)
	if err != nil || path != "" {
		t.Fatalf("path=%q err=%v", path, err)
	}
}

func TestBatchWriter_Finalize(t *testing.T) {
	dir := t.TempDir()
	w, err := NewBatchWriter(dir)
	if err != nil {
		t.Fatalf("NewBatchWriter: %v", err)
	}
	if err := w.WriteRows(sampleRows("g1", "a", engine.PolicyPursuit, 3)); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteRows(sampleRows("g2", "a", engine.PolicyPursuit, 2)); err != nil {
		t.Fatal(err)
	}
	if w.BufferedRows() != 5 || w.BufferedGames() != 2 {
		t.Fatalf("buffered rows=%d games=%d", w.BufferedRows(), w.BufferedGames())
	}
	if _, err := os.Stat(w.OutPath()); !os.IsNotExist(err) {
		t.Fatalf("output visible before Finalize: %v", err)
	}

	out, rows, games, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if rows != 5 || games != 2 || out != w.OutPath() {
		t.Fatalf("out=%s rows=%d games=%d", out, rows, games)
	}
	got, err := ReadDecisionsParquet(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("read %d rows", len(got))
	}

	if err := w.WriteRows(sampleRows("g3", "a", engine.PolicyPursuit, 1)); err == nil {
		t.Fatalf("write after Finalize should fail")
	}
	if out, _, _, err := w.Finalize(); out != "" || err != nil {
		t.Fatalf("second Finalize out=%q err=%v", out, err)
	}
}

func TestBatchWriter_EmptyFinalizeRemovesTmp(t *testing.T) {
	w, err := NewBatchWriter(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	out, rows, _, err := w.Finalize()
	if err != nil || out != "" || rows != 0 {
		t.Fatalf("out=%q rows=%d err=%v", out, rows, err)
	}
	if _, err := os.Stat(w.TmpPath()); !os.IsNotExist(err) {
		t.Fatalf("tmp file should be removed: %v", err)
	}
}

func TestSummarize(t *testing.T) {
	if testing.Short() {
		t.Skip("duckdb summary skipped in short mode")
	}
	dir := t.TempDir()
	if _, err := WriteDecisionsParquet(dir, sampleRows("g1", "alpha", engine.PolicyThreatAware, 4)); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteDecisionsParquet(filepath.Join(dir, "more"), sampleRows("g2", "alpha", engine.PolicyThreatAware, 2)); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteDecisionsParquet(dir, sampleRows("g1", "beta", engine.PolicyOpenSpace, 3)); err != nil {
		t.Fatal(err)
	}

	got, err := Summarize(context.Background(), dir)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("summaries=%d want 2: %+v", len(got), got)
	}

	alpha := got[0]
	if alpha.Agent != "alpha" || alpha.Policy != "threat-aware" {
		t.Fatalf("first summary=%+v", alpha)
	}
	if alpha.Games != 2 || alpha.Ticks != 6 {
		t.Fatalf("alpha games=%d ticks=%d", alpha.Games, alpha.Ticks)
	}
	// ticks 0..3 alternate north/east, then 0..1 again
	if alpha.Moves["north"] != 3 || alpha.Moves["east"] != 3 {
		t.Fatalf("alpha moves=%v", alpha.Moves)
	}

	beta := got[1]
	if beta.Games != 1 || beta.Ticks != 3 {
		t.Fatalf("beta games=%d ticks=%d", beta.Games, beta.Ticks)
	}
	if want := 1.0 / 3.0; beta.FleeRatio < want-1e-9 || beta.FleeRatio > want+1e-9 {
		t.Fatalf("beta flee ratio=%f want %f", beta.FleeRatio, want)
	}
}

func TestSummarize_SkipsStagingOnly(t *testing.T) {
	if testing.Short() {
		t.Skip("duckdb summary skipped in short mode")
	}
	// The root itself sits below a directory named tmp.
	root := filepath.Join(t.TempDir(), "tmp", "decisions")
	if _, err := WriteDecisionsParquet(root, sampleRows("g1", "alpha", engine.PolicyOpenSpace, 3)); err != nil {
		t.Fatal(err)
	}
	// A finished file left in the staging directory is ignored.
	if _, err := WriteDecisionsParquet(filepath.Join(root, "tmp"), sampleRows("g2", "alpha", engine.PolicyOpenSpace, 5)); err != nil {
		t.Fatal(err)
	}
	// So is an unfinished batch staged below a nested output directory.
	w, err := NewBatchWriter(filepath.Join(root, "live"))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Finalize()
	if err := w.WriteRows(sampleRows("g3", "alpha", engine.PolicyOpenSpace, 2)); err != nil {
		t.Fatal(err)
	}

	got, err := Summarize(context.Background(), root)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(got) != 1 || got[0].Games != 1 || got[0].Ticks != 3 {
		t.Fatalf("summaries=%+v want one game of 3 ticks", got)
	}
}

func TestSummarize_EmptyRoot(t *testing.T) {
	got, err := Summarize(context.Background(), t.TempDir())
	if err != nil || len(got) != 0 {
		t.Fatalf("got=%+v err=%v", got, err)
	}
}

func TestSummarize_NoRoots(t *testing.T) {
	if _, err := Summarize(context.Background(), " "); err == nil {
		t.Fatalf("expected error without roots")
	}
}
