// Package store persists per-tick decisions as Parquet and summarizes them.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/cycles/engine"
)

const decisionSchema = "decision_row_v1"

// DecisionRow is one tick of one agent.
//
// Move uses the wire names (north, east, south, west). Scores are the
// candidate scores the selector saw; they are all zero for the pursuit
// policy, which does not score.
type DecisionRow struct {
	GameID  string `parquet:"game_id,dict"`
	Tick    int32  `parquet:"tick"`
	Agent   string `parquet:"agent,dict"`
	Policy  string `parquet:"policy,dict"`
	X       int32  `parquet:"x"`
	Y       int32  `parquet:"y"`
	ScoreN  int32  `parquet:"score_n"`
	ScoreE  int32  `parquet:"score_e"`
	ScoreS  int32  `parquet:"score_s"`
	ScoreW  int32  `parquet:"score_w"`
	Move    string `parquet:"move,dict"`
	Inertia int32  `parquet:"inertia"`
	Fleeing bool   `parquet:"fleeing"`
	Stale   bool   `parquet:"stale"`
	Source  string `parquet:"source,dict"`
}

// NewDecisionRow flattens an engine decision.
func NewDecisionRow(gameID, agent string, policy engine.PolicyKind, source string, d engine.Decision) DecisionRow {
	return DecisionRow{
		GameID:  gameID,
		Tick:    int32(d.Tick),
		Agent:   agent,
		Policy:  string(policy),
		X:       int32(d.Position.X),
		Y:       int32(d.Position.Y),
		ScoreN:  int32(d.Scores[0]),
		ScoreE:  int32(d.Scores[1]),
		ScoreS:  int32(d.Scores[2]),
		ScoreW:  int32(d.Scores[3]),
		Move:    d.Move.String(),
		Inertia: int32(d.Inertia),
		Fleeing: d.Fleeing,
		Stale:   d.Stale,
		Source:  source,
	}
}

// WriteDecisionsParquet writes rows to a new batch file under outDir.
// The file is written in outDir/tmp and renamed into place once complete.
func WriteDecisionsParquet(outDir string, rows []DecisionRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("decisions_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", decisionSchema),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadDecisionsParquet loads every row of one file.
func ReadDecisionsParquet(path string) ([]DecisionRow, error) {
	rows, err := parquet.ReadFile[DecisionRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}
