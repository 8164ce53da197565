package store

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// PolicySummary aggregates recorded decisions for one (agent, policy) pair.
type PolicySummary struct {
	Agent      string
	Policy     string
	Games      int64
	Ticks      int64
	AvgInertia float64
	FleeRatio  float64
	StaleTicks int64
	// Moves counts chosen directions keyed by wire name.
	Moves map[string]int64
}

// Summarize reads every decision file below the given roots with DuckDB.
// Files staged in a writer's tmp/ directory are skipped. Roots holding no
// decision files yield no summaries.
func Summarize(ctx context.Context, roots ...string) ([]PolicySummary, error) {
	files, err := decisionFiles(roots)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	quoted := make([]string, len(files))
	for i, f := range files {
		quoted[i] = "'" + escapeSQLString(f) + "'"
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()

	query := `
		SELECT
			agent,
			policy,
			count(DISTINCT game_id) AS games,
			count(*) AS ticks,
			avg(inertia)::DOUBLE AS avg_inertia,
			avg(CASE WHEN fleeing THEN 1.0 ELSE 0.0 END)::DOUBLE AS flee_ratio,
			count(*) FILTER (WHERE stale) AS stale_ticks,
			count(*) FILTER (WHERE move = 'north') AS north,
			count(*) FILTER (WHERE move = 'east') AS east,
			count(*) FILTER (WHERE move = 'south') AS south,
			count(*) FILTER (WHERE move = 'west') AS west
		FROM read_parquet([` + strings.Join(quoted, ",") + `], union_by_name=true)
		GROUP BY agent, policy
		ORDER BY agent, policy`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []PolicySummary
	for rows.Next() {
		var s PolicySummary
		var north, east, south, west int64
		if err := rows.Scan(&s.Agent, &s.Policy, &s.Games, &s.Ticks, &s.AvgInertia, &s.FleeRatio, &s.StaleTicks, &north, &east, &south, &west); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.Moves = map[string]int64{"north": north, "east": east, "south": south, "west": west}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary: %w", err)
	}
	return out, nil
}

// decisionFiles lists the parquet files below each root. A directory named
// tmp below a root is a writer's staging area and is not descended into;
// the root itself may live anywhere, including under a tmp directory.
func decisionFiles(roots []string) ([]string, error) {
	var files []string
	given := 0
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		given++
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", root, err)
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != abs && d.Name() == "tmp" {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(d.Name(), ".parquet") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	if given == 0 {
		return nil, fmt.Errorf("no decision roots given")
	}
	return files, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
