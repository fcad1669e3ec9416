package sqlite

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// RunSummary aggregates one exported resolution result.
type RunSummary struct {
	ResultID          int
	Identifier        string
	InputType         string
	Proteins          int
	Peptides          int
	UnmatchedPeptides int
	ISDGroups         int
	MSDGroups         int
	Targets           int
	Decoys            int
	QuantifiedGroups  int
	ProteinTypes      map[string]int
}

// Summarize reads back every result stored in the database at path.
func Summarize(path string) ([]RunSummary, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT ResultId, Identifier, InputType, Proteins, Peptides, UnmatchedPeptides
		FROM ResultTable ORDER BY ResultId
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	var summaries []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.ResultID, &s.Identifier, &s.InputType, &s.Proteins, &s.Peptides, &s.UnmatchedPeptides); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		summaries = append(summaries, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	for i := range summaries {
		if err := fillGroupStats(db, &summaries[i]); err != nil {
			return nil, err
		}
	}
	return summaries, nil
}

func fillGroupStats(db *sql.DB, s *RunSummary) error {
	err := db.QueryRow(`SELECT COUNT(*) FROM ISDGroupTable WHERE ResultId = ?`, s.ResultID).Scan(&s.ISDGroups)
	if err != nil {
		return fmt.Errorf("failed to count ISD groups of %s: %w", s.Identifier, err)
	}

	err = db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(Targets), 0), COALESCE(SUM(Decoys), 0),
		       COALESCE(SUM(CASE WHEN QuantifiedPeptides > 0 THEN 1 ELSE 0 END), 0)
		FROM MSDGroupTable WHERE ResultId = ?
	`, s.ResultID).Scan(&s.MSDGroups, &s.Targets, &s.Decoys, &s.QuantifiedGroups)
	if err != nil {
		return fmt.Errorf("failed to aggregate MSD groups of %s: %w", s.Identifier, err)
	}

	rows, err := db.Query(`SELECT Type, COUNT(*) FROM ProteinTable WHERE ResultId = ? GROUP BY Type`, s.ResultID)
	if err != nil {
		return fmt.Errorf("failed to count protein types of %s: %w", s.Identifier, err)
	}
	defer rows.Close()

	s.ProteinTypes = make(map[string]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return fmt.Errorf("failed to scan protein type: %w", err)
		}
		s.ProteinTypes[t] = n
	}
	return rows.Err()
}
