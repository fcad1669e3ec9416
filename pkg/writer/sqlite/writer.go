// Package sqlite provides SQLite database export of protein resolution results
package sqlite

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/ProtResolve/pkg/core"
	"github.com/ChrisMcGann/ProtResolve/pkg/resolver"
)

const (
	// Date format for HeaderTable (ISO 8601)
	headerDateFormat = "2006-01-02"
	// Schema version written to HeaderTable
	schemaVersion = 1
)

// Writer handles writing resolution results to SQLite database files
type Writer struct {
	db          *sql.DB
	outputPath  string
	resultStmt  *sql.Stmt
	isdStmt     *sql.Stmt
	msdStmt     *sql.Stmt
	proteinStmt *sql.Stmt
	peptideStmt *sql.Stmt
	resultID    int
	description string
}

// NewWriter creates a new SQLite writer
func NewWriter(outputPath, description string) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:          db,
		outputPath:  outputPath,
		description: description,
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.nextResultID(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		w.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ResultTable (
		ResultId INTEGER PRIMARY KEY,
		Identifier TEXT NOT NULL,
		InputType TEXT NOT NULL,
		Proteins INTEGER,
		Peptides INTEGER,
		UnmatchedPeptides INTEGER
	);

	CREATE TABLE IF NOT EXISTS ISDGroupTable (
		ResultId INTEGER REFERENCES ResultTable(ResultId),
		GroupIndex INTEGER,
		Proteins TEXT,
		Peptides TEXT,
		MSDGroups TEXT,
		PRIMARY KEY (ResultId, GroupIndex)
	);

	CREATE TABLE IF NOT EXISTS MSDGroupTable (
		ResultId INTEGER REFERENCES ResultTable(ResultId),
		GroupIndex INTEGER,
		ISDGroup INTEGER,
		Proteins TEXT,
		Peptides TEXT,
		Targets INTEGER,
		Decoys INTEGER,
		TargetPlusDecoy INTEGER,
		Intensity DOUBLE,
		QuantifiedPeptides INTEGER,
		PRIMARY KEY (ResultId, GroupIndex)
	);

	CREATE TABLE IF NOT EXISTS ProteinTable (
		ResultId INTEGER REFERENCES ResultTable(ResultId),
		ProteinIndex INTEGER,
		Accession TEXT,
		Description TEXT,
		Type TEXT,
		Weight DOUBLE,
		Coverage DOUBLE,
		ISDGroup INTEGER,
		MSDGroup INTEGER,
		ReindexedIndex INTEGER,
		ExperimentalPeptides INTEGER,
		Indistinguishable TEXT,
		PRIMARY KEY (ResultId, ProteinIndex)
	);

	CREATE TABLE IF NOT EXISTS PeptideTable (
		ResultId INTEGER REFERENCES ResultTable(ResultId),
		PeptideIndex INTEGER,
		Sequence TEXT,
		Experimental BOOL,
		Origin TEXT,
		Intensity DOUBLE,
		ISDGroup INTEGER,
		MSDGroup INTEGER,
		ReindexedIndex INTEGER,
		Proteins TEXT,
		SpectrumId TEXT,
		Charge INTEGER,
		Score DOUBLE,
		Modifications TEXT,
		Mass DOUBLE,
		PrecursorMz DOUBLE,
		PRIMARY KEY (ResultId, PeptideIndex)
	);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		Description TEXT
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// nextResultID continues numbering after the results already in the file
func (w *Writer) nextResultID() error {
	if err := w.db.QueryRow(`SELECT COALESCE(MAX(ResultId), 0) + 1 FROM ResultTable`).Scan(&w.resultID); err != nil {
		return fmt.Errorf("failed to read result ids: %w", err)
	}
	return nil
}

// prepareStatements prepares SQL statements for batch insertion
func (w *Writer) prepareStatements() error {
	stmts := []struct {
		dst   **sql.Stmt
		name  string
		query string
	}{
		{&w.resultStmt, "result", `
			INSERT INTO ResultTable (ResultId, Identifier, InputType, Proteins, Peptides, UnmatchedPeptides)
			VALUES (?, ?, ?, ?, ?, ?)`},
		{&w.isdStmt, "ISD group", `
			INSERT INTO ISDGroupTable (ResultId, GroupIndex, Proteins, Peptides, MSDGroups)
			VALUES (?, ?, ?, ?, ?)`},
		{&w.msdStmt, "MSD group", `
			INSERT INTO MSDGroupTable (
				ResultId, GroupIndex, ISDGroup, Proteins, Peptides,
				Targets, Decoys, TargetPlusDecoy, Intensity, QuantifiedPeptides
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`},
		{&w.proteinStmt, "protein", `
			INSERT INTO ProteinTable (
				ResultId, ProteinIndex, Accession, Description, Type, Weight, Coverage,
				ISDGroup, MSDGroup, ReindexedIndex, ExperimentalPeptides, Indistinguishable
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`},
		{&w.peptideStmt, "peptide", `
			INSERT INTO PeptideTable (
				ResultId, PeptideIndex, Sequence, Experimental, Origin, Intensity,
				ISDGroup, MSDGroup, ReindexedIndex, Proteins, SpectrumId, Charge, Score,
				Modifications, Mass, PrecursorMz
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`},
	}

	for _, s := range stmts {
		stmt, err := w.db.Prepare(s.query)
		if err != nil {
			return fmt.Errorf("failed to prepare %s statement: %w", s.name, err)
		}
		*s.dst = stmt
	}
	return nil
}

// WriteResult writes one resolution result in a single transaction
func (w *Writer) WriteResult(res *resolver.Result) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := w.writeResult(tx, res); err != nil {
		tx.Rollback()
		return fmt.Errorf("result %s: %w", res.Identifier, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit result %s: %w", res.Identifier, err)
	}
	w.resultID++
	return nil
}

func (w *Writer) writeResult(tx *sql.Tx, res *resolver.Result) error {
	id := w.resultID

	_, err := tx.Stmt(w.resultStmt).Exec(
		id,                     // ResultId
		res.Identifier,         // Identifier
		res.InputType.String(), // InputType
		len(res.Proteins),      // Proteins
		len(res.Peptides),      // Peptides
		res.UnmatchedPeptides,  // UnmatchedPeptides
	)
	if err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}

	isdStmt := tx.Stmt(w.isdStmt)
	for _, g := range res.ISDGroups {
		if _, err := isdStmt.Exec(id, g.Index, joinInts(g.Proteins), joinInts(g.Peptides), joinInts(g.MSDGroups)); err != nil {
			return fmt.Errorf("failed to insert ISD group %d: %w", g.Index, err)
		}
	}

	msdStmt := tx.Stmt(w.msdStmt)
	for _, g := range res.MSDGroups {
		_, err := msdStmt.Exec(
			id,
			g.Index,
			g.ISDGroup,
			joinInts(g.Proteins),
			joinInts(g.Peptides),
			g.Targets,
			g.Decoys,
			g.TargetPlusDecoy,
			g.Intensity,
			g.QuantifiedPeptides,
		)
		if err != nil {
			return fmt.Errorf("failed to insert MSD group %d: %w", g.Index, err)
		}
	}

	proteinStmt := tx.Stmt(w.proteinStmt)
	for i := range res.Proteins {
		p := &res.Proteins[i]
		var reindexed interface{}
		if d, ok := res.ReindexedProtein(i); ok {
			reindexed = d
		}
		_, err := proteinStmt.Exec(
			id,                             // ResultId
			p.Index,                        // ProteinIndex
			p.Record.Accession,             // Accession
			p.Record.Description,           // Description
			p.Type.String(),                // Type
			core.RoundFloat(p.Weight, 4),   // Weight
			core.RoundFloat(p.Coverage, 4), // Coverage
			p.ISDGroup,                     // ISDGroup
			groupOrNull(p.MSDGroup),        // MSDGroup
			reindexed,                      // ReindexedIndex
			p.ExperimentalPeptides,         // ExperimentalPeptides
			joinInts(p.Indistinguishable),  // Indistinguishable
		)
		if err != nil {
			return fmt.Errorf("failed to insert protein %s: %w", p.Record.Accession, err)
		}
	}

	peptideStmt := tx.Stmt(w.peptideStmt)
	for i := range res.Peptides {
		q := &res.Peptides[i]

		var intensity, reindexed, spectrumID, charge, score, mods, mz interface{}
		mass := core.CalculateNeutralMass(q.Sequence, nil)
		if q.Quantified {
			intensity = q.Intensity
		}
		if d, ok := res.ReindexedPeptide(i); ok {
			reindexed = d
		}
		if q.Experimental {
			if ident, err := res.Identification(q); err == nil {
				spectrumID = ident.SpectrumID
			}
			if hit, err := res.Hit(q); err == nil {
				charge = hit.Charge
				score = hit.Score
				if ms := hit.ModString(); ms != "" {
					mods = ms
				}
				mass = core.CalculateNeutralMass(hit.Sequence, hit.Modifications)
				if hit.Charge > 0 {
					mz = core.RoundFloat(core.CalculatePeptideMass(hit.Sequence, hit.Charge, hit.Modifications), 4)
				}
			}
		}

		_, err := peptideStmt.Exec(
			id,                       // ResultId
			q.Index,                  // PeptideIndex
			q.Sequence,               // Sequence
			q.Experimental,           // Experimental
			q.Origin,                 // Origin
			intensity,                // Intensity
			q.ISDGroup,               // ISDGroup
			groupOrNull(q.MSDGroup),  // MSDGroup
			reindexed,                // ReindexedIndex
			joinInts(q.Proteins),     // Proteins
			spectrumID,               // SpectrumId
			charge,                   // Charge
			score,                    // Score
			mods,                     // Modifications
			core.RoundFloat(mass, 4), // Mass
			mz,                       // PrecursorMz
		)
		if err != nil {
			return fmt.Errorf("failed to insert peptide %s: %w", q.Sequence, err)
		}
	}
	return nil
}

func groupOrNull(g int) interface{} {
	if g == resolver.NoGroup {
		return nil
	}
	return g
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}

// Finalize writes the header table and closes the database
func (w *Writer) Finalize() error {
	_, err := w.db.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, Description)
		VALUES (?, ?, ?)
	`, schemaVersion, time.Now().Format(headerDateFormat), w.description)
	if err != nil {
		w.Close()
		return fmt.Errorf("failed to insert header: %w", err)
	}
	return w.Close()
}

// Close releases the prepared statements and closes the database without
// writing a header row
func (w *Writer) Close() error {
	for _, stmt := range []*sql.Stmt{w.resultStmt, w.isdStmt, w.msdStmt, w.proteinStmt, w.peptideStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
