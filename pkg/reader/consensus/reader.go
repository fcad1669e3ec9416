// Package consensus reads consensus quantification maps from tab-separated text.
//
// Each row annotates one peptide identification to a feature:
//
//	feature_id	intensity	sequence	[charge]	[score]
//
// Rows of one feature must be contiguous. Sequences may carry modifications in
// any notation accepted by core.ModDatabase.ParseModifiedSequence. A header
// row starting with "feature_id" and lines starting with '#' are skipped.
package consensus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/ProtResolve/pkg/core"
)

// Reader provides streaming access to consensus features
type Reader struct {
	scanner *bufio.Scanner
	modDB   *core.ModDatabase
	lineNum int
	pending *row
	seen    map[string]bool
	current *core.ConsensusFeature
	err     error
}

type row struct {
	featureID string
	intensity float64
	hit       core.PeptideHit
}

// NewReader creates a new consensus reader
func NewReader(r io.Reader, modDB *core.ModDatabase) *Reader {
	if modDB == nil {
		modDB = core.DefaultModDatabase()
	}

	return &Reader{
		scanner: bufio.NewScanner(r),
		modDB:   modDB,
		seen:    make(map[string]bool),
	}
}

// Next advances to the next feature. Returns false when no more features or error.
func (r *Reader) Next() bool {
	r.current = nil
	if r.err != nil {
		return false
	}

	feature, err := r.readFeature()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.current = feature
	return true
}

// Feature returns the current feature
func (r *Reader) Feature() *core.ConsensusFeature {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) readFeature() (*core.ConsensusFeature, error) {
	first := r.pending
	r.pending = nil
	if first == nil {
		var err error
		if first, err = r.readRow(); err != nil {
			return nil, err
		}
	}
	if r.seen[first.featureID] {
		return nil, fmt.Errorf("line %d: rows of feature %s are not contiguous", r.lineNum, first.featureID)
	}
	r.seen[first.featureID] = true

	feature := &core.ConsensusFeature{ID: first.featureID, Intensity: first.intensity}
	feature.Identifications = append(feature.Identifications, identification(first))

	for {
		next, err := r.readRow()
		if err == io.EOF {
			return feature, nil
		}
		if err != nil {
			return nil, err
		}
		if next.featureID != feature.ID {
			r.pending = next
			return feature, nil
		}
		if next.intensity != feature.Intensity {
			return nil, fmt.Errorf("line %d: feature %s has conflicting intensities %g and %g",
				r.lineNum, feature.ID, feature.Intensity, next.intensity)
		}
		feature.Identifications = append(feature.Identifications, identification(next))
	}
}

func identification(rw *row) core.PeptideIdentification {
	return core.PeptideIdentification{
		SpectrumID:    rw.featureID,
		RetentionTime: -1,
		Charge:        rw.hit.Charge,
		Hits:          []core.PeptideHit{rw.hit},
	}
}

// readRow returns the next data row, or io.EOF.
func (r *Reader) readRow() (*row, error) {
	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "feature_id") {
			continue
		}
		rw, err := r.parseRow(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		return rw, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (r *Reader) parseRow(line string) (*row, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 3 {
		return nil, fmt.Errorf("expected at least 3 tab-separated fields, got %d", len(fields))
	}

	rw := &row{featureID: strings.TrimSpace(fields[0])}
	if rw.featureID == "" {
		return nil, fmt.Errorf("empty feature id")
	}

	intensity, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid intensity '%s': %w", fields[1], err)
	}
	if intensity < 0 {
		return nil, fmt.Errorf("intensity must be non-negative, got %g", intensity)
	}
	rw.intensity = intensity

	seq, mods, err := r.modDB.ParseModifiedSequence(fields[2])
	if err != nil {
		return nil, err
	}
	rw.hit = core.PeptideHit{Sequence: seq, Modifications: mods, Rank: 1}

	if len(fields) > 3 && strings.TrimSpace(fields[3]) != "" {
		charge, err := strconv.Atoi(strings.TrimSpace(fields[3]))
		if err != nil {
			return nil, fmt.Errorf("invalid charge '%s': %w", fields[3], err)
		}
		rw.hit.Charge = charge
	}
	if len(fields) > 4 && strings.TrimSpace(fields[4]) != "" {
		score, err := strconv.ParseFloat(strings.TrimSpace(fields[4]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid score '%s': %w", fields[4], err)
		}
		rw.hit.Score = score
	}
	return rw, nil
}

// ReadMap reads every feature into a consensus map with the given identifier.
func ReadMap(r io.Reader, id string, modDB *core.ModDatabase) (*core.ConsensusMap, error) {
	reader := NewReader(r, modDB)
	cmap := &core.ConsensusMap{ID: id}
	for reader.Next() {
		cmap.Features = append(cmap.Features, *reader.Feature())
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}
	return cmap, nil
}

// Load reads a consensus map file. The map identifier is the file name
// without its extension.
func Load(path string, modDB *core.ModDatabase) (*core.ConsensusMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open consensus file: %w", err)
	}
	defer f.Close()

	base := filepath.Base(path)
	cmap, err := ReadMap(f, strings.TrimSuffix(base, filepath.Ext(base)), modDB)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return cmap, nil
}
