package core

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ModDatabase stores modification definitions
type ModDatabase struct {
	mods map[string]float64 // name -> mass shift
}

// NewModDatabase creates an empty modification database
func NewModDatabase() *ModDatabase {
	return &ModDatabase{
		mods: make(map[string]float64),
	}
}

// LoadFromCSV loads modifications from a CSV file (format: mod,massshift[,aa])
func (db *ModDatabase) LoadFromCSV(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	// header
	scanner.Scan()

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			return fmt.Errorf("line %d: invalid format, expected at least 2 comma-separated fields", lineNum)
		}

		modName := strings.TrimSpace(parts[0])
		massStr := strings.TrimSpace(parts[1])

		mass, err := strconv.ParseFloat(massStr, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid mass value '%s': %w", lineNum, massStr, err)
		}

		db.mods[modName] = mass
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading CSV: %w", err)
	}

	return nil
}

// GetMass returns the mass shift for a modification name
func (db *ModDatabase) GetMass(name string) (float64, bool) {
	mass, ok := db.mods[name]
	return mass, ok
}

// Add adds or updates a modification
func (db *ModDatabase) Add(name string, mass float64) {
	db.mods[name] = mass
}

// ParseModifiedSequence splits an annotated peptide string into its unmodified
// sequence and modification list. Accepted notations:
//
//	PEPT(Phospho)IDE  PEPT[Phospho]IDE  PEPM[+15.9949]K  (Acetyl)PEPTIDE  K.PEPTIDE.R
//
// A modification directly before the first residue is N-terminal (position -1).
// Names are resolved against the database; numeric shifts are used as given.
func (db *ModDatabase) ParseModifiedSequence(annotated string) (string, []Modification, error) {
	s := strings.TrimSpace(annotated)
	s = stripFlanks(s)

	var (
		seq  strings.Builder
		mods []Modification
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '(' || c == '[':
			end := matchingClose(s, i)
			if end < 0 {
				return "", nil, fmt.Errorf("unterminated modification in '%s'", annotated)
			}
			mod, err := db.resolveMod(s[i+1 : end])
			if err != nil {
				return "", nil, fmt.Errorf("peptide '%s': %w", annotated, err)
			}
			mod.Position = seq.Len() - 1
			mods = append(mods, mod)
			i = end
		case c >= 'a' && c <= 'z':
			seq.WriteByte(c - 'a' + 'A')
		case c >= 'A' && c <= 'Z':
			seq.WriteByte(c)
		case c == '-' || c == '.':
		default:
			return "", nil, fmt.Errorf("invalid character %q in peptide '%s'", c, annotated)
		}
	}
	if seq.Len() == 0 {
		return "", nil, fmt.Errorf("empty peptide sequence '%s'", annotated)
	}
	return seq.String(), mods, nil
}

func (db *ModDatabase) resolveMod(token string) (Modification, error) {
	token = strings.TrimSpace(token)
	if mass, err := strconv.ParseFloat(token, 64); err == nil {
		return Modification{Mass: mass, Name: token}, nil
	}
	mass, ok := db.GetMass(token)
	if !ok {
		return Modification{}, fmt.Errorf("unknown modification '%s'", token)
	}
	return Modification{Mass: mass, Name: token}, nil
}

// matchingClose returns the index of the bracket closing the one opened at
// s[open], honouring nesting such as "(Label:13C(6)15N(2))", or -1.
func matchingClose(s string, open int) int {
	opener := s[open]
	closer := byte(')')
	if opener == '[' {
		closer = ']'
	}
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// stripFlanks removes preceding/following residues written as "K.PEPTIDE.R".
func stripFlanks(s string) string {
	if len(s) > 2 && s[1] == '.' {
		s = s[2:]
	}
	if n := len(s); n > 2 && s[n-2] == '.' {
		s = s[:n-2]
	}
	return s
}

// DefaultModDatabase returns a ModDatabase pre-loaded with common modifications
func DefaultModDatabase() *ModDatabase {
	db := NewModDatabase()

	// Common modifications from unimod
	db.Add("Acetyl", 42.010565)
	db.Add("Amidated", -0.984016)
	db.Add("Carbamidomethyl", 57.021464)
	db.Add("Carbamyl", 43.005814)
	db.Add("Deamidated", 0.984016)
	db.Add("Phospho", 79.966331)
	db.Add("Oxidation", 15.994915)
	db.Add("Methyl", 14.01565)
	db.Add("Dimethyl", 28.0313)
	db.Add("Trimethyl", 42.04695)
	db.Add("Glu->pyro-Glu", -18.010565)
	db.Add("Gln->pyro-Glu", -17.026549)
	db.Add("HexNAc", 203.079373)
	db.Add("GG", 114.042927)
	db.Add("TMT6plex", 229.162932)
	db.Add("TMTpro", 304.207146)
	db.Add("iTRAQ4plex", 144.102063)
	db.Add("iTRAQ8plex", 304.205360)
	db.Add("Label:13C(6)15N(2)", 8.014199)
	db.Add("Label:13C(6)15N(4)", 10.008269)

	return db
}
