// Package digest provides in-silico enzymatic digestion of protein sequences.
package digest

import (
	"fmt"
	"strings"
)

// Digester produces the theoretical peptides of a protein sequence.
// Implementations must be deterministic and return each peptide once.
type Digester interface {
	Digest(sequence string) []string
}

// Enzyme describes where a protease cleaves.
type Enzyme struct {
	Name string
	// Residues at which the enzyme cuts
	Residues string
	// Cut before the residue instead of after it (Asp-N)
	NTerminal bool
	// Residues that block cleavage when they follow the cut site (trypsin: P)
	Restrict string
}

// Known enzymes, selectable by name.
var (
	Trypsin  = Enzyme{Name: "trypsin", Residues: "KR", Restrict: "P"}
	TrypsinP = Enzyme{Name: "trypsin/p", Residues: "KR"}
	LysC     = Enzyme{Name: "lys-c", Residues: "K"}
	ArgC     = Enzyme{Name: "arg-c", Residues: "R", Restrict: "P"}
	AspN     = Enzyme{Name: "asp-n", Residues: "D", NTerminal: true}
	// NoCleavage keeps every protein whole
	NoCleavage = Enzyme{Name: "none"}
)

var enzymes = map[string]Enzyme{
	Trypsin.Name:    Trypsin,
	TrypsinP.Name:   TrypsinP,
	LysC.Name:       LysC,
	ArgC.Name:       ArgC,
	AspN.Name:       AspN,
	NoCleavage.Name: NoCleavage,
}

// EnzymeNames lists the names accepted by LookupEnzyme.
func EnzymeNames() []string {
	return []string{Trypsin.Name, TrypsinP.Name, LysC.Name, ArgC.Name, AspN.Name, NoCleavage.Name}
}

// LookupEnzyme returns the enzyme registered under name (case-insensitive).
func LookupEnzyme(name string) (Enzyme, error) {
	e, ok := enzymes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Enzyme{}, fmt.Errorf("unknown enzyme '%s', must be one of %s", name, strings.Join(EnzymeNames(), ", "))
	}
	return e, nil
}

// Sites returns the cleavage positions in sequence. Position i means the
// sequence is cut between residue i-1 and residue i; 0 and len(sequence) are
// not reported.
func (e Enzyme) Sites(sequence string) []int {
	if e.Residues == "" {
		return nil
	}
	var sites []int
	for i := 1; i < len(sequence); i++ {
		if e.NTerminal {
			if strings.IndexByte(e.Residues, sequence[i]) >= 0 {
				sites = append(sites, i)
			}
			continue
		}
		if strings.IndexByte(e.Residues, sequence[i-1]) < 0 {
			continue
		}
		if e.Restrict != "" && strings.IndexByte(e.Restrict, sequence[i]) >= 0 {
			continue
		}
		sites = append(sites, i)
	}
	return sites
}

// Protease digests with an enzyme, a missed-cleavage allowance and a length window.
type Protease struct {
	Enzyme          Enzyme
	MissedCleavages int
	MinLength       int
	MaxLength       int // 0 = no limit
}

// New builds a Protease for the named enzyme.
func New(enzyme string, missedCleavages, minLength, maxLength int) (*Protease, error) {
	e, err := LookupEnzyme(enzyme)
	if err != nil {
		return nil, err
	}
	if missedCleavages < 0 {
		return nil, fmt.Errorf("missed cleavages must be non-negative, got %d", missedCleavages)
	}
	if maxLength > 0 && maxLength < minLength {
		return nil, fmt.Errorf("max length %d is smaller than min length %d", maxLength, minLength)
	}
	return &Protease{Enzyme: e, MissedCleavages: missedCleavages, MinLength: minLength, MaxLength: maxLength}, nil
}

// Digest implements Digester. Peptides are returned in order of their start
// position, shorter first at equal starts; repeated sequences are reported once.
func (p *Protease) Digest(sequence string) []string {
	if sequence == "" {
		return nil
	}
	bounds := make([]int, 0, 8)
	bounds = append(bounds, 0)
	bounds = append(bounds, p.Enzyme.Sites(sequence)...)
	bounds = append(bounds, len(sequence))

	seen := make(map[string]struct{})
	var peptides []string
	for i := 0; i < len(bounds)-1; i++ {
		for j := i + 1; j < len(bounds) && j-i-1 <= p.MissedCleavages; j++ {
			pep := sequence[bounds[i]:bounds[j]]
			if !p.acceptLength(len(pep)) {
				continue
			}
			if _, dup := seen[pep]; dup {
				continue
			}
			seen[pep] = struct{}{}
			peptides = append(peptides, pep)
		}
	}
	return peptides
}

func (p *Protease) acceptLength(n int) bool {
	if n < p.MinLength {
		return false
	}
	return p.MaxLength <= 0 || n <= p.MaxLength
}
