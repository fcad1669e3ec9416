package core

import "math"

// Atomic masses (monoisotopic)
const (
	MassH = 1.0078250321
	MassC = 12.0000000000
	MassN = 14.0030740052
	MassO = 15.9949146221
	MassS = 31.9720706900

	// Proton mass for charge calculations
	ProtonMass = 1.00727646688
)

// AminoAcidComposition stores elemental composition
type AminoAcidComposition struct {
	C, H, N, O, S int
}

func (a AminoAcidComposition) add(b AminoAcidComposition) AminoAcidComposition {
	return AminoAcidComposition{C: a.C + b.C, H: a.H + b.H, N: a.N + b.N, O: a.O + b.O, S: a.S + b.S}
}

// MonoMass returns the monoisotopic mass of the composition.
func (a AminoAcidComposition) MonoMass() float64 {
	return float64(a.C)*MassC +
		float64(a.H)*MassH +
		float64(a.N)*MassN +
		float64(a.O)*MassO +
		float64(a.S)*MassS
}

// AminoAcidResidues maps amino acid one-letter codes to residue composition
var AminoAcidResidues = map[rune]AminoAcidComposition{
	'A': {C: 3, H: 5, N: 1, O: 1},
	'R': {C: 6, H: 12, N: 4, O: 1},
	'N': {C: 4, H: 6, N: 2, O: 2},
	'D': {C: 4, H: 5, N: 1, O: 3},
	'C': {C: 3, H: 5, N: 1, O: 1, S: 1},
	'E': {C: 5, H: 7, N: 1, O: 3},
	'Q': {C: 5, H: 8, N: 2, O: 2},
	'G': {C: 2, H: 3, N: 1, O: 1},
	'H': {C: 6, H: 7, N: 3, O: 1},
	'I': {C: 6, H: 11, N: 1, O: 1},
	'L': {C: 6, H: 11, N: 1, O: 1},
	'K': {C: 6, H: 12, N: 2, O: 1},
	'M': {C: 5, H: 9, N: 1, O: 1, S: 1},
	'F': {C: 9, H: 9, N: 1, O: 1},
	'P': {C: 5, H: 7, N: 1, O: 1},
	'S': {C: 3, H: 5, N: 1, O: 2},
	'T': {C: 4, H: 7, N: 1, O: 2},
	'W': {C: 11, H: 10, N: 2, O: 1},
	'Y': {C: 9, H: 9, N: 1, O: 2},
	'V': {C: 5, H: 9, N: 1, O: 1},
}

var water = AminoAcidComposition{H: 2, O: 1}

// Composition sums the residue compositions of a sequence plus one water.
// Ambiguous residues (B, J, X, Z) and unknown letters contribute nothing.
func Composition(sequence string) AminoAcidComposition {
	comp := water
	for _, aa := range sequence {
		if aaComp, ok := AminoAcidResidues[aa]; ok {
			comp = comp.add(aaComp)
		}
	}
	return comp
}

// CalculateNeutralMass computes the neutral monoisotopic mass of a peptide
func CalculateNeutralMass(sequence string, modifications []Modification) float64 {
	mass := Composition(sequence).MonoMass()
	for _, mod := range modifications {
		mass += mod.Mass
	}
	return mass
}

// CalculatePeptideMass computes monoisotopic mass of a peptide sequence
// including modifications, then returns the m/z for a given charge state.
func CalculatePeptideMass(sequence string, charge int, modifications []Modification) float64 {
	mass := CalculateNeutralMass(sequence, modifications)
	return (mass + float64(charge)*ProtonMass) / float64(charge)
}

// CalculateProteinMass returns the unmodified monoisotopic weight of a protein.
func CalculateProteinMass(sequence string) float64 {
	if sequence == "" {
		return 0
	}
	return Composition(sequence).MonoMass()
}

// RoundFloat rounds a float to n decimal places
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
