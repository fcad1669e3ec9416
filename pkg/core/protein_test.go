package core

import (
	"errors"
	"testing"
)

func TestProteinValidation(t *testing.T) {
	tests := []struct {
		name    string
		protein ProteinRecord
		wantErr bool
	}{
		{
			name:    "valid protein",
			protein: ProteinRecord{Accession: "P12345", Sequence: "MKTAYIAKQR"},
			wantErr: false,
		},
		{
			name:    "missing accession",
			protein: ProteinRecord{Sequence: "MKTAYIAKQR"},
			wantErr: true,
		},
		{
			name:    "missing sequence",
			protein: ProteinRecord{Accession: "P12345"},
			wantErr: true,
		},
		{
			name:    "lower case residue",
			protein: ProteinRecord{Accession: "P12345", Sequence: "MKtAY"},
			wantErr: true,
		},
		{
			name:    "stop codon",
			protein: ProteinRecord{Accession: "P12345", Sequence: "MKTA*"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.protein.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Errorf("Validate() error type = %T, want *ValidationError", err)
				}
			}
		})
	}
}

func TestValidateProteinsDuplicateAccession(t *testing.T) {
	proteins := []ProteinRecord{
		{Accession: "P1", Sequence: "AAAK"},
		{Accession: "P2", Sequence: "CCCK"},
		{Accession: "P1", Sequence: "DDDK"},
	}
	if err := ValidateProteins(proteins); err == nil {
		t.Fatal("ValidateProteins() expected duplicate accession error")
	}
	if err := ValidateProteins(proteins[:2]); err != nil {
		t.Fatalf("ValidateProteins() unexpected error: %v", err)
	}
}

func TestSortHits(t *testing.T) {
	id := PeptideIdentification{Hits: []PeptideHit{
		{Sequence: "AAA", Score: 0.05},
		{Sequence: "CCC", Score: 0.01},
		{Sequence: "DDD", Score: 0.05},
	}}

	id.SortHits(false)
	if id.Hits[0].Sequence != "CCC" || id.Hits[1].Sequence != "AAA" || id.Hits[2].Sequence != "DDD" {
		t.Errorf("SortHits(lower better) order = %v", []string{id.Hits[0].Sequence, id.Hits[1].Sequence, id.Hits[2].Sequence})
	}
	if id.Hits[0].Rank != 1 || id.Hits[2].Rank != 3 {
		t.Errorf("SortHits() ranks = %d,%d, want 1,3", id.Hits[0].Rank, id.Hits[2].Rank)
	}

	id.SortHits(true)
	if id.Hits[0].Sequence != "AAA" || id.Hits[2].Sequence != "CCC" {
		t.Errorf("SortHits(higher better) first=%s last=%s", id.Hits[0].Sequence, id.Hits[2].Sequence)
	}
}

func TestEvidenceValidation(t *testing.T) {
	run := &IdentificationRun{ID: "run1", Identifications: []PeptideIdentification{
		{Hits: []PeptideHit{{Sequence: "PEPTIDEK"}}},
		{Hits: []PeptideHit{{Sequence: "PEP1"}}},
	}}
	if err := run.Validate(); err == nil {
		t.Error("IdentificationRun.Validate() expected error for invalid residue")
	}
	if got := run.NumHits(); got != 2 {
		t.Errorf("NumHits() = %d, want 2", got)
	}

	cmap := &ConsensusMap{ID: "map", Features: []ConsensusFeature{
		{Intensity: -1, Identifications: []PeptideIdentification{{Hits: []PeptideHit{{Sequence: "AAK"}}}}},
		{Intensity: 10, Identifications: []PeptideIdentification{{}}},
	}}
	if err := cmap.Validate(); err == nil {
		t.Error("ConsensusMap.Validate() expected error for negative intensity")
	}
	if got := cmap.NumHits(); got != 1 {
		t.Errorf("ConsensusMap.NumHits() = %d, want 1", got)
	}
}

func TestModString(t *testing.T) {
	hit := PeptideHit{
		Sequence: "PEPTIDE",
		Modifications: []Modification{
			{Mass: 57.021464, Position: 0},
			{Mass: 15.994915, Position: 3},
		},
	}
	if got, want := hit.ModString(), "57.021464@0;15.994915@3"; got != want {
		t.Errorf("ModString() = %q, want %q", got, want)
	}
}
