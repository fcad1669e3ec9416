package mzidentml

import (
	"encoding/xml"
	"errors"
)

// Types for parsing mzIdentML

// Document holds the parts of an mzIdentML file needed for protein resolution
type Document struct {
	content     mzIdentMLContent
	peptideIdx  map[string]int // Peptide id -> index
	evidenceIdx map[string]int // PeptideEvidence id -> index
	dbSeqIdx    map[string]int // DBSequence id -> index
}

type mzIdentMLContent struct {
	XMLName                      xml.Name                       `xml:"MzIdentML"`
	ID                           string                         `xml:"id,attr"`
	DBSequence                   []dbSequence                   `xml:"SequenceCollection>DBSequence"`
	Peptide                      []peptide                      `xml:"SequenceCollection>Peptide"`
	PeptideEvidence              []peptideEvidence              `xml:"SequenceCollection>PeptideEvidence"`
	SpectrumIdentificationResult []spectrumIdentificationResult `xml:"DataCollection>AnalysisData>SpectrumIdentificationList>SpectrumIdentificationResult"`
}

type dbSequence struct {
	ID        string `xml:"id,attr"`
	Accession string `xml:"accession,attr"`
}

type peptide struct {
	ID              string `xml:"id,attr"`
	PeptideSequence string
	Modification    []modification
}

type modification struct {
	// 0 is the N-terminus, 1..n the residues, n+1 the C-terminus
	Location              int       `xml:"location,attr"`
	MonoisotopicMassDelta float64   `xml:"monoisotopicMassDelta,attr"`
	CvPar                 []cvParam `xml:"cvParam"`
}

type peptideEvidence struct {
	ID            string `xml:"id,attr"`
	DBSequenceRef string `xml:"dBSequence_ref,attr"`
	PeptideRef    string `xml:"peptide_ref,attr"`
	IsDecoy       bool   `xml:"isDecoy,attr"`
}

type spectrumIdentificationResult struct {
	SpectrumID                 string `xml:"spectrumID,attr"`
	SpectrumIdentificationItem []spectrumIdentificationItem
	CvPar                      []cvParam `xml:"cvParam"`
}

type spectrumIdentificationItem struct {
	ChargeState        int                  `xml:"chargeState,attr"`
	Rank               int                  `xml:"rank,attr"`
	PeptideRef         string               `xml:"peptide_ref,attr"`
	PeptideEvidenceRef []peptideEvidenceRef `xml:"PeptideEvidenceRef"`
	CvPar              []cvParam            `xml:"cvParam"`
}

type peptideEvidenceRef struct {
	PeptideEvidenceRef string `xml:"peptideEvidence_ref,attr"`
}

type cvParam struct {
	Accession     string `xml:"accession,attr"`
	Name          string `xml:"name,attr"`
	Value         string `xml:"value,attr"`
	UnitAccession string `xml:"unitAccession,attr"`
}

var (
	ErrUnknownPeptideRef  = errors.New("mzIdentML: unknown peptide reference")
	ErrUnknownEvidenceRef = errors.New("mzIdentML: unknown peptide evidence reference")
)
