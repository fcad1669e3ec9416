// Package mzidentml reads peptide identifications from mzIdentML files.
package mzidentml

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/ChrisMcGann/ProtResolve/pkg/core"
)

// Read reads mzIdentML content from io.reader
func Read(reader io.Reader) (*Document, error) {
	doc := &Document{}
	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel
	if err := d.Decode(&doc.content); err != nil {
		return nil, err
	}
	doc.buildIndexes()
	return doc, nil
}

func (m *Document) buildIndexes() {
	m.peptideIdx = make(map[string]int, len(m.content.Peptide))
	for i, p := range m.content.Peptide {
		m.peptideIdx[p.ID] = i
	}
	m.evidenceIdx = make(map[string]int, len(m.content.PeptideEvidence))
	for i, e := range m.content.PeptideEvidence {
		m.evidenceIdx[e.ID] = i
	}
	m.dbSeqIdx = make(map[string]int, len(m.content.DBSequence))
	for i, s := range m.content.DBSequence {
		m.dbSeqIdx[s.ID] = i
	}
}

// ID returns the id attribute of the MzIdentML element
func (m *Document) ID() string {
	return m.content.ID
}

// NumResults returns the number of spectrum identification results
func (m *Document) NumResults() int {
	return len(m.content.SpectrumIdentificationResult)
}

// DecoyAccessions returns the accessions referenced by decoy peptide evidence.
func (m *Document) DecoyAccessions() map[string]bool {
	decoys := make(map[string]bool)
	for _, e := range m.content.PeptideEvidence {
		if !e.IsDecoy {
			continue
		}
		if i, ok := m.dbSeqIdx[e.DBSequenceRef]; ok {
			decoys[m.content.DBSequence[i].Accession] = true
		}
	}
	return decoys
}

// Run converts the spectrum identification results into an identification run.
// Each result becomes one identification, each item one hit.
func (m *Document) Run(id string) (*core.IdentificationRun, error) {
	run := &core.IdentificationRun{ID: id}
	for i := range m.content.SpectrumIdentificationResult {
		ident, err := m.identification(i)
		if err != nil {
			return nil, err
		}
		run.Identifications = append(run.Identifications, ident)
	}
	return run, nil
}

func (m *Document) identification(i int) (core.PeptideIdentification, error) {
	res := &m.content.SpectrumIdentificationResult[i]
	ident := core.PeptideIdentification{SpectrumID: res.SpectrumID}

	rt, err := retentionTime(res.CvPar)
	if err != nil {
		return ident, fmt.Errorf("spectrum %s: %w", res.SpectrumID, err)
	}
	ident.RetentionTime = rt

	for j := range res.SpectrumIdentificationItem {
		item := &res.SpectrumIdentificationItem[j]
		pepIdx, ok := m.peptideIdx[item.PeptideRef]
		if !ok {
			return ident, fmt.Errorf("spectrum %s: %w '%s'", res.SpectrumID, ErrUnknownPeptideRef, item.PeptideRef)
		}
		pep := &m.content.Peptide[pepIdx]

		hit := core.PeptideHit{
			Sequence: strings.ToUpper(pep.PeptideSequence),
			Charge:   item.ChargeState,
			Rank:     item.Rank,
			Score:    score(item.CvPar),
		}
		for _, mod := range pep.Modification {
			name := ""
			if len(mod.CvPar) > 0 {
				name = mod.CvPar[0].Name
			}
			pos := mod.Location - 1
			if mod.Location <= 0 {
				pos = -1
			}
			hit.Modifications = append(hit.Modifications, core.Modification{
				Mass:     mod.MonoisotopicMassDelta,
				Position: pos,
				Name:     name,
			})
		}
		for _, ref := range item.PeptideEvidenceRef {
			evIdx, ok := m.evidenceIdx[ref.PeptideEvidenceRef]
			if !ok {
				return ident, fmt.Errorf("spectrum %s: %w '%s'", res.SpectrumID, ErrUnknownEvidenceRef, ref.PeptideEvidenceRef)
			}
			if seqIdx, ok := m.dbSeqIdx[m.content.PeptideEvidence[evIdx].DBSequenceRef]; ok {
				hit.Accessions = append(hit.Accessions, m.content.DBSequence[seqIdx].Accession)
			}
		}
		if ident.Charge == 0 {
			ident.Charge = item.ChargeState
		}
		ident.Hits = append(ident.Hits, hit)
	}
	return ident, nil
}

// retentionTime returns the retention time in seconds, or -1 if none is
// reported. In order of decreasing preference the CV terms are:
// MS:1000016 scan start time, MS:1000894 retention time,
// MS:1000826 elution time, MS:1001114 retention time (deprecated).
func retentionTime(cvs []cvParam) (float64, error) {
	rt := float64(-1)
	prio := math.MaxInt32
	for _, cv := range cvs {
		p, ok := rtPriority[cv.Accession]
		if !ok || p >= prio {
			continue
		}
		v, err := strconv.ParseFloat(cv.Value, 64)
		if err != nil {
			return -1, err
		}
		// minutes, otherwise seconds
		if cv.UnitAccession == "UO:0000031" || cv.UnitAccession == "MS:1000038" {
			v *= 60
		}
		rt = v
		prio = p
	}
	return rt, nil
}

var rtPriority = map[string]int{
	"MS:1000016": 1,
	"MS:1000894": 2,
	"MS:1000826": 3,
	"MS:1001114": 4,
}

// scoreAccessions are the PSM scores taken as hit score, most preferred first.
var scoreAccessions = []string{
	"MS:1002257", // Comet:expectation value
	"MS:1002053", // MS-GF:EValue
	"MS:1001330", // X!Tandem:expect
	"MS:1001328", // OMSSA:evalue
	"MS:1002354", // PSM-level q-value
	"MS:1001171", // Mascot:score
}

func score(cvs []cvParam) float64 {
	for _, acc := range scoreAccessions {
		for _, cv := range cvs {
			if cv.Accession != acc {
				continue
			}
			if v, err := strconv.ParseFloat(cv.Value, 64); err == nil {
				return v
			}
		}
	}
	return 0
}

// Load reads an mzIdentML file and returns its identification run together
// with the decoy accessions it declares. The run identifier is the document
// id, or the file name without extension.
func Load(path string) (*core.IdentificationRun, map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open mzIdentML file: %w", err)
	}
	defer f.Close()

	doc, err := Read(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	id := doc.ID()
	if id == "" {
		base := filepath.Base(path)
		id = strings.TrimSuffix(base, filepath.Ext(base))
	}
	run, err := doc.Run(id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return run, doc.DecoyAccessions(), nil
}
