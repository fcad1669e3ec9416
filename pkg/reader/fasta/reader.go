// Package fasta provides a streaming reader for protein sequence databases in FASTA format
package fasta

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ChrisMcGann/ProtResolve/pkg/core"
)

const maxLineSize = 16 * 1024 * 1024

// Reader provides streaming access to FASTA records
type Reader struct {
	scanner   *bufio.Scanner
	lineNum   int
	pending   string // header line read ahead of the current record
	current   *core.ProteinRecord
	err       error
	exhausted bool
}

// NewReader creates a new FASTA reader
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Reader{scanner: scanner}
}

// Next advances to the next record. Returns false when no more records or error.
func (r *Reader) Next() bool {
	r.current = nil
	if r.exhausted || r.err != nil {
		return false
	}

	rec, err := r.readRecord()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		r.exhausted = true
		return false
	}

	r.current = rec
	return true
}

// Record returns the current protein record
func (r *Reader) Record() *core.ProteinRecord {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) readRecord() (*core.ProteinRecord, error) {
	header := r.pending
	r.pending = ""

	// Find the first header, skipping blank lines and ';' comments
	for header == "" {
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
			return nil, io.EOF
		}
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if !strings.HasPrefix(line, ">") {
			return nil, fmt.Errorf("line %d: sequence data before first header", r.lineNum)
		}
		header = line
	}

	rec := parseHeader(header)
	var seq strings.Builder
	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())
		if strings.HasPrefix(line, ">") {
			r.pending = line
			break
		}
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		for _, c := range line {
			switch {
			case c >= 'a' && c <= 'z':
				seq.WriteRune(c - 'a' + 'A')
			case c >= 'A' && c <= 'Z':
				seq.WriteRune(c)
			case c == '*' || c == ' ' || c == '\t':
				// stop codons and inline whitespace are dropped
			default:
				return nil, fmt.Errorf("line %d: invalid residue %q in %s", r.lineNum, c, rec.Accession)
			}
		}
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
	}

	rec.Sequence = seq.String()
	return rec, nil
}

// parseHeader splits ">ACCESSION description" into its parts.
func parseHeader(line string) *core.ProteinRecord {
	line = strings.TrimSpace(strings.TrimPrefix(line, ">"))
	accession, description, _ := strings.Cut(line, " ")
	return &core.ProteinRecord{
		Accession:   accession,
		Description: strings.TrimSpace(description),
	}
}

// ReadAll reads every record, validating each and rejecting duplicate accessions.
func ReadAll(r io.Reader) ([]core.ProteinRecord, error) {
	reader := NewReader(r)
	var records []core.ProteinRecord
	for reader.Next() {
		rec := reader.Record()
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records)+1, err)
		}
		records = append(records, *rec)
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}
	if err := core.ValidateProteins(records); err != nil {
		return nil, err
	}
	return records, nil
}

// Open opens a FASTA file for reading. "-" reads standard input; gzip input
// is detected by its magic number or a .gz suffix.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FASTA file: %w", err)
	}

	var sig [2]byte
	n, _ := fh.Read(sig[:])
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		fh.Close()
		return nil, fmt.Errorf("failed to rewind %s: %w", path, err)
	}
	if (n == 2 && sig[0] == 0x1f && sig[1] == 0x8b) || strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			fh.Close()
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
		}
		return &gzipFile{Reader: gr, file: fh}, nil
	}
	return fh, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	gerr := g.Reader.Close()
	if err := g.file.Close(); err != nil {
		return err
	}
	return gerr
}

// Load opens and reads a whole FASTA database.
func Load(path string) ([]core.ProteinRecord, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	records, err := ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}
