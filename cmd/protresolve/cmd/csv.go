package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/ProtResolve/pkg/core"
)

// customModsFile is loaded into the modification database when present in
// the working directory
const customModsFile = "unimod_custom.csv"

// loadIntensityCSV reads per-peptide intensities (format: Sequence,Intensity)
func loadIntensityCSV(path string) (map[string]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	result := make(map[string]float64)
	scanner := bufio.NewScanner(file)

	// Skip header line
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
			return nil, fmt.Errorf("line %d: expected 2 fields (Sequence,Intensity), got %d", lineNum, len(parts))
		}

		sequence := strings.ToUpper(strings.TrimSpace(parts[0]))
		intensityStr := strings.TrimSpace(parts[1])

		intensity, err := strconv.ParseFloat(intensityStr, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid intensity value '%s': %w", lineNum, intensityStr, err)
		}
		if intensity < 0 {
			return nil, fmt.Errorf("line %d: intensity must be non-negative, got %g", lineNum, intensity)
		}

		result[sequence] = intensity
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}

	return result, nil
}

// loadModDatabase returns the default modifications plus customModsFile if it exists
func loadModDatabase() *core.ModDatabase {
	modDB := core.DefaultModDatabase()

	if _, err := os.Stat(customModsFile); err == nil {
		f, err := os.Open(customModsFile)
		if err == nil {
			if err := modDB.LoadFromCSV(f); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to load %s: %v\n", customModsFile, err)
			}
			f.Close()
		}
	}
	return modDB
}
