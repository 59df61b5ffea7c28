package geo

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Entry is one row of the offline zip code dataset.
type Entry struct {
	Zip   string
	City  string
	State string
	Lat   float64
	Lng   float64
}

// LoadDataset reads a zip code dataset from a CSV file.
// Expected columns: zip,city,state,lat,lng. A header row is skipped when the
// first column reads "zip".
func LoadDataset(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	entries, err := ReadDataset(f)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return entries, nil
}

// ReadDataset parses zip code dataset rows from r.
func ReadDataset(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5
	cr.TrimLeadingSpace = true

	var entries []Entry
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		line++
		if line == 1 && strings.EqualFold(record[0], "zip") {
			continue
		}

		zip := strings.TrimSpace(record[0])
		if zip == "" {
			return nil, fmt.Errorf("row %d: empty zip code", line)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: latitude: %w", line, err)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: longitude: %w", line, err)
		}
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return nil, fmt.Errorf("row %d: coordinates out of range (%f, %f)", line, lat, lng)
		}

		entries = append(entries, Entry{
			Zip:   zip,
			City:  strings.TrimSpace(record[1]),
			State: strings.TrimSpace(record[2]),
			Lat:   lat,
			Lng:   lng,
		})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}
	return entries, nil
}
