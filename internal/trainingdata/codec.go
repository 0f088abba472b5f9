package trainingdata

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// EncodeCSV renders training rows ([text, label, ...]) as CSV, the format the
// classifier service accepts for training.
func EncodeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("encode training csv: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeCSV parses a CSV training blob back into rows. Rows may have a
// varying number of label columns.
func DecodeCSV(blob []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(blob))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode training csv: %w", err)
	}
	return rows, nil
}

// GroupByLabel regroups rows into label -> texts. The first column is the
// text; every following column is a label the text belongs to.
func GroupByLabel(rows [][]string) map[string][]string {
	out := make(map[string][]string)
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		for _, label := range row[1:] {
			out[label] = append(out[label], row[0])
		}
	}
	return out
}
