package trainingdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RowSource supplies training rows when a caller does not pass training data
// explicitly. Each row is [text, label, ...].
type RowSource interface {
	TrainingRows(ctx context.Context) ([][]string, error)
}

// StaticRows is a RowSource over a fixed set of rows.
type StaticRows [][]string

func (s StaticRows) TrainingRows(ctx context.Context) ([][]string, error) {
	out := make([][]string, len(s))
	for i, row := range s {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

// CSVFile reads rows from a CSV file on every call, so edits are picked up by
// the next training run.
type CSVFile struct {
	Path string
}

func (f CSVFile) TrainingRows(ctx context.Context) ([][]string, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read training rows: %w", err)
	}
	return DecodeCSV(b)
}

// ClassFile reads class definitions from a YAML file of the form
//
//	classes:
//	  - name: greeting
//	    texts: ["hi", "hello there"]
//
// and flattens them into [text, class] rows in file order.
type ClassFile struct {
	Path string
}

type classFileDoc struct {
	Classes []struct {
		Name  string   `yaml:"name"`
		Texts []string `yaml:"texts"`
	} `yaml:"classes"`
}

func (f ClassFile) TrainingRows(ctx context.Context) ([][]string, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read class file: %w", err)
	}
	var doc classFileDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse class file: %w", err)
	}
	var rows [][]string
	for _, c := range doc.Classes {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("class file %s: class without name", f.Path)
		}
		for _, t := range c.Texts {
			rows = append(rows, []string{t, c.Name})
		}
	}
	return rows, nil
}

// FromFile picks a RowSource by file extension: .csv, or .yaml/.yml class
// definitions.
func FromFile(path string) (RowSource, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return CSVFile{Path: path}, nil
	case ".yaml", ".yml":
		return ClassFile{Path: path}, nil
	default:
		return nil, fmt.Errorf("unsupported training rows extension: %s", ext)
	}
}
