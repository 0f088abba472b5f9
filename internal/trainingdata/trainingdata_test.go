package trainingdata

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestGroupByLabel_FromBlob(t *testing.T) {
	rows, err := DecodeCSV([]byte("t1,c1\nt2,c1\nt3,c2"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := GroupByLabel(rows)
	want := map[string][]string{"c1": {"t1", "t2"}, "c2": {"t3"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestGroupByLabel_MultipleLabels(t *testing.T) {
	got := GroupByLabel([][]string{{"hi", "greeting", "smalltalk"}, {"lonely"}})
	if len(got["greeting"]) != 1 || len(got["smalltalk"]) != 1 || got["smalltalk"][0] != "hi" {
		t.Fatalf("unexpected grouping: %v", got)
	}
	if _, ok := got["lonely"]; ok {
		t.Fatalf("row without label must be skipped")
	}
}

func TestEncodeCSVQuotes(t *testing.T) {
	b, err := EncodeCSV([][]string{{"hello, world", "greeting"}, {"bye", "farewell"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(b) != "\"hello, world\",greeting\nbye,farewell\n" {
		t.Fatalf("unexpected csv %q", b)
	}
	rows, err := DecodeCSV(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rows[0][0] != "hello, world" {
		t.Fatalf("quoted field lost: %q", rows[0][0])
	}
}

func TestClassFileRows(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "classes.yaml", "classes:\n  - name: greeting\n    texts: [hi, hello]\n  - name: farewell\n    texts: [bye]\n")
	src, err := FromFile(p)
	if err != nil {
		t.Fatalf("from file: %v", err)
	}
	rows, err := src.TrainingRows(context.Background())
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	want := [][]string{{"hi", "greeting"}, {"hello", "greeting"}, {"bye", "farewell"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("got %v want %v", rows, want)
	}
}

func TestClassFileRejectsUnnamedClass(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "classes.yml", "classes:\n  - texts: [hi]\n")
	if _, err := (ClassFile{Path: p}).TrainingRows(context.Background()); err == nil {
		t.Fatalf("expected error for unnamed class")
	}
}

func TestCSVFileRows(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "rows.csv", "a,x\nb,y\n")
	src, err := FromFile(p)
	if err != nil {
		t.Fatalf("from file: %v", err)
	}
	rows, err := src.TrainingRows(context.Background())
	if err != nil || len(rows) != 2 {
		t.Fatalf("rows=%v err=%v", rows, err)
	}
}

func TestFromFileUnsupported(t *testing.T) {
	if _, err := FromFile("rows.txt"); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestStaticRowsCopies(t *testing.T) {
	s := StaticRows{{"a", "x"}}
	rows, _ := s.TrainingRows(context.Background())
	rows[0][0] = "z"
	if s[0][0] != "a" {
		t.Fatalf("static rows mutated through result")
	}
}
