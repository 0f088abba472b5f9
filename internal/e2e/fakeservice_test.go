package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeClassifierService is an in-memory stand-in for the remote classifier
// service. A created classifier reports Training for readyAfter status checks
// and Available afterwards.
type fakeClassifierService struct {
	mu         sync.Mutex
	seq        int
	readyAfter int
	items      map[string]*fakeClassifier
	order      []string
	deleted    []string
	uploads    map[string]string
}

type fakeClassifier struct {
	ID      string
	Name    string
	Created time.Time
	checks  int
}

func newFakeClassifierService(t *testing.T, readyAfter int) (*fakeClassifierService, *httptest.Server) {
	t.Helper()
	f := &fakeClassifierService{readyAfter: readyAfter, items: map[string]*fakeClassifier{}, uploads: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/classifiers", f.list)
	mux.HandleFunc("POST /v1/classifiers", f.create)
	mux.HandleFunc("GET /v1/classifiers/{id}", f.status)
	mux.HandleFunc("DELETE /v1/classifiers/{id}", f.remove)
	mux.HandleFunc("POST /v1/classifiers/{id}/classify", f.classify)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeClassifierService) dto(c *fakeClassifier, status string) map[string]string {
	m := map[string]string{
		"classifier_id": c.ID,
		"name":          c.Name,
		"created":       c.Created.Format(time.RFC3339Nano),
	}
	if status != "" {
		m["status"] = status
	}
	return m
}

func (f *fakeClassifierService) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []map[string]string{}
	for _, id := range f.order {
		if c, ok := f.items[id]; ok {
			out = append(out, f.dto(c, ""))
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"classifiers": out})
}

func (f *fakeClassifierService) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var meta struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(r.FormValue("training_metadata")), &meta); err != nil || meta.Name == "" {
		http.Error(w, "bad metadata", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("training_data")
	if err != nil {
		http.Error(w, "missing training data", http.StatusBadRequest)
		return
	}
	data, _ := io.ReadAll(file)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	c := &fakeClassifier{
		ID:      fmt.Sprintf("c%d", f.seq),
		Name:    meta.Name,
		Created: time.Date(2020, 1, 1, 0, f.seq, 0, 0, time.UTC),
	}
	f.items[c.ID] = c
	f.order = append(f.order, c.ID)
	f.uploads[c.ID] = string(data)
	_ = json.NewEncoder(w).Encode(f.dto(c, "Training"))
}

func (f *fakeClassifierService) status(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[r.PathValue("id")]
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	c.checks++
	status := "Training"
	if c.checks > f.readyAfter {
		status = "Available"
	}
	_ = json.NewEncoder(w).Encode(f.dto(c, status))
}

func (f *fakeClassifierService) remove(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := f.items[id]; !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	delete(f.items, id)
	f.deleted = append(f.deleted, id)
	_, _ = io.WriteString(w, "{}")
}

func (f *fakeClassifierService) classify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"classifier_id": r.PathValue("id"),
		"text":          body.Text,
		"top_class":     "greeting",
	})
}

func (f *fakeClassifierService) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *fakeClassifierService) upload(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads[id]
}
