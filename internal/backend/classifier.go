package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"modelkeeper/internal/trainingdata"
	"modelkeeper/pkg/types"
)

// ClassifierBackend talks to a natural language classifier service.
type ClassifierBackend struct {
	c *restClient
}

// NewClassifierBackend constructs a classifier client.
func NewClassifierBackend(o Options) *ClassifierBackend {
	return &ClassifierBackend{c: newRESTClient(o)}
}

type classifierDTO struct {
	ClassifierID string    `json:"classifier_id"`
	Name         string    `json:"name"`
	Language     string    `json:"language,omitempty"`
	Status       string    `json:"status,omitempty"`
	Created      timestamp `json:"created"`
}

func (d classifierDTO) instance() types.Instance {
	return types.Instance{
		ID:        d.ClassifierID,
		Name:      d.Name,
		Kind:      types.KindClassifier,
		Status:    types.ParseStatus(d.Status),
		CreatedAt: d.Created.Time,
	}
}

func (b *ClassifierBackend) Kind() types.Kind { return types.KindClassifier }

func (b *ClassifierBackend) Create(ctx context.Context, job TrainingJob) (types.Instance, error) {
	meta := map[string]string{"name": job.Name, "language": job.Language}
	var out classifierDTO
	if err := b.c.postTraining(ctx, "create classifier", "/v1/classifiers", meta, job.Data, &out); err != nil {
		return types.Instance{}, err
	}
	inst := out.instance()
	if inst.Name == "" {
		inst.Name = job.Name
	}
	return inst, nil
}

func (b *ClassifierBackend) List(ctx context.Context) ([]types.Instance, error) {
	var out struct {
		Classifiers []classifierDTO `json:"classifiers"`
	}
	if _, err := b.c.do(ctx, "list classifiers", http.MethodGet, "/v1/classifiers", nil, nil, "", &out); err != nil {
		return nil, err
	}
	res := make([]types.Instance, 0, len(out.Classifiers))
	for _, d := range out.Classifiers {
		res = append(res, d.instance())
	}
	return res, nil
}

func (b *ClassifierBackend) Status(ctx context.Context, id string) (types.Instance, error) {
	var out classifierDTO
	if _, err := b.c.do(ctx, "classifier status", http.MethodGet, "/v1/classifiers/"+url.PathEscape(id), nil, nil, "", &out); err != nil {
		return types.Instance{}, err
	}
	if out.ClassifierID == "" {
		out.ClassifierID = id
	}
	return out.instance(), nil
}

func (b *ClassifierBackend) Delete(ctx context.Context, id string) error {
	_, err := b.c.do(ctx, "delete classifier", http.MethodDelete, "/v1/classifiers/"+url.PathEscape(id), nil, nil, "", nil)
	return err
}

func (b *ClassifierBackend) Query(ctx context.Context, id, text string) (json.RawMessage, error) {
	raw, err := b.c.postJSON(ctx, "classify", "/v1/classifiers/"+url.PathEscape(id)+"/classify", map[string]string{"text": text}, nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("classify: response is not JSON")
	}
	return json.RawMessage(raw), nil
}

// EncodeTraining renders rows as CSV.
func (b *ClassifierBackend) EncodeTraining(ctx context.Context, rows [][]string) ([]byte, error) {
	return trainingdata.EncodeCSV(rows)
}
