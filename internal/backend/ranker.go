package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"modelkeeper/pkg/types"
)

// rankerTrainingHeader is the first line of every ranker training payload.
const rankerTrainingHeader = "question_id,f0,f1,f2,f3,f4,f5,f6,f7,f8,f9,f10,f11,f12,r1,r2,s,ground_truth\n"

// defaultFeatureConcurrency bounds parallel feature-extraction queries.
const defaultFeatureConcurrency = 8

// RankerOptions configures a ranker client. Queries and feature extraction
// go through the search collection the rankers re-order.
type RankerOptions struct {
	Options
	ClusterID  string
	Collection string
	// FeatureConcurrency limits parallel feature-extraction queries while
	// building training data (0 = default).
	FeatureConcurrency int
}

// RankerBackend talks to a retrieve-and-rank style ranker service.
type RankerBackend struct {
	c           *restClient
	clusterID   string
	collection  string
	concurrency int
}

// NewRankerBackend constructs a ranker client.
func NewRankerBackend(o RankerOptions) *RankerBackend {
	n := o.FeatureConcurrency
	if n <= 0 {
		n = defaultFeatureConcurrency
	}
	return &RankerBackend{
		c:           newRESTClient(o.Options),
		clusterID:   o.ClusterID,
		collection:  o.Collection,
		concurrency: n,
	}
}

type rankerDTO struct {
	RankerID string    `json:"ranker_id"`
	Name     string    `json:"name"`
	Status   string    `json:"status,omitempty"`
	Created  timestamp `json:"created"`
}

func (d rankerDTO) instance() types.Instance {
	return types.Instance{
		ID:        d.RankerID,
		Name:      d.Name,
		Kind:      types.KindRanker,
		Status:    types.ParseStatus(d.Status),
		CreatedAt: d.Created.Time,
	}
}

func (b *RankerBackend) Kind() types.Kind { return types.KindRanker }

func (b *RankerBackend) Create(ctx context.Context, job TrainingJob) (types.Instance, error) {
	var out rankerDTO
	if err := b.c.postTraining(ctx, "create ranker", "/v1/rankers", map[string]string{"name": job.Name}, job.Data, &out); err != nil {
		return types.Instance{}, err
	}
	inst := out.instance()
	if inst.Name == "" {
		inst.Name = job.Name
	}
	return inst, nil
}

func (b *RankerBackend) List(ctx context.Context) ([]types.Instance, error) {
	var out struct {
		Rankers []rankerDTO `json:"rankers"`
	}
	if _, err := b.c.do(ctx, "list rankers", http.MethodGet, "/v1/rankers", nil, nil, "", &out); err != nil {
		return nil, err
	}
	res := make([]types.Instance, 0, len(out.Rankers))
	for _, d := range out.Rankers {
		res = append(res, d.instance())
	}
	return res, nil
}

func (b *RankerBackend) Status(ctx context.Context, id string) (types.Instance, error) {
	var out rankerDTO
	if _, err := b.c.do(ctx, "ranker status", http.MethodGet, "/v1/rankers/"+url.PathEscape(id), nil, nil, "", &out); err != nil {
		return types.Instance{}, err
	}
	if out.RankerID == "" {
		out.RankerID = id
	}
	return out.instance(), nil
}

func (b *RankerBackend) Delete(ctx context.Context, id string) error {
	_, err := b.c.do(ctx, "delete ranker", http.MethodDelete, "/v1/rankers/"+url.PathEscape(id), nil, nil, "", nil)
	return err
}

func (b *RankerBackend) fcselectPath() (string, error) {
	if b.clusterID == "" || b.collection == "" {
		return "", fmt.Errorf("ranker: cluster id and collection are required")
	}
	return "/v1/solr_clusters/" + url.PathEscape(b.clusterID) + "/solr/" + url.PathEscape(b.collection) + "/fcselect", nil
}

// Query ranks the documents matching text with the given ranker.
func (b *RankerBackend) Query(ctx context.Context, id, text string) (json.RawMessage, error) {
	path, err := b.fcselectPath()
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("q", text)
	q.Set("ranker_id", id)
	q.Set("fl", "id,title,url")
	q.Set("wt", "json")
	raw, err := b.c.do(ctx, "rank", http.MethodGet, path, q, nil, "", nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// EncodeTraining issues one feature-extraction query per [question,
// ground_truth] row and concatenates the returned feature rows after the
// fixed header, in row order. Rows are validated before any query is issued;
// any failing query aborts the whole encoding.
func (b *RankerBackend) EncodeTraining(ctx context.Context, rows [][]string) ([]byte, error) {
	path, err := b.fcselectPath()
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("ranker training row %d: want [question, ground_truth], got %d columns", i, len(row))
		}
	}
	features := make([]string, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, row := range rows {
		g.Go(func() error {
			q := url.Values{}
			q.Set("q", row[0])
			q.Set("gt", row[1])
			q.Set("returnRSInput", "true")
			q.Set("rows", "10")
			q.Set("fl", "id")
			q.Set("wt", "json")
			var out struct {
				RSInput string `json:"RSInput"`
			}
			if _, err := b.c.do(gctx, "feature extraction", http.MethodGet, path, q, nil, "", &out); err != nil {
				return fmt.Errorf("ranker training row %d: %w", i, err)
			}
			features[i] = out.RSInput
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(rankerTrainingHeader)
	for _, f := range features {
		buf.WriteString(f)
	}
	return buf.Bytes(), nil
}
