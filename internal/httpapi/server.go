package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelkeeper/internal/lifecycle"
	"modelkeeper/pkg/types"
)

// Service defines the lifecycle operations the HTTP API exposes.
// *lifecycle.Manager implements it.
type Service interface {
	Kind() types.Kind
	Name() string
	Ready() bool
	Train(ctx context.Context, src lifecycle.TrainingSource) (types.Instance, error)
	TrainIfNeeded(ctx context.Context) (types.Instance, error)
	MonitorTraining(ctx context.Context, id string) (types.Instance, error)
	Status(ctx context.Context, id string) (types.Instance, error)
	List(ctx context.Context) ([]types.Instance, error)
	Current(ctx context.Context) (types.Instance, error)
	Process(ctx context.Context, text string) (lifecycle.ProcessResult, error)
	InstanceData(ctx context.Context, id string) (map[string][]string, error)
}

// NewMux builds the router:
//
//	GET  /instances                 list under the managed name
//	GET  /instances/current         current instance, never trains
//	GET  /instances/{id}/status     single status check
//	GET  /instances/{id}/data       recorded training data by label
//	POST /instances/{id}/monitor    monitor in the background (?wait=true blocks)
//	GET  /status                    status of the current instance
//	POST /train                     start a new job
//	POST /train-if-needed           resolve, training only if nothing is usable
//	POST /process                   classify or rank text
//	GET  /swagger/*                 API description and UI
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc}
	r.Group(func(r chi.Router) {
		r.Use(inflight)
		r.Get("/instances", h.list)
		r.Get("/instances/current", h.current)
		r.Get("/instances/{id}/status", h.status)
		r.Get("/instances/{id}/data", h.data)
		r.Post("/instances/{id}/monitor", h.monitor)
		r.Get("/status", h.status)
		r.Post("/train", h.train)
		r.Post("/train-if-needed", h.trainIfNeeded)
		r.Post("/process", h.process)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no current instance"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

type handlers struct {
	svc Service
}

// run executes op under a context joined with the server base context and
// writes either the value or the mapped error.
func (h *handlers) run(w http.ResponseWriter, r *http.Request, op string, status int, fn func(ctx context.Context) (any, error)) {
	start := time.Now()
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	v, err := fn(ctx)
	if err != nil {
		// If context was canceled (client disconnect), just return.
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		code := statusFor(err)
		countOperationError(op, code)
		writeJSONError(w, code, err.Error())
		logOp(r, op, code, start, err)
		return
	}
	writeJSON(w, status, v)
	logOp(r, op, status, start, nil)
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "list", http.StatusOK, func(ctx context.Context) (any, error) {
		insts, err := h.svc.List(ctx)
		if err != nil {
			return nil, err
		}
		if insts == nil {
			insts = []types.Instance{}
		}
		return types.InstancesResponse{Instances: insts}, nil
	})
}

func (h *handlers) current(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "current", http.StatusOK, func(ctx context.Context) (any, error) {
		return h.svc.Current(ctx)
	})
}

// status serves both /status (current instance) and /instances/{id}/status.
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.run(w, r, "status", http.StatusOK, func(ctx context.Context) (any, error) {
		return h.svc.Status(ctx, id)
	})
}

func (h *handlers) data(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.run(w, r, "data", http.StatusOK, func(ctx context.Context) (any, error) {
		classes, err := h.svc.InstanceData(ctx, id)
		if err != nil {
			return nil, err
		}
		return types.InstanceDataResponse{ID: id, Classes: classes}, nil
	})
}

func (h *handlers) monitor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if r.URL.Query().Get("wait") == "true" {
		h.run(w, r, "monitor", http.StatusOK, func(ctx context.Context) (any, error) {
			return h.svc.MonitorTraining(ctx, id)
		})
		return
	}
	monitorsRunning.Inc()
	go func() {
		defer monitorsRunning.Dec()
		start := time.Now()
		inst, err := h.svc.MonitorTraining(serverBaseCtx, id)
		if zlog != nil {
			z := zlog.Info()
			if err != nil {
				z = zlog.Error().Err(err)
			}
			z.Str("op", "monitor").Str("id", id).Str("status", string(inst.Status)).Dur("dur", time.Since(start)).Msg("background monitor end")
		}
	}()
	writeJSON(w, http.StatusAccepted, types.MonitorResponse{ID: id, State: "monitoring"})
	logOp(r, "monitor", http.StatusAccepted, time.Now(), nil)
}

func (h *handlers) train(w http.ResponseWriter, r *http.Request) {
	var req types.TrainRequest
	if r.ContentLength != 0 && r.Body != nil {
		if !decodeJSON(w, r, &req) {
			return
		}
	}
	var src lifecycle.TrainingSource
	if req.Data != "" {
		src.Blob = []byte(req.Data)
	}
	h.run(w, r, "train", http.StatusAccepted, func(ctx context.Context) (any, error) {
		return h.svc.Train(ctx, src)
	})
}

func (h *handlers) trainIfNeeded(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "train_if_needed", http.StatusOK, func(ctx context.Context) (any, error) {
		return h.svc.TrainIfNeeded(ctx)
	})
}

func (h *handlers) process(w http.ResponseWriter, r *http.Request) {
	var req types.ProcessRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// Basic validation
	if strings.TrimSpace(req.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}
	h.run(w, r, "process", http.StatusOK, func(ctx context.Context) (any, error) {
		res, err := h.svc.Process(ctx, req.Text)
		if err != nil {
			return nil, err
		}
		return types.ProcessResponse{Instance: res.Instance, Pending: res.Pending, Result: res.Result}, nil
	})
}

// decodeJSON enforces the JSON content type and body limit, writing a 4xx on
// failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	// Limit body size (configurable, default 1MiB)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		if errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, "empty JSON body")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
