// Package lifecycle keeps one "current" trained instance per logical name in
// sync with a remote training service. It is structured into small files by
// concern:
//
//   - manager.go: Manager type, constructor, getters, status poller and lister.
//   - config.go: Config and per-kind defaults; NewWithConfig applies them.
//   - cache.go: InstanceCache, the owned current/in-progress state.
//   - errors.go: error types and helpers (IsNotFound, IsNotAvailable, ...).
//   - resolver.go: picks the current instance (cached, available, training).
//   - launcher.go: starts training jobs and records their training data.
//   - monitor.go: polls an in-flight instance until it is terminal.
//   - retention.go: deletes the oldest instances past the retention limit.
//   - facade.go: public operations (Train, TrainIfNeeded, Process, ...).
//
// The Manager is generic over backend.Backend, so classifiers and rankers
// share every code path. All methods are safe for concurrent use; overlapping
// resolutions of an uncached name may still launch twice unless launch claims
// are configured.
package lifecycle
