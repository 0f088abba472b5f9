package types

import "encoding/json"

// TrainRequest is the optional body of POST /train. When Data is empty the
// server trains from its configured row source.
type TrainRequest struct {
	// Raw training data in the wire format the remote service expects.
	// example: how are you,greeting\nbye,farewell
	Data string `json:"data,omitempty" example:"how are you,greeting\nbye,farewell"`
}

// ProcessRequest is the body of POST /process.
type ProcessRequest struct {
	// Text to classify or query to rank.
	// example: what is the weather like
	Text string `json:"text" example:"what is the weather like"`
}

// ProcessResponse is returned by POST /process.
type ProcessResponse struct {
	// Instance that served (or will serve) the request.
	Instance Instance `json:"instance"`
	// True when the instance is still training and no query was issued.
	// example: false
	Pending bool `json:"pending" example:"false"`
	// Raw classify/rank response from the remote service.
	Result json.RawMessage `json:"result,omitempty"`
}

// InstancesResponse wraps the list returned by GET /instances.
type InstancesResponse struct {
	Instances []Instance `json:"instances"`
}

// InstanceDataResponse is returned by GET /instances/{id}/data.
type InstanceDataResponse struct {
	// example: c1f2
	ID string `json:"id" example:"c1f2"`
	// Training texts grouped by label.
	Classes map[string][]string `json:"classes"`
}

// MonitorResponse acknowledges POST /instances/{id}/monitor.
type MonitorResponse struct {
	// example: c1f2
	ID string `json:"id" example:"c1f2"`
	// example: monitoring
	State string `json:"state" example:"monitoring"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: no classifiers found under name default-classifier
	Error string `json:"error" example:"no classifiers found under name default-classifier"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
