package lifecycle

import (
	"errors"
	"fmt"

	"modelkeeper/pkg/types"
)

// notFoundError signals that no instance exists under the managed name, or,
// with id set, that no training data was recorded for an instance.
type notFoundError struct {
	kind types.Kind
	name string
	id   string
}

func (e notFoundError) Error() string {
	if e.id != "" {
		return fmt.Sprintf("no training data recorded for %s %s", e.kind, e.id)
	}
	return fmt.Sprintf("no %ss found under name %s", e.kind, e.name)
}

// IsNotFound reports whether err indicates no instance exists (404).
func IsNotFound(err error) bool {
	var e notFoundError
	return errors.As(err, &e)
}

// notAvailableError signals that instances exist but none is usable yet.
type notAvailableError struct {
	kind types.Kind
	name string
}

func (e notAvailableError) Error() string {
	return fmt.Sprintf("no %ss available under name %s", e.kind, e.name)
}

// IsNotAvailable reports whether err indicates no usable instance (503).
func IsNotAvailable(err error) bool {
	var e notAvailableError
	return errors.As(err, &e)
}

// unsupportedError signals an operation the managed service kind does not
// offer.
type unsupportedError struct {
	op   string
	kind types.Kind
}

func (e unsupportedError) Error() string {
	return fmt.Sprintf("%s is not supported for %ss", e.op, e.kind)
}

// IsUnsupported reports whether err names an operation the kind lacks (501).
func IsUnsupported(err error) bool {
	var e unsupportedError
	return errors.As(err, &e)
}

// RemoteServiceError wraps a failed list, status or query call.
type RemoteServiceError struct {
	Op  string
	Err error
}

func (e *RemoteServiceError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *RemoteServiceError) Unwrap() error { return e.Err }

// IsRemoteService reports whether err came from the remote service.
func IsRemoteService(err error) bool {
	var e *RemoteServiceError
	return errors.As(err, &e)
}

// TrainingLaunchError reports a failure to create a training job, including
// failures to build its training data.
type TrainingLaunchError struct{ Err error }

func (e *TrainingLaunchError) Error() string { return "start training: " + e.Err.Error() }
func (e *TrainingLaunchError) Unwrap() error { return e.Err }

func IsTrainingLaunch(err error) bool {
	var e *TrainingLaunchError
	return errors.As(err, &e)
}

// TrainingFailedError reports an instance that left Training without becoming
// Available.
type TrainingFailedError struct {
	Instance types.Instance
}

func (e *TrainingFailedError) Error() string {
	return fmt.Sprintf("training %s ended with status %s", e.Instance.ID, e.Instance.Status)
}

func IsTrainingFailed(err error) bool {
	var e *TrainingFailedError
	return errors.As(err, &e)
}

// RetentionError reports a failed remote delete while pruning.
type RetentionError struct {
	ID  string
	Err error
}

func (e *RetentionError) Error() string { return "delete " + e.ID + ": " + e.Err.Error() }
func (e *RetentionError) Unwrap() error { return e.Err }

func IsRetention(err error) bool {
	var e *RetentionError
	return errors.As(err, &e)
}

// trainingClaimedError signals another manager holds the launch claim.
type trainingClaimedError struct{ err error }

func (e trainingClaimedError) Error() string { return "training already claimed: " + e.err.Error() }
func (e trainingClaimedError) Unwrap() error { return e.err }

// IsTrainingClaimed reports whether a launch lost to a concurrent claim (409).
func IsTrainingClaimed(err error) bool {
	var e trainingClaimedError
	return errors.As(err, &e)
}

// errNoTrainingData is returned by InstanceData when no store is configured.
var errNoTrainingData = errors.New("training data store not configured")
