package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound              = errors.New("entity not found")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrNotAuthenticated      = errors.New("not authenticated")
	ErrUnknownTransformation = errors.New("unknown transformation type")

	// Submission preconditions, checked locally before any network call.
	ErrMissingSourceImage  = errors.New("source image is required")
	ErrMissingTargetImage  = errors.New("face swap requires a target image")
	ErrInsufficientCredits = errors.New("insufficient credits")

	// Lifecycle errors
	ErrNoActiveJob   = errors.New("no active job")
	ErrPollTimeout   = errors.New("job polling timed out")
	ErrImageTooLarge = errors.New("image exceeds size limit")
	ErrImageFormat   = errors.New("unsupported image format")
)

// SubmissionError reports a submit request the backend (or the transport on
// the way to it) rejected. No job exists and no credits were spent when one
// of these is returned.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("submission rejected: %s", e.Message)
	}
	return "submission failed: network error"
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// JobFailedError is the terminal failure the backend reports through the
// poll loop.
type JobFailedError struct {
	JobID  string
	Reason string
}

func (e *JobFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("job %s failed", e.JobID)
	}
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Reason)
}
