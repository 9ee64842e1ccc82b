package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEligibleMedia is returned when selection cannot find media the analysis
	// service accepts.
	ErrNoEligibleMedia = errors.New("no eligible media")

	// ErrMissingURL is returned when an analyze request carries no URL.
	ErrMissingURL = errors.New("url is required")

	// ErrMirrorNotConfigured is returned by the mirror endpoint when no bucket is set.
	ErrMirrorNotConfigured = errors.New("mirror not configured")

	// ErrSelectionExhausted is returned when eligible media exists but every
	// random draw missed it.
	ErrSelectionExhausted = errors.New("selection exhausted")

	// ErrInvalidMediaName is returned when a media name would leave the temp directory.
	ErrInvalidMediaName = errors.New("invalid media name")
)

// ExhaustedError is returned when random selection gives up after Attempts draws.
type ExhaustedError struct {
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts", ErrSelectionExhausted, e.Attempts)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrSelectionExhausted
}

// StageError tags a failure with the pipeline stage (platform) it came from.
type StageError struct {
	Platform string
	Op       string
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("[%s:%s] %v", e.Platform, e.Op, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err for the given stage. An error that is already a
// StageError keeps its original tag.
func NewStageError(platform, op string, err error) error {
	if err == nil {
		return nil
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return err
	}
	return &StageError{Platform: platform, Op: op, Err: err}
}

// PlatformOf returns the stage tag of err, or "" when it carries none.
func PlatformOf(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Platform
	}
	return ""
}
