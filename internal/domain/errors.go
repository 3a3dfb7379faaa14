package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrAuth     = errors.New("auth error")
	ErrFetch    = errors.New("fetch error")
	ErrParse    = errors.New("parse error")
	ErrScrape   = errors.New("scrape error")
	ErrAnalysis = errors.New("analysis error")
	ErrConfig   = errors.New("config error")
)

// StageError ties a failure to its kind and the operation that produced it.
type StageError struct {
	Kind error
	Op   string
	Err  error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap exposes both the kind and the cause.
func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newStageError(kind error, op string, err error) error {
	return &StageError{Kind: kind, Op: op, Err: err}
}

// AuthError marks a credential issuance failure.
func AuthError(op string, err error) error { return newStageError(ErrAuth, op, err) }

// FetchError marks a failed or malformed listing/thread request.
func FetchError(op string, err error) error { return newStageError(ErrFetch, op, err) }

// ParseError marks a response missing required fields or shape.
func ParseError(op string, err error) error { return newStageError(ErrParse, op, err) }

// ScrapeError marks a browser navigation, wait or render failure.
func ScrapeError(op string, err error) error { return newStageError(ErrScrape, op, err) }

// AnalysisError marks a failed model call.
func AnalysisError(op string, err error) error { return newStageError(ErrAnalysis, op, err) }

// ConfigError marks a required setting that is absent.
func ConfigError(op string, err error) error { return newStageError(ErrConfig, op, err) }

// Fatal reports whether err must stop a whole run.
func Fatal(err error) bool {
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrConfig)
}
