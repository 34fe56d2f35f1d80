package sniperz

import (
	"context"
	"errors"
	"fmt"
)

// FetchErrorKind classifies MediaFetcher failures so the retry policy can
// decide between retrying, giving up on the item, and aborting the run.
type FetchErrorKind string

const (
	FetchTimeout      FetchErrorKind = "timeout"
	FetchNotFound     FetchErrorKind = "not_found"
	FetchNetworkError FetchErrorKind = "network"
	FetchDiskWrite    FetchErrorKind = "disk_write"
)

// FetchError is a classified failure from a thumbnail or media fetch.
type FetchError struct {
	Kind FetchErrorKind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch failed (%s) for %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("fetch failed (%s) for %s", e.Kind, e.URL)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func NewFetchError(kind FetchErrorKind, url string, err error) *FetchError {
	return &FetchError{Kind: kind, URL: url, Err: err}
}

// IsTransientFetch reports whether err is worth retrying: timeouts and network
// interruptions are, missing videos and local disk failures are not.
func IsTransientFetch(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind == FetchTimeout || fe.Kind == FetchNetworkError
	}
	return false
}

// IsLocalResourceFailure reports whether err indicates the destination itself
// is unusable (disk full, permission denied). These abort the whole run since
// every further attempt would hit the same failure.
func IsLocalResourceFailure(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind == FetchDiskWrite
	}
	return false
}
