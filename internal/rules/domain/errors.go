package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidResponse indicates the transport produced something that is
	// not a usable HTTP response.
	ErrInvalidResponse = errors.New("invalid response from rules feed")

	// ErrInvalidRulesData indicates a 200 body that could not be decoded as
	// text.
	ErrInvalidRulesData = errors.New("rules feed returned undecodable data")

	// ErrMissingCachedRules indicates a 304 arrived but no raw-rules cache
	// exists locally. The server believes the client is current, so only a
	// forced full fetch can recover.
	ErrMissingCachedRules = errors.New("not-modified response but no cached rules present")
)

// UnexpectedStatusError reports an HTTP status outside {200, 304}.
type UnexpectedStatusError struct {
	Code int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected rules feed status: %d", e.Code)
}

// StorageError reports that the cache's backing storage could not be created
// or accessed. It is fatal to a refresh and never retried internally.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("rules cache storage: %v", e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// CompileError reports that the rule compiler rejected its input.
type CompileError struct {
	Err error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile rules: %v", e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
