package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// NoProjectRoots indicates the resolver was given an empty root list
	NoProjectRoots ErrorCode = "NO_PROJECT_ROOTS"
	// PathOutsideRoots indicates the candidate is not under any project root
	PathOutsideRoots ErrorCode = "PATH_OUTSIDE_ROOTS"
	// RootNotFound indicates a project root does not exist or is not a directory
	RootNotFound ErrorCode = "ROOT_NOT_FOUND"
	// ScanFailed indicates the directory traversal failed
	ScanFailed ErrorCode = "SCAN_FAILED"
	// ScanLimitExceeded indicates a scan visited more files than allowed
	ScanLimitExceeded ErrorCode = "SCAN_LIMIT_EXCEEDED"
	// Timeout indicates a lookup ran past its deadline
	Timeout ErrorCode = "TIMEOUT"
	// Canceled indicates the caller abandoned the lookup
	Canceled ErrorCode = "CANCELED"
	// CacheUnavailable indicates the result cache could not be opened or queried
	CacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
	// InvalidFormat indicates an unsupported serialization format
	InvalidFormat ErrorCode = "INVALID_FORMAT"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests changing a configuration value
	EditConfig FixActionType = "edit-config"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type" yaml:"type"`
	Command     string        `json:"command,omitempty" yaml:"command,omitempty"`
	Key         string        `json:"key,omitempty" yaml:"key,omitempty"`
	Safe        bool          `json:"safe,omitempty" yaml:"safe,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
}

// SigError carries a stable code, a message and suggested fixes
type SigError struct {
	Code           ErrorCode   `json:"code" yaml:"code"`
	Message        string      `json:"message" yaml:"message"`
	Details        interface{} `json:"details,omitempty" yaml:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty" yaml:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a SigError with the default fixes for its code
func New(code ErrorCode, message string, cause error) *SigError {
	return &SigError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf is New with a formatted message and no cause
func Newf(code ErrorCode, format string, args ...interface{}) *SigError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *SigError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *SigError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *SigError) WithDetails(details interface{}) *SigError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first SigError in err's chain,
// or InternalError if there is none.
func CodeOf(err error) ErrorCode {
	var se *SigError
	if errors.As(err, &se) {
		return se.Code
	}
	return InternalError
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	var se *SigError
	for err != nil {
		if !errors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.cause
	}
	return false
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	NoProjectRoots: {
		{
			Type:        RunCommand,
			Command:     "sigother resolve --root <dir> <file>",
			Safe:        true,
			Description: "Pass at least one project root",
		},
	},
	PathOutsideRoots: {
		{
			Type:        RunCommand,
			Command:     "sigother resolve --root <project containing the file> <file>",
			Safe:        true,
			Description: "Search from a root that contains the file",
		},
	},
	ScanLimitExceeded: {
		{
			Type:        EditConfig,
			Key:         "scan.maxFiles",
			Description: "Raise the file ceiling or add scan.exclude patterns",
		},
	},
	Timeout: {
		{
			Type:        EditConfig,
			Key:         "scan.timeoutMs",
			Description: "Raise the per-lookup timeout",
		},
	},
	CacheUnavailable: {
		{
			Type:        RunCommand,
			Command:     "sigother cache clear",
			Safe:        true,
			Description: "Reset the result cache",
		},
		{
			Type:        RunCommand,
			Command:     "sigother resolve --no-cache <file>",
			Safe:        true,
			Description: "Resolve without the cache",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
