package errors

import (
	stderrors "errors"
	"fmt"

	"umlreg/internal/diag"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ResourceUnreadable indicates the model resource could not be opened or read
	ResourceUnreadable ErrorCode = "RESOURCE_UNREADABLE"
	// TransformFailed indicates a line transformer rejected the input
	TransformFailed ErrorCode = "TRANSFORM_FAILED"
	// ProjectionFailed indicates the projection engine could not execute the query
	ProjectionFailed ErrorCode = "PROJECTION_FAILED"
	// NoResult indicates the projection produced no result document
	NoResult ErrorCode = "NO_RESULT"
	// UnsupportedVersion indicates an unknown parser version tag
	UnsupportedVersion ErrorCode = "UNSUPPORTED_VERSION"

	// UnknownElementType indicates a source node carries an unrecognized type discriminator
	UnknownElementType ErrorCode = "UNKNOWN_ELEMENT_TYPE"
	// MalformedNode indicates a source node lacks a required attribute
	MalformedNode ErrorCode = "MALFORMED_NODE"
	// DuplicateID indicates two source nodes share an XMI ID
	DuplicateID ErrorCode = "DUPLICATE_ID"
	// AmbiguousName indicates a by-name reference matched more than one class
	AmbiguousName ErrorCode = "AMBIGUOUS_NAME"
	// ClassNotFound indicates a by-name reference matched no class
	ClassNotFound ErrorCode = "CLASS_NOT_FOUND"
	// IgnoredReference indicates a reference to the sentinel type that is skipped on purpose
	IgnoredReference ErrorCode = "IGNORED_REFERENCE"
	// SelfRelationship indicates a relationship whose source and target are the same element
	SelfRelationship ErrorCode = "SELF_RELATIONSHIP"
	// EndpointNotFound indicates a relationship endpoint XMI ID is not in the model
	EndpointNotFound ErrorCode = "ENDPOINT_NOT_FOUND"
	// EndpointNotClass indicates a relationship endpoint is not a class
	EndpointNotClass ErrorCode = "ENDPOINT_NOT_CLASS"
	// UnknownRelationshipType indicates a relationship type with no resolver
	UnknownRelationshipType ErrorCode = "UNKNOWN_RELATIONSHIP_TYPE"
	// ConceptNotFound indicates the terminology service has no matching concept
	ConceptNotFound ErrorCode = "CONCEPT_NOT_FOUND"
	// EmptyValueSet indicates a concept resolved with no child concepts
	EmptyValueSet ErrorCode = "EMPTY_VALUE_SET"
	// TerminologyUnavailable indicates the terminology service could not be reached
	TerminologyUnavailable ErrorCode = "TERMINOLOGY_UNAVAILABLE"
	// NamingConvention indicates a name that does not follow the naming rules
	NamingConvention ErrorCode = "NAMING_CONVENTION"

	// ModelNotFound indicates the registry has no model with the given name
	ModelNotFound ErrorCode = "MODEL_NOT_FOUND"
	// ElementNotFound indicates no loaded model has an element with the given XMI ID
	ElementNotFound ErrorCode = "ELEMENT_NOT_FOUND"
	// InvalidMetaData indicates a model declaration is incomplete or inconsistent
	InvalidMetaData ErrorCode = "INVALID_METADATA"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Category groups error codes by how the loader reacts to them.
type Category string

const (
	// Fatal errors abort the load before a model exists.
	Fatal Category = "fatal"
	// Business errors are expected validation failures, recovered locally.
	Business Category = "business"
	// Naming errors are convention notes that never block resolution.
	Naming Category = "naming"
	// Unexpected errors are anything else, caught at the node boundary.
	Unexpected Category = "unexpected"
)

var codeCategory = map[ErrorCode]Category{
	ResourceUnreadable:      Fatal,
	TransformFailed:         Fatal,
	ProjectionFailed:        Fatal,
	NoResult:                Fatal,
	UnsupportedVersion:      Fatal,
	UnknownElementType:      Business,
	MalformedNode:           Business,
	DuplicateID:             Business,
	AmbiguousName:           Business,
	ClassNotFound:           Business,
	IgnoredReference:        Business,
	SelfRelationship:        Business,
	EndpointNotFound:        Business,
	EndpointNotClass:        Business,
	UnknownRelationshipType: Business,
	ConceptNotFound:         Business,
	EmptyValueSet:           Business,
	TerminologyUnavailable:  Business,
	NamingConvention:        Naming,
	ModelNotFound:           Business,
	ElementNotFound:         Business,
	InvalidMetaData:         Business,
	InternalError:           Unexpected,
}

// Category returns the category of the code. Unknown codes are Unexpected.
func (c ErrorCode) Category() Category {
	if cat, ok := codeCategory[c]; ok {
		return cat
	}
	return Unexpected
}

// DefaultSeverity returns the diagnostic severity a code carries unless overridden.
func (c ErrorCode) DefaultSeverity() diag.Severity {
	switch c {
	case NamingConvention:
		return diag.Info
	case IgnoredReference, EmptyValueSet, DuplicateID:
		return diag.Warning
	default:
		return diag.Error
	}
}

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// Error is a classified loader error with code, severity, message and optional cause
type Error struct {
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	Severity  diag.Severity `json:"severity"`
	ElementID string        `json:"elementId,omitempty"`
	Details   interface{}   `json:"details,omitempty"`
	cause     error         // Underlying error (not exported to JSON)
}

// New creates an Error with the code's default severity
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Severity: code.DefaultSeverity(),
		cause:    cause,
	}
}

// Newf creates an Error with a formatted message and no cause
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// MessageSeverity implements diag.Classified
func (e *Error) MessageSeverity() diag.Severity {
	if e.Severity == "" {
		return e.Code.DefaultSeverity()
	}
	return e.Severity
}

// MessageCode implements diag.Classified
func (e *Error) MessageCode() string {
	return string(e.Code)
}

// MessageText implements diag.Classified
func (e *Error) MessageText() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// WithSeverity overrides the severity of the error
func (e *Error) WithSeverity(sev diag.Severity) *Error {
	e.Severity = sev
	return e
}

// WithElement records the XMI ID of the element the error is about
func (e *Error) WithElement(xmiID string) *Error {
	e.ElementID = xmiID
	return e
}

// SuggestedFixes returns the fix actions for the error's code
func (e *Error) SuggestedFixes() []FixAction {
	return GetSuggestedFixes(e.Code)
}

// As finds the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in err's chain, or InternalError.
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.Code
	}
	return InternalError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// IsFatal reports whether err aborts a load (no model can be produced).
func IsFatal(err error) bool {
	e, ok := As(err)
	return ok && e.Code.Category() == Fatal
}

// IsBusiness reports whether err is an expected domain-validation failure.
func IsBusiness(err error) bool {
	e, ok := As(err)
	if !ok {
		return false
	}
	cat := e.Code.Category()
	return cat == Business || cat == Naming
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ResourceUnreadable: {
		{
			Type:        RunCommand,
			Command:     "umlreg models --check",
			Safe:        true,
			Description: "Check that every declared model resource exists and is readable",
		},
	},
	UnsupportedVersion: {
		{
			Type:        RunCommand,
			Command:     "umlreg load ${resource} --parser-version v1",
			Safe:        true,
			Description: "Select a supported parser version (v1 or v2)",
		},
	},
	ProjectionFailed: {
		{
			Type:        RunCommand,
			Command:     "umlreg load ${resource} --parser-version ${other_version}",
			Safe:        true,
			Description: "The document may use the other XMI dialect",
		},
	},
	ModelNotFound: {
		{
			Type:        RunCommand,
			Command:     "umlreg models",
			Safe:        true,
			Description: "List declared models",
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
