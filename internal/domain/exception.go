package domain

import "time"

// ErrorKind tags the family of an error response
type ErrorKind string

const (
	KindNotFound   ErrorKind = "not_found"
	KindBadRequest ErrorKind = "bad_request"
	KindValidation ErrorKind = "validation"
	KindInternal   ErrorKind = "internal"
)

// FieldError describes one rejected request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ExceptionDetails is the body of every error response. Fields is only set
// for validation failures.
type ExceptionDetails struct {
	Kind             ErrorKind    `json:"kind"`
	Title            string       `json:"title"`
	Status           int          `json:"status"`
	Details          string       `json:"details"`
	DeveloperMessage string       `json:"developerMessage"`
	Timestamp        time.Time    `json:"timestamp"`
	Fields           []FieldError `json:"fields,omitempty"`
}
