// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package core

import "fmt"

// TransportError reports a failed page request: the request never got a
// response, or the response status was not 2xx. It aborts the fetch.
type TransportError struct {
	URL        string
	StatusCode int    // zero when no response was received
	Body       string // leading bytes of the error response body
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("CORE API request to %s: %v", e.URL, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("CORE API returned HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("CORE API returned HTTP %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SchemaError reports an upstream payload that cannot be projected: a
// required field is missing or a field has the wrong shape.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: field %q: %s", e.Field, e.Reason)
}
