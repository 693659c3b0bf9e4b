package faster100x

import (
	"fmt"
)

// maxBodyInError limits how much of a response body is echoed by Error()
const maxBodyInError = 512

func truncate(body string) string {
	if len(body) <= maxBodyInError {
		return body
	}
	return body[:maxBodyInError] + "..."
}

// HTTPError is returned when the provider answers with a non-2xx status
// other than 429
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("holder data provider returned status %d: %s", e.StatusCode, truncate(e.Body))
}

// DeserializeError is returned when a 2xx response body cannot be decoded.
// Body holds the complete raw response for diagnosis.
type DeserializeError struct {
	Body string
	Err  error
}

func (e *DeserializeError) Error() string {
	return fmt.Sprintf("failed to decode holder data response: %v (body: %s)", e.Err, truncate(e.Body))
}

func (e *DeserializeError) Unwrap() error {
	return e.Err
}
