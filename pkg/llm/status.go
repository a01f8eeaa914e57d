package llm

import (
	"fmt"
	"net/http"

	"github.com/jllopis/converge/pkg/errors"
)

// StatusError classifies a non-success HTTP status returned by a model
// backend. 429 maps to CodeRateLimit. Rate limits, timeouts and 5xx are
// recoverable; every other status is final.
func StatusError(backend string, status int, cause error) *errors.ConvergeError {
	code := errors.CodeLLMError
	recoverable := status >= 500 || status == http.StatusRequestTimeout
	if status == http.StatusTooManyRequests {
		code = errors.CodeRateLimit
		recoverable = true
	}
	return errors.New(code, fmt.Sprintf("%s api returned status %d", backend, status), cause).
		WithContext("backend", backend).
		WithContext("status", status).
		WithRecoverable(recoverable)
}
