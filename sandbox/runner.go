package sandbox

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fluxbpm/script-registry/script"
)

var (
	// ErrUnsupportedLanguage is returned when the sandbox cannot execute the
	// requested language.
	ErrUnsupportedLanguage = errors.New("sandbox: unsupported language")

	// ErrInvalidData is returned when the input data is not valid JSON.
	ErrInvalidData = errors.New("sandbox: data is not valid JSON")

	// ErrExecutionFailed is returned when the sandbox fails to run the code,
	// whether the code itself errored or the sandbox was unreachable.
	ErrExecutionFailed = errors.New("sandbox: execution failed")
)

// RunRequest carries one preview execution: the code, its language and the
// JSON payload exposed to the script as input variables.
type RunRequest struct {
	Language script.Language `json:"language"`
	Code     string          `json:"code"`
	Data     json.RawMessage `json:"data"`
}

// Runner executes script code in an isolated environment and returns the
// script's output object. Execution always happens in an external service,
// never in this process.
type Runner interface {
	Run(ctx context.Context, req RunRequest) (json.RawMessage, error)
}
