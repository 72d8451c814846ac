package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// HTTPRunner implements Runner against the sandbox service's REST API.
type HTTPRunner struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPRunner creates a runner for the sandbox service at baseURL. A
// non-positive timeout falls back to the default.
func NewHTTPRunner(baseURL string, timeout time.Duration) *HTTPRunner {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &HTTPRunner{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type runResponse struct {
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

// Run submits the code to the sandbox and returns its output object. The
// language and data are checked before anything leaves the process so a
// malformed preview never reaches the sandbox.
func (r *HTTPRunner) Run(ctx context.Context, req RunRequest) (json.RawMessage, error) {
	if !req.Language.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, req.Language)
	}

	if len(req.Data) == 0 {
		req.Data = json.RawMessage("{}")
	}
	if !json.Valid(req.Data) {
		return nil, ErrInvalidData
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("sandbox: failed to marshal run request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/run", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("sandbox: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure runResponse
		if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil && failure.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrExecutionFailed, failure.Error)
		}
		return nil, fmt.Errorf("%w: sandbox returned status %d", ErrExecutionFailed, resp.StatusCode)
	}

	var result runResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("sandbox: failed to decode response: %w", err)
	}

	if result.Output == nil {
		result.Output = json.RawMessage("null")
	}

	return result.Output, nil
}
