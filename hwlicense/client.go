package hwlicense

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 1 << 20 // 1 MB
)

// OnlineClient communicates with the license server HTTP API.
type OnlineClient struct {
	serverURL   string
	httpClient  *http.Client
	timeout     time.Duration // applied after all options
	userAgent   string
	fingerprint string
}

// NewOnlineClient creates a new client for the license server.
// serverURL is the base URL (e.g. "https://license.example.com").
func NewOnlineClient(serverURL string, opts ...ClientOption) *OnlineClient {
	c := &OnlineClient{
		serverURL: strings.TrimRight(serverURL, "/"),
		timeout:   defaultTimeout,
		userAgent: "hwlicense-go/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	// If no custom HTTP client was provided, create one.
	// Apply timeout after all options so ordering doesn't matter.
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	c.httpClient.Timeout = c.timeout
	return c
}

// Fingerprint returns the fingerprint configured via WithFingerprint.
// Returns an empty string if no fingerprint was set.
func (c *OnlineClient) Fingerprint() string {
	return c.fingerprint
}

// Validate checks whether a license key may be used on the machine named by
// req.HWID. If req.HWID is empty the client-level fingerprint is used, and
// failing that one is generated for this machine.
//
// Rejections come back as errors matching ErrLicenseNotFound,
// ErrHardwareMismatch or ErrLicenseExpired; use errors.As with
// *ExpiredError for the expiration date.
func (c *OnlineClient) Validate(ctx context.Context, req ValidateRequest) (*ValidateResponse, error) {
	if req.HWID == "" {
		req.HWID = c.fingerprint
	}
	if req.HWID == "" {
		fp, err := GenerateFingerprint()
		if err != nil {
			return nil, fmt.Errorf("generate fingerprint: %w", err)
		}
		req.HWID = fp
	}
	var resp ValidateResponse
	if err := c.post(ctx, "/validate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// post sends body as JSON to path and decodes a 2xx answer into dest.
// Error answers come back as ServerError, mapped onto the sentinels where
// the code is known.
func (c *OnlineClient) post(ctx context.Context, path string, body, dest any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()
	limited := io.LimitReader(resp.Body, maxResponseBytes)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, err := io.ReadAll(limited)
		if err != nil {
			return fmt.Errorf("%s: read error body: %w", path, err)
		}
		return decodeServerError(resp.StatusCode, raw)
	}

	if err := json.NewDecoder(limited).Decode(dest); err != nil {
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	return nil
}

// ErrorBody is the error envelope written by the license server.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	ExpirationDate string `json:"expiration_date,omitempty"`
}

// decodeServerError turns an error answer into an error value. Bodies that
// are not an ErrorBody (a proxy page, say) keep their text under code UNKNOWN.
func decodeServerError(status int, raw []byte) error {
	var body ErrorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Error.Code == "" {
		return &ServerError{StatusCode: status, Code: "UNKNOWN", Message: string(raw)}
	}
	return mapServerError(&ServerError{
		StatusCode:     status,
		Code:           body.Error.Code,
		Message:        body.Error.Message,
		ExpirationDate: body.Error.ExpirationDate,
	})
}
