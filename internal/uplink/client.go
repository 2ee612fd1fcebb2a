package uplink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/consent"
	"github.com/danielpatrickdp/state-fusion/go-pipeline/internal/fuse"
)

// #region wire-types

// UploadPath is the fixed collector endpoint path.
const UploadPath = "/v1/snapshots"

// SDKVersion is reported in headers and body metadata.
const SDKVersion = "0.4.0"

// Metadata describes the uploading device and grant.
type Metadata struct {
	SDKVersion      string                  `json:"sdk_version"`
	Platform        string                  `json:"platform"`
	CapabilityLevel consent.CapabilityLevel `json:"capability_level"`
	OrgID           string                  `json:"org_id,omitempty"`
}

// UploadRequest is the signed POST body.
type UploadRequest struct {
	UserID    string            `json:"user_id"`
	Metadata  Metadata          `json:"metadata"`
	Snapshots []fuse.FusedState `json:"snapshots"`
}

// UploadResponse is the collector's success envelope.
type UploadResponse struct {
	Status     string `json:"status"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

type errorResponse struct {
	Status     string `json:"status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"` // seconds
}

// #endregion wire-types

// #region errors

// RejectedError is a structurally or cryptographically invalid request:
// bad signature (401), invalid tenant (403), or schema validation (400).
// Not retryable with the same content; the batch is requeued unchanged
// because it may become valid after reauthorization.
type RejectedError struct {
	HTTPStatus int
	Code       string
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("upload rejected (%d %s): %s", e.HTTPStatus, e.Code, e.Message)
}

// RateLimitedError is a 429 carrying the backend's retry-after hint.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// #endregion errors

// #region client

// Client ships signed snapshot batches to the remote collector.
type Client struct {
	baseURL  string
	http     *http.Client
	signer   *Signer
	userID   string
	platform string
	orgID    string
	now      func() time.Time
}

// NewClient creates a collector client. now may be nil (time.Now).
func NewClient(baseURL string, signer *Signer, userID, platform, orgID string, now func() time.Time) *Client {
	if now == nil {
		now = time.Now
	}
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 30 * time.Second},
		signer:   signer,
		userID:   userID,
		platform: platform,
		orgID:    orgID,
		now:      now,
	}
}

// #endregion client

// #region upload

// Upload POSTs one signed batch. Each call is one attempt with fresh
// nonce and timestamp; callers re-invoke it to retry. Returns nil on 200,
// *RejectedError on 401/403/400, *RateLimitedError on 429, and a plain
// transport/backend error otherwise (retryable).
func (c *Client) Upload(ctx context.Context, snapshots []fuse.FusedState, level consent.CapabilityLevel) (*UploadResponse, error) {
	body, err := json.Marshal(UploadRequest{
		UserID: c.userID,
		Metadata: Metadata{
			SDKVersion:      SDKVersion,
			Platform:        c.platform,
			CapabilityLevel: level,
			OrgID:           c.orgID,
		},
		Snapshots: snapshots,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+UploadPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-SDK-Version", SDKVersion)
	for k, v := range c.signer.Headers(http.MethodPost, UploadPath, body, c.now()) {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post snapshots: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var out UploadResponse
		if err := json.Unmarshal(respBody, &out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &out, nil

	case http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest:
		var e errorResponse
		_ = json.Unmarshal(respBody, &e)
		return nil, &RejectedError{HTTPStatus: resp.StatusCode, Code: e.Code, Message: e.Message}

	case http.StatusTooManyRequests:
		var e errorResponse
		_ = json.Unmarshal(respBody, &e)
		retryAfter := time.Duration(e.RetryAfter) * time.Second
		if retryAfter == 0 {
			retryAfter = time.Second
		}
		return nil, &RateLimitedError{RetryAfter: retryAfter}

	default:
		return nil, fmt.Errorf("backend returned %d", resp.StatusCode)
	}
}

// #endregion upload
