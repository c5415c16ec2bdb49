package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/davelindo/galleryofbabel/internal/errs"
)

// TopEntry is one row of the remote leaderboard's top list.
type TopEntry struct {
	Seed         uint64  `json:"seed"`
	Score        float64 `json:"score"`
	Rank         *int    `json:"rank,omitempty"`
	DiscovererID *string `json:"discoverer_id,omitempty"`
}

type topResponse struct {
	Images []TopEntry `json:"images"`
}

// SubmitRequest is the body of POST /submit.
type SubmitRequest struct {
	Seed          uint64  `json:"seed"`
	Score         float64 `json:"score"`
	ClientVersion string  `json:"client_version"`
	Profile       string  `json:"profile,omitempty"`
}

// SubmitResponse is the decoded body of a successful POST /submit.
type SubmitResponse struct {
	Accepted bool    `json:"accepted"`
	Rank     *int    `json:"rank,omitempty"`
	Message  *string `json:"message,omitempty"`
}

// Outcome classifies the result of a submit attempt for the dispatch
// loop's retry policy.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeRejectedTerminal
	OutcomeRateLimited
	OutcomeRetryableServerError
	OutcomeTransportFailure
)

// SubmitResult bundles the classified outcome with the decoded
// response (when there was one) and the raw error (for logging).
type SubmitResult struct {
	Outcome  Outcome
	Response SubmitResponse
	Err      error
}

// LeaderboardClient is the remote API surface the manager depends on;
// Client below implements it over HTTPS, tests inject fakes.
type LeaderboardClient interface {
	FetchTop(ctx context.Context, limit int) ([]TopEntry, error)
	Submit(ctx context.Context, req SubmitRequest) SubmitResult
}

// Client is the HTTPS leaderboard client.
type Client struct {
	BaseURL       string
	HTTPClient    *http.Client
	ClientVersion string
	BuildHash     string
}

// NewClient builds a Client with a 30s request timeout, mirroring the
// teacher's APIClient default.
func NewClient(baseURL, clientVersion, buildHash string) *Client {
	return &Client{
		BaseURL:       baseURL,
		HTTPClient:    &http.Client{Timeout: 30 * time.Second},
		ClientVersion: clientVersion,
		BuildHash:     buildHash,
	}
}

func (c *Client) userAgent() string {
	hash := c.BuildHash
	if hash == "" {
		hash = "unknown"
	}
	if len(hash) > 12 {
		hash = hash[:12]
	}
	return fmt.Sprintf("galleryofbabel/%s (%s)", c.ClientVersion, hash)
}

// FetchTop fetches up to limit entries from GET /top.
func (c *Client) FetchTop(ctx context.Context, limit int) ([]TopEntry, error) {
	url := fmt.Sprintf("%s/top?limit=%d&unique=true", c.BaseURL, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New("submission-client", errs.SubmissionTransient, err)
	}
	req.Header.Set("User-Agent", c.userAgent())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errs.New("submission-client", errs.SubmissionTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New("submission-client", errs.SubmissionTransient, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.New("submission-client", errs.SubmissionTransient,
			fmt.Errorf("top list returned status %d", resp.StatusCode))
	}

	var parsed topResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errs.New("submission-client", errs.DataCorruption, err)
	}
	return parsed.Images, nil
}

// Submit posts a score and classifies the result.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) SubmitResult {
	req.ClientVersion = c.ClientVersion
	body, err := json.Marshal(req)
	if err != nil {
		return SubmitResult{Outcome: OutcomeRejectedTerminal, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/submit", bytes.NewReader(body))
	if err != nil {
		return SubmitResult{Outcome: OutcomeTransportFailure, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent())

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return SubmitResult{Outcome: OutcomeTransportFailure, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return SubmitResult{Outcome: OutcomeTransportFailure, Err: err}
	}

	return classifyStatus(resp.StatusCode, respBody)
}

func classifyStatus(status int, body []byte) SubmitResult {
	switch {
	case status == http.StatusTooManyRequests:
		return SubmitResult{Outcome: OutcomeRateLimited, Err: fmt.Errorf("rate limited (429)")}
	case status >= 500:
		return SubmitResult{Outcome: OutcomeRetryableServerError, Err: fmt.Errorf("server error (%d)", status)}
	case status >= 400:
		return SubmitResult{Outcome: OutcomeRejectedTerminal, Err: fmt.Errorf("rejected (%d)", status)}
	case status >= 200 && status < 300:
		var parsed SubmitResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return SubmitResult{Outcome: OutcomeTransportFailure, Err: err}
		}
		if !parsed.Accepted {
			return SubmitResult{Outcome: OutcomeRejectedTerminal, Response: parsed}
		}
		return SubmitResult{Outcome: OutcomeAccepted, Response: parsed}
	default:
		return SubmitResult{Outcome: OutcomeTransportFailure, Err: fmt.Errorf("unexpected status %d", status)}
	}
}
