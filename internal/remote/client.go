// Package remote implements the authenticated HTTP boundary to the
// vita server. The sync coordinators consume the Client interface and
// never see transport details.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is the remote contract the sync coordinators depend on.
//
// Pull calls take a `from` day key bounding the window; the server
// returns everything from that day forward.
type Client interface {
	PushDiaryDay(ctx context.Context, day DiaryDay) error
	FetchDiaryDays(ctx context.Context, from string) ([]DiaryDay, error)

	PushSurvey(ctx context.Context, rec SurveyRecord) error
	FetchSurveys(ctx context.Context, from string) ([]SurveyRecord, error)

	PushMeasurement(ctx context.Context, rec MeasurementRecord) error
	FetchMeasurements(ctx context.Context, from string) ([]MeasurementRecord, error)
}

// TokenSource supplies the bearer credential attached to each request.
type TokenSource interface {
	// Token returns the raw credential, or an error when none is
	// available (logged out).
	Token(ctx context.Context) (string, error)
}

// HTTPClient talks to the vita server over HTTPS.
type HTTPClient struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
}

// NewHTTPClient creates a client for the server at baseURL.
// A nil httpClient falls back to a 30-second-timeout default.
func NewHTTPClient(baseURL string, tokens TokenSource, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{
		baseURL: baseURL,
		tokens:  tokens,
		http:    httpClient,
	}
}

// PushDiaryDay implements Client.
func (c *HTTPClient) PushDiaryDay(ctx context.Context, day DiaryDay) error {
	return c.post(ctx, "/diary/entries", day)
}

// FetchDiaryDays implements Client.
func (c *HTTPClient) FetchDiaryDays(ctx context.Context, from string) ([]DiaryDay, error) {
	var days []DiaryDay
	if err := c.get(ctx, "/diary/entries", from, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// PushSurvey implements Client.
func (c *HTTPClient) PushSurvey(ctx context.Context, rec SurveyRecord) error {
	return c.post(ctx, "/surveys/entries", rec)
}

// FetchSurveys implements Client.
func (c *HTTPClient) FetchSurveys(ctx context.Context, from string) ([]SurveyRecord, error) {
	var recs []SurveyRecord
	if err := c.get(ctx, "/surveys/entries", from, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// PushMeasurement implements Client.
func (c *HTTPClient) PushMeasurement(ctx context.Context, rec MeasurementRecord) error {
	return c.post(ctx, "/measurements/entries", rec)
}

// FetchMeasurements implements Client.
func (c *HTTPClient) FetchMeasurements(ctx context.Context, from string) ([]MeasurementRecord, error) {
	var recs []MeasurementRecord
	if err := c.get(ctx, "/measurements/entries", from, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp, path)
}

func (c *HTTPClient) get(ctx context.Context, path, from string, out interface{}) error {
	u := c.baseURL + path
	if from != "" {
		u += "?from=" + url.QueryEscape(from)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, path); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("no credential available: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	// Bounded read keeps diagnostics useful without trusting the server.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, bytes.TrimSpace(body))
}
