package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/stylematch/internal/domain/model"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// Client is a small JSON client for the matching HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client rooted at baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type addOnPayload struct {
	Name string  `json:"name"`
	Cost float64 `json:"cost"`
}

type stylistPayload struct {
	ID          string   `json:"id"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Specialties []string `json:"specialties,omitempty"`
}

type offeringPayload struct {
	ID             string         `json:"id,omitempty"`
	Stylist        stylistPayload `json:"stylist"`
	StyleName      string         `json:"styleName"`
	CostPerHour    float64        `json:"costPerHour"`
	EstimatedHours float64        `json:"estimatedHours"`
	AddOns         []addOnPayload `json:"addOns,omitempty"`
}

// Do sends a JSON request and decodes the response into out when out is not
// nil. It returns the status code; statuses outside want yield
// ErrUnexpectedStatus.
func (c *Client) Do(ctx context.Context, method, path string, in, out any, want ...int) (int, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if len(want) > 0 && !containsStatus(want, resp.StatusCode) {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus, method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return resp.StatusCode, nil
}

func containsStatus(want []int, got int) bool {
	for _, w := range want {
		if w == got {
			return true
		}
	}
	return false
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.Do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
	return err
}

// PublishOffering posts one offering to POST /offerings.
func (c *Client) PublishOffering(ctx context.Context, o model.ServiceOffering) error {
	p := offeringPayload{
		ID: o.ID,
		Stylist: stylistPayload{
			ID:          o.Stylist.ID,
			Latitude:    o.Stylist.Latitude,
			Longitude:   o.Stylist.Longitude,
			Specialties: o.Stylist.Specialties,
		},
		StyleName:      o.StyleName,
		CostPerHour:    o.CostPerHour,
		EstimatedHours: o.EstimatedHours,
	}
	for _, a := range o.AddOns {
		p.AddOns = append(p.AddOns, addOnPayload(a))
	}
	_, err := c.Do(ctx, http.MethodPost, "/offerings", p, nil, http.StatusCreated)
	return err
}

// SubmitOutcome posts one outcome and returns the response status.
func (c *Client) SubmitOutcome(ctx context.Context, o Outcome) (int, error) {
	return c.Do(ctx, http.MethodPost, "/outcomes", o, nil,
		http.StatusAccepted, http.StatusOK, http.StatusTooManyRequests, http.StatusServiceUnavailable)
}

// Top fetches GET /stylists/top?limit=n.
func (c *Client) Top(ctx context.Context, n int) ([]Entry, error) {
	var entries []Entry
	_, err := c.Do(ctx, http.MethodGet, "/stylists/top?limit="+strconv.Itoa(n), nil, &entries, http.StatusOK)
	return entries, err
}

// Rank fetches GET /stylists/{id}.
func (c *Client) Rank(ctx context.Context, id string) (Entry, error) {
	var e Entry
	_, err := c.Do(ctx, http.MethodGet, "/stylists/"+url.PathEscape(id), nil, &e, http.StatusOK)
	return e, err
}

// Stats fetches GET /stats.
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	var stats map[string]any
	_, err := c.Do(ctx, http.MethodGet, "/stats", nil, &stats, http.StatusOK)
	return stats, err
}

// Recommend fetches GET /recommend with the given query and returns the raw
// page document.
func (c *Client) Recommend(ctx context.Context, q url.Values) (json.RawMessage, error) {
	var page json.RawMessage
	_, err := c.Do(ctx, http.MethodGet, "/recommend?"+q.Encode(), nil, &page, http.StatusOK)
	return page, err
}

// Stable posts a stable matching request document and returns the raw pairs.
func (c *Client) Stable(ctx context.Context, request json.RawMessage) (json.RawMessage, error) {
	var pairs json.RawMessage
	_, err := c.Do(ctx, http.MethodPost, "/stable", request, &pairs, http.StatusOK)
	return pairs, err
}

// statInt64 reads a numeric /stats value decoded from JSON.
func statInt64(stats map[string]any, key string) int64 {
	switch v := stats[key].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}
