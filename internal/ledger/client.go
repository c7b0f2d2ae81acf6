package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client talks to a remote inventory service exposing the /fill endpoints.
// It satisfies the same deduction contract as the in-memory Ledger: a
// failed deduction leaves the remote counters untouched and surfaces as an
// InsufficientStockError.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the inventory service at baseURL.
// Requests carry trace context via the otelhttp transport.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Read fetches the current stock via GET /fill.
func (c *Client) Read(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/fill", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inventory read: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inventory read: unexpected status %d", resp.StatusCode)
	}
	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("inventory read: %w", err)
	}
	return snap, nil
}

type deductError struct {
	Error      string `json:"error"`
	Ingredient string `json:"ingredient"`
	Required   int    `json:"required"`
	Available  int    `json:"available"`
}

// TryDeduct atomically deducts the amounts via DELETE /fill. A 400 with an
// underflow body is mapped back to an InsufficientStockError so callers
// cannot tell a remote ledger from a local one.
func (c *Client) TryDeduct(ctx context.Context, amounts []Amount) (Snapshot, error) {
	body := make(map[string]int, len(amounts))
	for _, a := range amounts {
		body[a.Ingredient] = a.Quantity
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/fill", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inventory deduct: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// The update response mixes a "message" field with the counters;
		// keep the numeric fields only.
		raw := map[string]json.RawMessage{}
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return nil, fmt.Errorf("inventory deduct: %w", err)
		}
		snap := make(Snapshot, len(raw))
		for k, v := range raw {
			var n int
			if err := json.Unmarshal(v, &n); err == nil {
				snap[k] = n
			}
		}
		return snap, nil
	case http.StatusBadRequest:
		var de deductError
		if err := json.NewDecoder(resp.Body).Decode(&de); err != nil {
			return nil, fmt.Errorf("inventory deduct: %w", err)
		}
		if de.Ingredient != "" {
			return nil, &InsufficientStockError{
				Ingredient: de.Ingredient,
				Required:   de.Required,
				Available:  de.Available,
			}
		}
		return nil, &ValidationError{Msg: de.Error}
	default:
		return nil, fmt.Errorf("inventory deduct: unexpected status %d", resp.StatusCode)
	}
}
