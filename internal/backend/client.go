// Package backend is a client for the DAO intelligence REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tabula-labs/tabula/internal/domain"
)

const maxBodyBytes = 4 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Body)
}

// Client talks to the backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New returns a client for baseURL. A nil httpClient gets a 30 second timeout.
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

type delegationsResponse struct {
	ActiveDelegations      []domain.Delegation `json:"active_delegations"`
	AvailableDelegations   []domain.Delegation `json:"available_delegations"`
	PotentialDaos          []domain.Delegation `json:"potential_daos"`
	RecommendedDelegations []domain.Delegation `json:"recommended_delegations"`
}

// Delegations fetches the delegation overview of address. Older backends
// name the available list potential_daos.
func (c *Client) Delegations(ctx context.Context, address string) (domain.DelegationsData, error) {
	var resp delegationsResponse
	if err := c.do(ctx, http.MethodGet, "/api/delegations/"+url.PathEscape(address), nil, &resp); err != nil {
		return domain.DelegationsData{}, fmt.Errorf("get delegations: %w", err)
	}
	return resp.normalize(), nil
}

// RefreshDelegations asks the backend to recompute the delegations of address.
func (c *Client) RefreshDelegations(ctx context.Context, address string, holdings []domain.TokenHolding) (domain.DelegationsData, error) {
	body := map[string]any{"token_holdings": domain.HoldingsByToken(holdings)}
	var resp delegationsResponse
	if err := c.do(ctx, http.MethodPost, "/api/delegations/"+url.PathEscape(address), body, &resp); err != nil {
		return domain.DelegationsData{}, fmt.Errorf("refresh delegations: %w", err)
	}
	return resp.normalize(), nil
}

func (r delegationsResponse) normalize() domain.DelegationsData {
	available := r.AvailableDelegations
	if len(available) == 0 {
		available = r.PotentialDaos
	}
	return domain.DelegationsData{
		ActiveDelegations:      nonNil(r.ActiveDelegations),
		AvailableDelegations:   nonNil(available),
		RecommendedDelegations: nonNil(r.RecommendedDelegations),
	}
}

type updatesRequest struct {
	DaoSlugs      []string          `json:"dao_slugs"`
	TokenHoldings map[string]string `json:"token_holdings"`
}

type updatesResponse struct {
	Updates []domain.DaoUpdate `json:"updates"`
}

// Updates fetches governance updates for slugs, most pressing first.
func (c *Client) Updates(ctx context.Context, slugs []string, holdings []domain.TokenHolding) ([]domain.DaoUpdate, error) {
	if slugs == nil {
		slugs = []string{}
	}
	req := updatesRequest{DaoSlugs: slugs, TokenHoldings: domain.HoldingsByToken(holdings)}
	var resp updatesResponse
	if err := c.do(ctx, http.MethodPost, "/api/updates", req, &resp); err != nil {
		return nil, fmt.Errorf("get updates: %w", err)
	}
	SortUpdates(resp.Updates)
	return nonNil(resp.Updates), nil
}

// SortUpdates orders updates urgent, important, fyi and newest first within a
// priority. RFC 3339 timestamps compare lexically.
func SortUpdates(updates []domain.DaoUpdate) {
	sort.SliceStable(updates, func(i, j int) bool {
		ri, rj := updates[i].Priority.Rank(), updates[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return updates[i].Timestamp > updates[j].Timestamp
	})
}

// Subscribe registers notification preferences for address.
func (c *Client) Subscribe(ctx context.Context, address string, prefs domain.NotificationPreferences) error {
	body := domain.NotificationSubscription{Address: address, Preferences: prefs}
	if err := c.do(ctx, http.MethodPost, "/api/notifications/subscribe", body, nil); err != nil {
		return fmt.Errorf("subscribe notifications: %w", err)
	}
	return nil
}

// Unsubscribe removes the notification subscription of address.
func (c *Client) Unsubscribe(ctx context.Context, address string) error {
	if err := c.do(ctx, http.MethodPost, "/api/notifications/unsubscribe/"+url.PathEscape(address), nil, nil); err != nil {
		return fmt.Errorf("unsubscribe notifications: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close backend response", "error", closeErr)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("Backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
