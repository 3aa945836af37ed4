// Package client is a small API client for a beanvault server, used by
// companion tooling. Container listings are cached in-process since they
// change rarely.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/beanvault/beanvault"
	"github.com/beanvault/beanvault/internal/domain"
)

const (
	defaultTimeout = 3 * time.Second
)

type Client struct {
	client    *http.Client
	cache     *cache.Cache
	baseURL   string
	userAgent string
	token     string
}

func New(baseURL string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:    &httpClient,
		cache:     cache.New(10*time.Minute, 15*time.Minute),
		baseURL:   baseURL,
		userAgent: "beanvault-client",
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return http.DefaultTransport.RoundTrip(req)
}

// Login authenticates against the local credentials provider and keeps the
// issued token for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp beanvault.LoginResponse
	err := c.post(ctx, "/api/v1/auth/login", beanvault.LoginRequest{
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

func (c *Client) GetCoffees(ctx context.Context) ([]domain.Coffee, error) {
	var coffees []domain.Coffee
	err := c.get(ctx, "/api/v1/coffees", &coffees)
	return coffees, err
}

func (c *Client) GetContainers(ctx context.Context) ([]domain.Container, error) {
	if cached, ok := c.cache.Get("containers"); ok {
		return cached.([]domain.Container), nil
	}

	var containers []domain.Container
	err := c.get(ctx, "/api/v1/containers", &containers)
	if err != nil {
		return nil, err
	}

	c.cache.Set("containers", containers, cache.DefaultExpiration)
	return containers, nil
}

// RequestAssignment submits an assignment. A conflict comes back as a
// confirmation_required result; pass its token to ResolveAssignment.
func (c *Client) RequestAssignment(ctx context.Context, req beanvault.AssignmentRequest) (beanvault.AssignmentResult, error) {
	var result beanvault.AssignmentResult
	err := c.post(ctx, "/api/v1/assignments", req, &result)
	return result, err
}

// ResolveAssignment delivers the confirm/cancel decision for a pending
// conflict and returns the final outcome.
func (c *Client) ResolveAssignment(ctx context.Context, token string, confirmed bool) (beanvault.AssignmentResult, error) {
	var result beanvault.AssignmentResult
	err := c.post(ctx, "/api/v1/assignments/decision", beanvault.AssignmentDecision{
		Token:     token,
		Confirmed: confirmed,
	}, &result)
	return result, err
}

func (c *Client) RemoveAssignment(ctx context.Context, itemID, containerID, itemName string) (beanvault.AssignmentResult, error) {
	query := url.Values{}
	query.Set("itemID", itemID)
	query.Set("containerID", containerID)
	query.Set("itemName", itemName)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/api/v1/assignments?"+query.Encode(), nil)
	if err != nil {
		return beanvault.AssignmentResult{}, err
	}

	var result beanvault.AssignmentResult
	err = c.do(req, &result)
	return result, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	// 409 carries a decodable body for both confirmation tickets and
	// stale conflicts.
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("request failed: %s: %s", resp.Status, string(payload))
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(payload, out)
}
