package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pushchain/ecu-vault/firmware"
	"github.com/pushchain/ecu-vault/gateway/api"
)

const clientTimeout = 15 * time.Second

// apiClient talks to a running node over its HTTP API.
type apiClient struct {
	base string
	http *http.Client
}

var _ firmware.KVStore = (*apiClient)(nil)

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: clientTimeout},
	}
}

// do sends body as JSON and decodes a JSON response into out when out is non-nil.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		bz, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(bz)
	}

	resp, err := c.send(ctx, method, path, "application/json", reader)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *apiClient) send(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", c.base, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		var errResp api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == "" {
			return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Error)
	}
	return resp, nil
}

// GetData reads a raw value from the ledger's key-value store.
func (c *apiClient) GetData(ctx context.Context, key string) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/v1/kv/"+url.PathEscape(key), "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// SetData writes a raw value to the ledger's key-value store.
func (c *apiClient) SetData(ctx context.Context, key string, value []byte) error {
	resp, err := c.send(ctx, http.MethodPut, "/api/v1/kv/"+url.PathEscape(key), "application/octet-stream", bytes.NewReader(value))
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// IsAvailable reports whether the node answers and accepts key-value traffic.
func (c *apiClient) IsAvailable(ctx context.Context) bool {
	var out api.AvailabilityResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/kv-available", nil, &out); err != nil {
		return false
	}
	return out.Available
}
