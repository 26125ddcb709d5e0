package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// apiClient talks to the BankLedger HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(opts *options) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(opts.baseURL, "/"),
		http:    &http.Client{Timeout: opts.timeout},
	}
}

// apiError is a non-2xx answer. Status is kept so callers can tell a
// failed check from a failed request.
type apiError struct {
	Status int
	Code   string
	Body   string
}

func (e *apiError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("request failed (status %d): %s", e.Status, e.Code)
	}
	return fmt.Sprintf("request failed (status %d): %s", e.Status, e.Body)
}

// do sends body as JSON when non-nil and decodes the response into out.
// On a non-2xx status out is still filled when the body decodes.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var decodeErr error
	if out != nil {
		decodeErr = json.Unmarshal(data, out)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &e)
		return &apiError{Status: resp.StatusCode, Code: e.Error, Body: strings.TrimSpace(string(data))}
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to parse response: %w", decodeErr)
	}
	return nil
}
