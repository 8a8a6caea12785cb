package ecrseed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// httpClient wraps http.Client with the service base URL.
type httpClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{client: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

// get performs a GET request and decodes a JSON body into out when non-nil.
func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// postCSV submits one export to POST /ecr.
func (c *httpClient) postCSV(ctx context.Context, up Upload) (AckResponse, error) {
	q := url.Values{}
	q.Set("week", strconv.Itoa(up.Week))
	q.Set("upload_id", up.ID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ecr?"+q.Encode(), bytes.NewReader(up.Body))
	if err != nil {
		return AckResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/csv")

	resp, err := c.client.Do(req)
	if err != nil {
		return AckResponse{}, err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return AckResponse{}, err
	}
	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err != nil {
			return AckResponse{}, fmt.Errorf("decode ack: %w", err)
		}
		return ack, nil
	default:
		return AckResponse{}, fmt.Errorf("POST /ecr %s: status %d: %s", up.File, resp.StatusCode, bytes.TrimSpace(body))
	}
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}
