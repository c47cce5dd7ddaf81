package recordkeepsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal Recordkeep HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// Record represents the API record model.
// ID is the store identity; RecordID is the record's own id as submitted.
type Record struct {
	ID         uint64            `json:"id"`
	RecordID   uint64            `json:"record_id"`
	Name       string            `json:"name"`
	Contact    string            `json:"contact"`
	Roles      []string          `json:"roles"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// NewRecord is the payload for CreateRecord.
type NewRecord struct {
	RecordID   uint64            `json:"record_id,omitempty"`
	Name       string            `json:"name"`
	Contact    string            `json:"contact,omitempty"`
	Roles      []string          `json:"roles,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Status is a work status in its flat wire form.
type Status struct {
	State    string `json:"state"`
	Progress uint   `json:"progress,omitempty"`
	Code     int32  `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Classification is the server's verdict on a Status.
type Classification struct {
	State    string `json:"state"`
	Category string `json:"category"`
	Display  string `json:"display"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateRecord saves a record; the server assigns its identity.
func (c *Client) CreateRecord(ctx context.Context, rec NewRecord) (Record, error) {
	var resp Record
	err := c.do(ctx, http.MethodPost, "records", rec, &resp)
	return resp, err
}

// GetRecord fetches a record. A missing record is reported as ok == false.
func (c *Client) GetRecord(ctx context.Context, id uint64) (Record, bool, error) {
	var resp Record
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("records/%d", id), nil, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return resp, true, nil
}

// ListRecords returns every record ordered by identity.
func (c *Client) ListRecords(ctx context.Context) ([]Record, error) {
	var resp []Record
	err := c.do(ctx, http.MethodGet, "records", nil, &resp)
	return resp, err
}

// CountRecords returns the number of stored records.
func (c *Client) CountRecords(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, "records/count", nil, &resp)
	return resp.Count, err
}

// Classify asks the server to classify a status.
func (c *Client) Classify(ctx context.Context, s Status) (Classification, error) {
	var resp Classification
	err := c.do(ctx, http.MethodPost, "statuses/classify", s, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(c.BasePath, "/")
}
