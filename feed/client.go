package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

var (
	ErrFetch        = errors.New("feed fetch failed")
	ErrUnauthorized = errors.New("feed rejected bearer token")
)

// Client issues paged reads against the upstream listing feed.
type Client struct {
	feedURL  string
	pageSize int
	client   *http.Client
}

func NewClient(feedURL string, pageSize int, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{feedURL: feedURL, pageSize: pageSize, client: client}
}

// FetchPage requests one page of listings. The body may be an OData
// envelope ({"value": [...]}) or a bare array.
func (c *Client) FetchPage(ctx context.Context, bearer string) ([]Record, error) {
	u, err := url.Parse(c.feedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse url: %v", ErrFetch, err)
	}
	if c.pageSize > 0 {
		q := u.Query()
		q.Set("$top", strconv.Itoa(c.pageSize))
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrFetch, err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: %w", ErrFetch, ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrFetch, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}

	records, err := DecodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return records, nil
}

// DecodeRecords decodes a feed page. Numbers are kept as json.Number so
// large integer keys survive intact.
func DecodeRecords(body []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if trimmed[0] == '[' {
		var records []Record
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("decode array: %w", err)
		}
		return records, nil
	}

	var envelope struct {
		Value *[]Record `json:"value"`
	}
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.Value == nil {
		return nil, errors.New("envelope has no value field")
	}
	return *envelope.Value, nil
}
