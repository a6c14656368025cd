package trivia

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

const maxResponseSize = 4 << 20

// Client talks to a jService-compatible HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  log.FieldLogger
}

// NewClient returns a Client rooted at baseURL, e.g. https://jservice.io/api.
func NewClient(baseURL string, timeout time.Duration, logger log.FieldLogger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("provider url must be http or https: %q", baseURL)
	}
	if logger == nil {
		logger = log.StandardLogger()
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

func (c *Client) ListCategories(ctx context.Context, count, offset int) ([]CategorySummary, error) {
	q := url.Values{}
	q.Set("count", strconv.Itoa(count))
	q.Set("offset", strconv.Itoa(offset))

	var out []CategorySummary
	if err := c.get(ctx, "/categories", q, &out); err != nil {
		return nil, fmt.Errorf("list categories at offset %d: %w", offset, err)
	}
	return out, nil
}

func (c *Client) GetCategory(ctx context.Context, id int) (CategoryDetail, error) {
	q := url.Values{}
	q.Set("id", strconv.Itoa(id))

	var out CategoryDetail
	if err := c.get(ctx, "/category", q, &out); err != nil {
		return CategoryDetail{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, v any) error {
	target := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(resp.Body, maxResponseSize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	c.logger.WithFields(log.Fields{
		"url":      target,
		"status":   resp.StatusCode,
		"duration": time.Since(startTime).Round(time.Microsecond).String(),
	}).Debug("trivia provider request")

	return nil
}
