package wikipedia

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

const apiURL = "https://en.wikipedia.org/w/api.php"

// Client looks up short topic summaries from Wikipedia. Lookups are
// best-effort: any failure returns an empty summary so narration can
// proceed without background material.
type Client struct {
	http *http.Client
}

func New() *Client {
	return &Client{http: &http.Client{Timeout: 8 * time.Second}}
}

// Summary searches for the topic and returns the intro extract of the top
// hit, or "" when nothing useful is found.
func (c *Client) Summary(ctx context.Context, topic string) (string, error) {
	title, err := c.search(ctx, topic)
	if err != nil || title == "" {
		return "", err
	}
	return c.extract(ctx, title)
}

func (c *Client) search(ctx context.Context, topic string) (string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {topic},
		"srlimit":  {"1"},
		"format":   {"json"},
	}
	body, err := c.get(ctx, params)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "query.search.0.title").String(), nil
}

func (c *Client) extract(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"exintro":     {"true"},
		"explaintext": {"true"},
		"titles":      {title},
		"format":      {"json"},
	}
	body, err := c.get(ctx, params)
	if err != nil {
		return "", err
	}

	var extract string
	gjson.GetBytes(body, "query.pages").ForEach(func(_, page gjson.Result) bool {
		extract = page.Get("extract").String()
		return false
	})
	return extract, nil
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "wayfare-tour-engine/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikipedia: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
