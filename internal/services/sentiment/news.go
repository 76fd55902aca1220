package sentiment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	xhttp "github.com/antonbeski0/Predflux/pkg/http"
)

const DefaultNewsURL = "https://newsapi.org"

// NewsConfig configures the NewsAPI client.
type NewsConfig struct {
	BaseURL  string
	APIKey   string
	PageSize int
	Timeout  time.Duration
	Attempts int
}

// NewsClient fetches headlines from NewsAPI's /v2/everything endpoint.
type NewsClient struct {
	cfg    NewsConfig
	client *xhttp.Client
}

type newsResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string    `json:"title"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

func NewNewsClient(cfg NewsConfig, opts ...xhttp.ClientOption) *NewsClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultNewsURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 2
	}
	opts = append([]xhttp.ClientOption{
		xhttp.WithTimeout(cfg.Timeout),
		xhttp.WithHeader("X-Api-Key", cfg.APIKey),
	}, opts...)
	return &NewsClient{cfg: cfg, client: xhttp.NewClient(opts...)}
}

// Headlines returns the titles of the most recent articles matching query.
// Transient failures (429, 5xx, transport errors) are retried.
func (c *NewsClient) Headlines(ctx context.Context, query string) ([]string, error) {
	if c.cfg.APIKey == "" {
		return nil, errors.New("news: api key not configured")
	}
	var (
		resp newsResponse
		err  error
	)
	for i := 1; i <= c.cfg.Attempts; i++ {
		resp = newsResponse{}
		err = c.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    c.cfg.BaseURL + "/v2/everything",
			QueryParams: map[string][]string{
				"q":        {query},
				"sortBy":   {"publishedAt"},
				"language": {"en"},
				"pageSize": {strconv.Itoa(c.cfg.PageSize)},
			},
		}, &resp)
		if err == nil || !retryable(err) || i == c.cfg.Attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 200 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("news %q: %w", query, err)
	}
	if resp.Status != "" && resp.Status != "ok" {
		return nil, fmt.Errorf("news %q: %s: %s", query, resp.Code, resp.Message)
	}
	titles := make([]string, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.Title != "" {
			titles = append(titles, a.Title)
		}
	}
	return titles, nil
}

func retryable(err error) bool {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
