package catalog

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	userAgent       = "riasec-matcher"
	defaultPerPage  = 100
)

// ItemResponse is one page of a paginated catalog endpoint.
type ItemResponse struct {
	Items   []any
	Found   int
	Pages   int
	Page    int
	PerPage int `json:"per_page"`
}

// HTTPReader pages through a catalog endpoint that accepts page and
// per_page query parameters. Pages are fetched lazily while iterating.
type HTTPReader struct {
	URL        string
	PerPage    int
	HTTPClient *http.Client
	UserAgent  string

	token  string
	logger *zap.Logger
}

func NewHTTPReader(endpoint, token string, perPage int, logger *zap.Logger) *HTTPReader {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPReader{
		URL:     endpoint,
		PerPage: perPage,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: userAgent,
		token:     token,
		logger:    logger,
	}
}

// All yields every job of every page. Undecodable records are yielded as
// errors and skipped; a failed page request is a source error and ends the
// iteration.
func (c *HTTPReader) All(ctx context.Context) iter.Seq2[*Job, error] {
	return func(yield func(*Job, error) bool) {
		page := 0
		for {
			response, err := c.getPage(ctx, page)
			if err != nil {
				yield(nil, sourceError(fmt.Errorf("catalog page %d: %w", page, err)))
				return
			}

			if page == 0 {
				c.logger.Debug("got catalog response",
					zap.Int("pages", response.Pages),
					zap.Int("found", response.Found),
					zap.Int("per_page", response.PerPage),
				)
			}

			for i, item := range response.Items {
				job, err := DecodeJob(item)
				if err != nil {
					err = fmt.Errorf("catalog page %d record %d: %w", page, i, err)
				}
				if !yield(job, err) {
					return
				}
			}

			if response.Page >= response.Pages-1 || len(response.Items) == 0 {
				return
			}

			c.logger.Debug("additional request needed", zap.String("reason", fmt.Sprintf(
				"current page (%d) < all page count (%d)", response.Page+1, response.Pages),
			))
			page = response.Page + 1
		}
	}
}

func (c *HTTPReader) getPage(ctx context.Context, page int) (*ItemResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.PerPage))
	req.URL.RawQuery = q.Encode()

	resp, err := c.request(req)
	if err != nil {
		return nil, err
	}

	return c.parseItemResponse(resp)
}

func (c *HTTPReader) parseItemResponse(resp *http.Response) (*ItemResponse, error) {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		body = gz
	}

	var response ItemResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, err
	}

	return &response, nil
}

func (c *HTTPReader) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	return c.HTTPClient.Do(req)
}

func (c *HTTPReader) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}
