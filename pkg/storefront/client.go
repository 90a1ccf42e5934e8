// Package storefront talks to the public store endpoints: the HTML search pages,
// the per-app detail API and the bulk app list service.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/BartekS5/steampulse/pkg/models"
)

const maxBodyBytes = 32 << 20

// Options configures a Client. Zero values fall back to the defaults below.
type Options struct {
	StoreBaseURL string
	APIBaseURL   string
	CountryCode  string
	Language     string
	UserAgent    string
	APIKey       string
	Timeout      time.Duration
	// RequestsPerSecond is shared by every request the client issues; 0 means unlimited.
	RequestsPerSecond float64
}

// Client issues blocking, timeout-bounded GET requests.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	storeBase string
	apiBase   string
	cc        string
	lang      string
	userAgent string
	apiKey    string
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, burst),
		storeBase: strings.TrimRight(defaultString(opts.StoreBaseURL, "https://store.steampowered.com"), "/"),
		apiBase:   strings.TrimRight(defaultString(opts.APIBaseURL, "https://api.steampowered.com"), "/"),
		cc:        defaultString(opts.CountryCode, "US"),
		lang:      defaultString(opts.Language, "english"),
		userAgent: defaultString(opts.UserAgent, "steampulse/1.0"),
		apiKey:    opts.APIKey,
	}
}

// WithTimeout returns a copy of the client using a different per-request timeout.
// The request budget stays shared with the original.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	clone := *c
	clone.http = &http.Client{Timeout: timeout}
	return &clone
}

// doGET returns the body and status. Non-2xx statuses come back with a nil error;
// err is only set for transport-level failures, wrapped in models.ErrTransport.
func (c *Client) doGET(ctx context.Context, u string, accept string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", models.ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", models.ErrTransport, redactURLError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: reading body: %v", models.ErrTransport, err)
	}

	return body, resp.StatusCode, nil
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: http status %d", e.URL, e.Code)
}

func (e *StatusError) Unwrap() error {
	return models.ErrUnexpectedStatus
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// redactURLError strips the api key from the URL that net/http embeds in transport errors.
func redactURLError(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	ue.URL = redactKey(ue.URL)
	return err
}

func redactKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
