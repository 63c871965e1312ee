package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/github-backup/internal/core/domain"
	"github.com/custodia-labs/github-backup/internal/core/ports/driven"
	"github.com/custodia-labs/github-backup/internal/logger"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// Ensure Factory implements the interface.
var _ driven.HostingFactory = (*Factory)(nil)

// Factory creates API clients for a set of credentials.
type Factory struct {
	// BaseURL is the API root. Empty means api.github.com; anything else is
	// treated as a GitHub Enterprise server.
	BaseURL string

	// RequestsPerSecond spaces requests out. Zero disables proactive throttling.
	RequestsPerSecond float64

	// Timeout bounds each API request. Asset downloads are not bounded.
	Timeout time.Duration

	// Transport is the base round tripper, http.DefaultTransport when nil.
	Transport http.RoundTripper
}

// NewFactory returns a factory for baseURL with the default throttle.
func NewFactory(baseURL string) *Factory {
	return &Factory{
		BaseURL:           baseURL,
		RequestsPerSecond: ProactiveRate,
		Timeout:           DefaultTimeout,
	}
}

// New returns a client authenticating with creds. A token is sent as a
// bearer token, a password with basic auth.
func (f *Factory) New(ctx context.Context, creds domain.Credentials) (driven.HostingAPI, error) {
	base := f.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if logger.IsDebug() {
		base = &loggingTransport{next: base}
	}

	var rt http.RoundTripper
	switch {
	case creds.Token() != "":
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.Token()}),
			Base:   base,
		}
	case creds.Password != "":
		rt = &gh.BasicAuthTransport{
			Username:  creds.BasicUser(),
			Password:  creds.Password,
			Transport: base,
		}
	default:
		rt = base
	}

	client := gh.NewClient(&http.Client{Transport: rt, Timeout: f.Timeout})
	if f.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(f.BaseURL, f.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("%w: api url %q: %v", domain.ErrInvalidInput, f.BaseURL, err)
		}
	}

	c := NewClient(client, !creds.Anonymous(), NewRateLimiter(f.RequestsPerSecond))
	// Assets redirect to storage that rejects the API credentials.
	c.download = &http.Client{Transport: base}
	return c, nil
}

// loggingTransport logs each request at debug level.
type loggingTransport struct {
	next http.RoundTripper
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		logger.Debug("%s %s failed after %s: %v", req.Method, req.URL.Redacted(), time.Since(start), err)
		return nil, err
	}
	logger.Debug("%s %s -> %d (%s, remaining %s)", req.Method, req.URL.Redacted(), resp.StatusCode,
		time.Since(start).Round(time.Millisecond), resp.Header.Get(HeaderRateRemaining))
	return resp, nil
}
