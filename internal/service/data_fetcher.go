package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vizora/signage/internal/domain"
	"github.com/vizora/signage/pkg/breaker"
	"github.com/vizora/signage/pkg/logger"
	"github.com/vizora/signage/pkg/tracing"
)

const (
	DefaultFetchTimeout   = 10 * time.Second
	DefaultFetchUserAgent = "Vizora-Template/1.0"

	// FetchFailed is the category of every outbound fetch failure
	FetchFailed = "fetch_failed"

	maxResponseBytes = 5 << 20
	maxRedirects     = 5
)

// DataSourceConfigError reports a data source that cannot be fetched as
// configured, independently of the remote side
type DataSourceConfigError struct {
	Message string
}

func (e *DataSourceConfigError) Error() string {
	return e.Message
}

// FetchError is returned by strict fetches when the remote call fails or
// its circuit is open
type FetchError struct {
	Category string
	URL      string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("Failed to fetch data from %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type DataFetcherConfig struct {
	Timeout   time.Duration
	UserAgent string
	// RequireHTTPS rejects plain http sources, set in production
	RequireHTTPS bool
	// HTTPClient overrides the SSRF safe default client
	HTTPClient *http.Client
}

// DataFetcherService resolves template data sources. Remote calls go
// through one circuit breaker per host.
type DataFetcherService struct {
	httpClient *http.Client
	breakers   *breaker.Registry
	widgets    *WidgetRegistry
	guard      *URLGuard
	logger     logger.Logger
	timeout    time.Duration
	userAgent  string
}

func NewDataFetcherService(cfg DataFetcherConfig, breakers *breaker.Registry, widgets *WidgetRegistry, log logger.Logger) *DataFetcherService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultFetchUserAgent
	}
	client := cfg.HTTPClient
	if client == nil {
		client = NewSafeHTTPClient(cfg.Timeout)
	}

	return &DataFetcherService{
		httpClient: client,
		breakers:   breakers,
		widgets:    widgets,
		guard:      NewURLGuard(cfg.RequireHTTPS),
		logger:     log,
		timeout:    cfg.Timeout,
		userAgent:  cfg.UserAgent,
	}
}

// NewSafeHTTPClient returns a traced client whose dialer refuses internal
// addresses after DNS resolution, redirects are checked the same way
func NewSafeHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   dialControl,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return tracing.WrapHTTPClient(&http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return CheckHost(req.URL.Hostname())
		},
	})
}

func (s *DataFetcherService) HasWidget(widgetType string) bool {
	if s.widgets == nil {
		return false
	}
	_, ok := s.widgets.Get(widgetType)
	return ok
}

// FetchDataFromSource returns an empty map when the remote side fails so
// a refresh can fall back to sample data
func (s *DataFetcherService) FetchDataFromSource(ctx context.Context, source domain.DataSourceConfig) (domain.MapOfAny, error) {
	return s.fetch(ctx, source, true)
}

// FetchDataStrict returns remote failures as *FetchError
func (s *DataFetcherService) FetchDataStrict(ctx context.Context, source domain.DataSourceConfig) (domain.MapOfAny, error) {
	return s.fetch(ctx, source, false)
}

func (s *DataFetcherService) fetch(ctx context.Context, source domain.DataSourceConfig, fallback bool) (domain.MapOfAny, error) {
	switch source.Kind {
	case "", domain.DataSourceManual:
		if source.Manual == nil || source.Manual.Data == nil {
			return domain.MapOfAny{}, nil
		}
		return source.Manual.Data, nil
	case domain.DataSourceRestAPI, domain.DataSourceJSONURL:
		return s.fetchRemote(ctx, source.Remote, fallback)
	case domain.DataSourceWidget:
		if source.Widget == nil || source.Widget.WidgetType == "" {
			return nil, &DataSourceConfigError{Message: "Widget type is required"}
		}
		if s.widgets == nil {
			return nil, &DataSourceConfigError{Message: "Widget data sources are not configured"}
		}
		return s.widgets.Fetch(ctx, source.Widget.WidgetType, source.Widget.Config)
	default:
		return nil, &DataSourceConfigError{Message: fmt.Sprintf("Unknown data source type: %s", source.Kind)}
	}
}

func (s *DataFetcherService) fetchRemote(ctx context.Context, remote *domain.RemoteSource, fallback bool) (domain.MapOfAny, error) {
	if remote == nil || strings.TrimSpace(remote.URL) == "" {
		return nil, &DataSourceConfigError{Message: "Data source URL is required"}
	}

	u, err := s.guard.Check(remote.URL)
	if err != nil {
		s.logger.WithField("url", remote.URL).Warn(fmt.Sprintf("Data source URL rejected: %v", err))
		return nil, err
	}

	ctx, span := tracing.StartServiceSpan(ctx, "DataFetcherService", "FetchRemote")
	defer span.End()
	tracing.AddAttribute(ctx, "host", u.Hostname())

	name := "template-data-" + u.Hostname()
	call := func() (interface{}, error) {
		return s.request(ctx, u, remote)
	}

	var result interface{}
	if fallback {
		result, err = s.breakers.ExecuteWithFallback(name, call, func(cause error) (interface{}, error) {
			var ssrfErr *SSRFError
			if errors.As(cause, &ssrfErr) {
				s.logger.WithField("host", u.Hostname()).Warn(fmt.Sprintf("Data source address rejected: %v", ssrfErr))
				return nil, ssrfErr
			}
			s.logger.WithFields(map[string]interface{}{
				"host":         u.Hostname(),
				"circuit_open": breaker.IsOpen(cause),
			}).Warn(fmt.Sprintf("Data source fetch failed, using empty data: %v", cause))
			return map[string]interface{}{}, nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		result, err = s.breakers.Execute(name, call)
		if err != nil {
			var ssrfErr *SSRFError
			if errors.As(err, &ssrfErr) {
				return nil, ssrfErr
			}
			tracing.MarkSpanError(ctx, err)
			s.logger.WithField("host", u.Hostname()).Error(fmt.Sprintf("Failed to fetch data source: %v", err))
			return nil, &FetchError{Category: FetchFailed, URL: u.Redacted(), Err: err}
		}
	}

	return toRenderContext(ExtractJSONPath(result, remote.JSONPath)), nil
}

func (s *DataFetcherService) request(ctx context.Context, u *url.URL, remote *domain.RemoteSource) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	method := strings.ToUpper(remote.Method)
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)
	for key, value := range remote.Headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	tracing.RecordFetchLatency(ctx, u.Hostname(), time.Since(start))
	if err != nil {
		var ssrfErr *SSRFError
		if errors.As(err, &ssrfErr) {
			// a rejected dial is a configuration fault, not an unhealthy host
			return nil, breaker.Permanent(ssrfErr)
		}
		return nil, fmt.Errorf("failed to request %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxResponseBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", maxResponseBytes)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("response from %s is not valid JSON", u.Hostname())
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return data, nil
}
