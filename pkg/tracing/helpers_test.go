package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/trace"
)

// spanRecorder keeps every exported span for inspection
type spanRecorder struct {
	mu    sync.Mutex
	spans []*trace.SpanData
}

func (r *spanRecorder) ExportSpan(s *trace.SpanData) {
	r.mu.Lock()
	r.spans = append(r.spans, s)
	r.mu.Unlock()
}

func (r *spanRecorder) find(name string) *trace.SpanData {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.spans {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func recordSpans(t *testing.T) *spanRecorder {
	t.Helper()
	rec := &spanRecorder{}
	trace.RegisterExporter(rec)
	trace.ApplyConfig(trace.Config{DefaultSampler: trace.AlwaysSample()})
	t.Cleanup(func() {
		trace.UnregisterExporter(rec)
		trace.ApplyConfig(trace.Config{DefaultSampler: trace.ProbabilitySampler(1e-4)})
	})
	return rec
}

func TestStartServiceSpan(t *testing.T) {
	rec := recordSpans(t)

	ctx, span := StartServiceSpan(context.Background(), "TemplateService", "CreateTemplate")
	assert.Same(t, span, trace.FromContext(ctx))
	AddAttribute(ctx, "template_id", "t1")
	span.End()

	data := rec.find("TemplateService.CreateTemplate")
	require.NotNil(t, data)
	assert.Equal(t, "t1", data.Attributes["template_id"])
	assert.Equal(t, int32(trace.StatusCodeOK), data.Status.Code)
}

func TestEndSpan(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartServiceSpan(context.Background(), "RefreshScheduler", "executeRefresh")
	EndSpan(span, nil)
	_, span = StartServiceSpan(context.Background(), "TemplateRefreshService", "RefreshTemplate")
	EndSpan(span, errors.New("Template t1 has no HTML"))

	ok := rec.find("RefreshScheduler.executeRefresh")
	require.NotNil(t, ok)
	assert.Equal(t, int32(trace.StatusCodeOK), ok.Status.Code)

	failed := rec.find("TemplateRefreshService.RefreshTemplate")
	require.NotNil(t, failed)
	assert.Equal(t, int32(trace.StatusCodeUnknown), failed.Status.Code)
	assert.Equal(t, "Template t1 has no HTML", failed.Status.Message)
}

func TestAddAttribute(t *testing.T) {
	rec := recordSpans(t)

	ctx, span := StartServiceSpan(context.Background(), "DataFetcherService", "FetchRemote")
	AddAttribute(ctx, "host", "api.example.com")
	AddAttribute(ctx, "templates", 12)
	AddAttribute(ctx, "concurrency", int32(4))
	AddAttribute(ctx, "bytes", int64(2048))
	AddAttribute(ctx, "circuit_open", true)
	AddAttribute(ctx, "interval", 15*time.Minute)
	span.End()

	data := rec.find("DataFetcherService.FetchRemote")
	require.NotNil(t, data)
	assert.Equal(t, "api.example.com", data.Attributes["host"])
	assert.Equal(t, int64(12), data.Attributes["templates"])
	assert.Equal(t, int64(4), data.Attributes["concurrency"])
	assert.Equal(t, int64(2048), data.Attributes["bytes"])
	assert.Equal(t, true, data.Attributes["circuit_open"])
	assert.Equal(t, "15m0s", data.Attributes["interval"])

	// no span in context is a no-op
	AddAttribute(context.Background(), "host", "ignored")
}

func TestMarkSpanError(t *testing.T) {
	rec := recordSpans(t)

	ctx, span := StartServiceSpan(context.Background(), "TemplateService", "PreviewTemplate")
	MarkSpanError(ctx, nil)
	MarkSpanError(ctx, errors.New("HTTP 503: Service Unavailable"))
	span.End()

	data := rec.find("TemplateService.PreviewTemplate")
	require.NotNil(t, data)
	assert.Equal(t, "HTTP 503: Service Unavailable", data.Status.Message)

	MarkSpanError(context.Background(), errors.New("no span"))
}

func TestWrapHTTPClient(t *testing.T) {
	t.Run("nil client gets a default timeout", func(t *testing.T) {
		client := WrapHTTPClient(nil)
		assert.Equal(t, 30*time.Second, client.Timeout)
		assert.NotNil(t, client.Transport)
	})

	t.Run("keeps timeout and redirect policy", func(t *testing.T) {
		redirects := errors.New("stopped after 5 redirects")
		client := WrapHTTPClient(&http.Client{
			Timeout:       10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error { return redirects },
		})

		assert.Equal(t, 10*time.Second, client.Timeout)
		require.NotNil(t, client.CheckRedirect)
		assert.Equal(t, redirects, client.CheckRedirect(nil, nil))
	})

	t.Run("fetches are traced and timed", func(t *testing.T) {
		rec := recordSpans(t)
		require.NoError(t, view.Register(EngineViews...))

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"temperature": 21}`))
		}))
		defer srv.Close()

		ctx, span := StartServiceSpan(context.Background(), "DataFetcherService", "FetchRemote")
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/weather", nil)
		require.NoError(t, err)

		start := time.Now()
		resp, err := WrapHTTPClient(nil).Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		RecordFetchLatency(ctx, "weather.example.com", time.Since(start))
		span.End()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		parent := rec.find("DataFetcherService.FetchRemote")
		require.NotNil(t, parent)

		rows, err := view.RetrieveData(MeasureFetchLatency.Name())
		require.NoError(t, err)
		var found bool
		for _, row := range rows {
			for _, tg := range row.Tags {
				if tg.Key == KeyHost && tg.Value == "weather.example.com" {
					found = true
					dist, ok := row.Data.(*view.DistributionData)
					require.True(t, ok)
					assert.GreaterOrEqual(t, dist.Count, int64(1))
				}
			}
		}
		assert.True(t, found)
	})
}

func TestRecordRefresh(t *testing.T) {
	require.NoError(t, view.Register(EngineViews...))

	before := refreshCount(t, "success")
	RecordRefresh(context.Background(), "success")
	RecordRefresh(context.Background(), "success")
	RecordRefresh(context.Background(), "error")

	assert.Equal(t, before+2, refreshCount(t, "success"))
}

func refreshCount(t *testing.T, result string) int64 {
	t.Helper()
	rows, err := view.RetrieveData(MeasureTemplateRefresh.Name())
	require.NoError(t, err)
	for _, row := range rows {
		for _, tg := range row.Tags {
			if tg.Key == KeyResult && tg.Value == result {
				return row.Data.(*view.CountData).Value
			}
		}
	}
	return 0
}
