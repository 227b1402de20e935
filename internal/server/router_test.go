package server

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-fetch/internal/cache"
	"github.com/any-hub/any-fetch/internal/era"
	"github.com/any-hub/any-fetch/internal/fetch"
)

func TestFetchRouteServesBody(t *testing.T) {
	app := newTestApp(t, fetch.DownloaderFunc(func(ctx context.Context, requestURL, token string) (fetch.Response, error) {
		return fetch.Response{Body: []byte("hello"), Token: "T1"}, nil
	}))

	resp, err := app.Test(httptest.NewRequest("GET", "/fetch?url=http://x/a", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d (body=%s)", resp.StatusCode, body)
	}
	if string(body) != "hello" {
		t.Fatalf("unexpected body %q", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	if resp.Header.Get(HeaderEra) != "3" {
		t.Fatalf("expected first request to advance era to 3, got %s", resp.Header.Get(HeaderEra))
	}

	entry, ok := app.store.Snapshot("http://x/a")
	if !ok || entry.Token != "T1" {
		t.Fatalf("expected cached entry with token T1, got %+v", entry)
	}
}

func TestFetchRouteKeepsEraWhenAsked(t *testing.T) {
	app := newTestApp(t, fetch.DownloaderFunc(func(ctx context.Context, requestURL, token string) (fetch.Response, error) {
		return fetch.Response{Body: []byte("x")}, nil
	}))

	resp, err := app.Test(httptest.NewRequest("GET", "/fetch?url=http://x/a&era=keep", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.Header.Get(HeaderEra) != "2" {
		t.Fatalf("expected era to stay at 2, got %s", resp.Header.Get(HeaderEra))
	}
	if app.clock.Current() != 2 {
		t.Fatalf("clock should not advance, got %d", app.clock.Current())
	}
}

func TestFetchRouteReportsEraUsedByFetch(t *testing.T) {
	recorder := &fetchRecorder{body: []byte("ok"), era: 42}
	clock := era.NewClock()
	app, err := NewApp(AppOptions{
		Logger:     quietLogger(),
		Fetcher:    recorder,
		Clock:      clock,
		Behavior:   fetch.AlwaysFresh,
		ListenPort: 5080,
	})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/fetch?url=http://x/a", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.Header.Get(HeaderEra) != "42" {
		t.Fatalf("expected header to carry the fetch era 42, got %s", resp.Header.Get(HeaderEra))
	}
	if clock.Current() != 3 {
		t.Fatalf("request should still advance the clock, got %d", clock.Current())
	}
}

func TestFetchRouteRequiresURL(t *testing.T) {
	app := newTestApp(t, failingDownloader())

	resp, err := app.Test(httptest.NewRequest("GET", "/fetch", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"url_required"`)) {
		t.Fatalf("expected url_required error, got %s", body)
	}
}

func TestFetchRouteRejectsUnknownBehavior(t *testing.T) {
	app := newTestApp(t, failingDownloader())

	resp, err := app.Test(httptest.NewRequest("GET", "/fetch?url=http://x/a&behavior=sometimes", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestFetchRouteReportsFailure(t *testing.T) {
	app := newTestApp(t, failingDownloader())

	resp, err := app.Test(httptest.NewRequest("GET", "/fetch?url=http://x/a&behavior=only", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"fetch_failed"`)) {
		t.Fatalf("expected fetch_failed error, got %s", body)
	}
}

func TestFetchRoutePassesKeyAndRequirement(t *testing.T) {
	recorder := &fetchRecorder{body: []byte("ok")}
	app, err := NewApp(AppOptions{
		Logger:     quietLogger(),
		Fetcher:    recorder,
		Clock:      era.NewClock(),
		Behavior:   fetch.AnyCached,
		ListenPort: 5080,
	})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/fetch?url=http://x/a%3Fq%3D1&key=k1&require=needle", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if recorder.url != "http://x/a?q=1" || recorder.key != "k1" || recorder.required != "needle" {
		t.Fatalf("unexpected forwarded arguments: %+v", recorder)
	}
	if recorder.behavior != fetch.AnyCached {
		t.Fatalf("expected default behavior, got %s", recorder.behavior)
	}
}

func TestNewAppValidatesOptions(t *testing.T) {
	if _, err := NewApp(AppOptions{}); err == nil {
		t.Fatalf("expected error without logger")
	}
	if _, err := NewApp(AppOptions{Logger: quietLogger(), Fetcher: &fetchRecorder{}, Clock: era.NewClock()}); err == nil {
		t.Fatalf("expected error for zero listen port")
	}
}

type testApp struct {
	*fiber.App
	store *cache.Store
	clock *era.Clock
}

func newTestApp(t *testing.T, downloader fetch.Downloader) *testApp {
	t.Helper()

	logger := quietLogger()
	store := cache.NewStore()
	clock := era.NewClock()

	app, err := NewApp(AppOptions{
		Logger:     logger,
		Fetcher:    fetch.NewFetcher(store, clock, downloader, logger),
		Clock:      clock,
		Behavior:   fetch.AlwaysFresh,
		ListenPort: 5080,
	})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return &testApp{App: app, store: store, clock: clock}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fetchRecorder struct {
	body     []byte
	era      era.Era
	url      string
	key      string
	required string
	behavior fetch.Behavior
}

func (r *fetchRecorder) FetchInEra(ctx context.Context, requestURL, cacheKey string, behavior fetch.Behavior, required string) ([]byte, era.Era, bool) {
	r.url = requestURL
	r.key = cacheKey
	r.required = required
	r.behavior = behavior
	return r.body, r.era, true
}

func failingDownloader() fetch.Downloader {
	return fetch.DownloaderFunc(func(ctx context.Context, requestURL, token string) (fetch.Response, error) {
		return fetch.Response{}, fetch.ErrDownloadDisabled
	})
}
