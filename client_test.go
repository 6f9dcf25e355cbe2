package factsync_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hyperengineering/factsync"
)

// pagedSource serves a fixed number of pages of three facts each.
type pagedSource struct {
	mu       sync.Mutex
	pages    int
	served   int
	created  int
	requests []string
}

func (s *pagedSource) FetchPage(ctx context.Context, url string) (*factsync.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, url)
	s.served++

	page := &factsync.Page{}
	for i := range 3 {
		text := fmt.Sprintf("page %d fact %d", s.served, i)
		page.Items = append(page.Items, factsync.FactPayload{Text: text, Length: len(text)})
	}
	if s.served < s.pages {
		page.NextPageURL = fmt.Sprintf("https://facts.example/facts?page=%d", s.served+1)
	}
	return page, nil
}

func (s *pagedSource) FetchOne(ctx context.Context, url string) (*factsync.FactPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, url)
	s.created++
	return &factsync.FactPayload{Text: fmt.Sprintf("random %d", s.created), Length: 8}, nil
}

func testConfig(t *testing.T) factsync.Config {
	t.Helper()
	return factsync.Config{
		BaseURL:   "https://facts.example",
		LocalPath: filepath.Join(t.TempDir(), "facts.db"),
		LogLevel:  "off",
	}
}

func newTestClient(t *testing.T, opts ...factsync.Option) *factsync.Client {
	t.Helper()
	client, err := factsync.New(testConfig(t), opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.BaseURL = "not a url"

	_, err := factsync.New(cfg)
	var ve *factsync.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("New error = %v, want *ValidationError", err)
	}
	if ve.Field != "BaseURL" {
		t.Errorf("Field = %q, want BaseURL", ve.Field)
	}
}

func TestNew_AppliesDefaults(t *testing.T) {
	client := newTestClient(t)

	cfg := client.Config()
	if cfg.PageSize != factsync.DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", cfg.PageSize, factsync.DefaultPageSize)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
}

func TestClient_OfflineWithoutSource(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if !client.Offline() {
		t.Fatal("client without a source should be offline")
	}
	if _, err := client.FetchFirstPage(ctx, 0); !errors.Is(err, factsync.ErrOffline) {
		t.Errorf("FetchFirstPage error = %v, want ErrOffline", err)
	}
	next, err := client.FetchNextPage(ctx, 0)
	if err != nil {
		t.Errorf("FetchNextPage on a not-started cursor error = %v, want nil", err)
	}
	if next == nil || len(next) != 0 {
		t.Errorf("FetchNextPage = %#v, want empty batch", next)
	}
	if _, err := client.CreateOne(ctx); !errors.Is(err, factsync.ErrOffline) {
		t.Errorf("CreateOne error = %v, want ErrOffline", err)
	}

	facts, err := client.Facts(ctx, 10)
	if err != nil {
		t.Fatalf("Facts failed offline: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("Facts = %d, want 0", len(facts))
	}
}

func TestClient_FetchAllPages(t *testing.T) {
	source := &pagedSource{pages: 3}
	client := newTestClient(t, factsync.WithSource(source))
	ctx := context.Background()

	first, err := client.FetchFirstPage(ctx, 3)
	if err != nil {
		t.Fatalf("FetchFirstPage failed: %v", err)
	}
	if len(first) != 3 || !client.HasMore() {
		t.Fatalf("first page: %d facts, HasMore=%v", len(first), client.HasMore())
	}

	for client.HasMore() {
		if _, err := client.FetchNextPage(ctx, 3); err != nil {
			t.Fatalf("FetchNextPage failed: %v", err)
		}
	}

	if state, next := client.Cursor(); state != factsync.CursorExhausted || next != "" {
		t.Errorf("Cursor = (%v, %q), want (exhausted, \"\")", state, next)
	}
	if len(source.requests) != 3 {
		t.Errorf("requests = %d, want 3", len(source.requests))
	}

	facts, err := client.Facts(ctx, 100)
	if err != nil {
		t.Fatalf("Facts failed: %v", err)
	}
	if len(facts) != 9 {
		t.Fatalf("Facts = %d, want 9", len(facts))
	}
	if facts[0].Text != "page 1 fact 0" || facts[8].Text != "page 3 fact 2" {
		t.Errorf("feed order: head %q, tail %q", facts[0].Text, facts[8].Text)
	}
	for i := 1; i < len(facts); i++ {
		if facts[i].OrderingRank >= facts[i-1].OrderingRank {
			t.Fatalf("rank not strictly decreasing at %d: %d >= %d", i, facts[i].OrderingRank, facts[i-1].OrderingRank)
		}
	}

	again, err := client.FetchNextPage(ctx, 3)
	if err != nil || len(again) != 0 {
		t.Errorf("FetchNextPage after exhaustion = (%d, %v), want (0, nil)", len(again), err)
	}
}

func TestClient_DefaultPageSizeInRequest(t *testing.T) {
	source := &pagedSource{pages: 1}
	client := newTestClient(t, factsync.WithSource(source))

	if _, err := client.FetchFirstPage(context.Background(), 0); err != nil {
		t.Fatalf("FetchFirstPage failed: %v", err)
	}
	if want := "https://facts.example/facts?limit=20"; source.requests[0] != want {
		t.Errorf("request = %q, want %q", source.requests[0], want)
	}
}

func TestClient_LiveFeedSeesCreatedFact(t *testing.T) {
	source := &pagedSource{pages: 1}
	client := newTestClient(t, factsync.WithSource(source))
	ctx := context.Background()

	feed, err := client.LiveFeed(ctx, 5)
	if err != nil {
		t.Fatalf("LiveFeed failed: %v", err)
	}
	defer feed.Close()

	select {
	case initial := <-feed.Updates():
		if len(initial) != 0 {
			t.Fatalf("initial snapshot = %d facts, want 0", len(initial))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}

	created, err := client.CreateOne(ctx)
	if err != nil {
		t.Fatalf("CreateOne failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case facts := <-feed.Updates():
			if len(facts) == 1 && facts[0].ID == created.ID {
				return
			}
		case <-deadline:
			t.Fatal("created fact never appeared in live feed")
		}
	}
}

func TestClient_DeleteAndClear(t *testing.T) {
	source := &pagedSource{pages: 1}
	client := newTestClient(t, factsync.WithSource(source))
	ctx := context.Background()

	facts, err := client.FetchFirstPage(ctx, 3)
	if err != nil {
		t.Fatalf("FetchFirstPage failed: %v", err)
	}

	n, err := client.Delete(ctx, facts[0].ID, "missing")
	if err != nil || n != 1 {
		t.Fatalf("Delete = (%d, %v), want (1, nil)", n, err)
	}
	if _, err := client.Get(ctx, facts[0].ID); !errors.Is(err, factsync.ErrNotFound) {
		t.Errorf("Get deleted fact error = %v, want ErrNotFound", err)
	}

	n, err = client.Clear(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Clear = (%d, %v), want (2, nil)", n, err)
	}
}

func TestClient_Query(t *testing.T) {
	source := &pagedSource{pages: 1}
	client := newTestClient(t, factsync.WithSource(source))
	ctx := context.Background()

	if _, err := client.FetchFirstPage(ctx, 3); err != nil {
		t.Fatalf("FetchFirstPage failed: %v", err)
	}

	got, err := client.Query(ctx, factsync.Query{
		Filter: factsync.Equals{Column: factsync.ColumnText, Value: "page 1 fact 1"},
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 || got[0].Text != "page 1 fact 1" {
		t.Errorf("Query = %+v", got)
	}
}

func TestClient_Stats(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	source := &pagedSource{pages: 2}
	client := newTestClient(t, factsync.WithSource(source), factsync.WithClock(clock))
	ctx := context.Background()

	stats, err := client.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Cursor != factsync.CursorNotStarted || stats.Offline || stats.Store.FactCount != 0 {
		t.Errorf("initial stats = %+v", stats)
	}

	if _, err := client.FetchFirstPage(ctx, 3); err != nil {
		t.Fatalf("FetchFirstPage failed: %v", err)
	}
	stats, err = client.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Cursor != factsync.CursorHasMore {
		t.Errorf("Cursor = %v, want has_more", stats.Cursor)
	}
	if stats.Store.FactCount != 3 {
		t.Errorf("FactCount = %d, want 3", stats.Store.FactCount)
	}
	if stats.Store.NewestRank != now.Unix() {
		t.Errorf("NewestRank = %d, want %d", stats.Store.NewestRank, now.Unix())
	}
}

func TestClient_LogsThroughProvidedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := factsync.NewWriterLogger(factsync.LevelInfo, &buf)

	client, err := factsync.New(testConfig(t), factsync.WithLogger(logger))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if client.Logger() != logger {
		t.Error("Logger() did not return the provided logger")
	}
	client.Close()

	if !bytes.Contains(buf.Bytes(), []byte("running offline")) {
		t.Errorf("log output = %q", buf.String())
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	client, err := factsync.New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
	if _, err := client.Facts(context.Background(), 1); !errors.Is(err, factsync.ErrStoreClosed) {
		t.Errorf("Facts after Close error = %v, want ErrStoreClosed", err)
	}
}
