package remote

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperengineering/factsync"
)

const pageBody = `{
  "current_page": 1,
  "data": [
    {"fact": "Cats sleep 70% of their lives.", "length": 30},
    {"fact": "A group of cats is called a clowder.", "length": 36}
  ],
  "next_page_url": "https://catfact.ninja/facts?page=2",
  "per_page": 2,
  "total": 332
}`

const lastPageBody = `{
  "current_page": 166,
  "data": [{"fact": "Cats have 32 muscles in each ear.", "length": 33}],
  "next_page_url": null,
  "per_page": 2,
  "total": 332
}`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPClient_FetchPage_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/facts" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if got := r.URL.Query().Get("limit"); got != "2" {
			t.Errorf("limit = %q, want 2", got)
		}
		_, _ = w.Write([]byte(pageBody))
	}))
	defer server.Close()

	client := NewHTTPClient(time.Second, nil)
	page, err := client.FetchPage(context.Background(), server.URL+"/facts?limit=2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(page.Items) != 2 {
		t.Fatalf("Items = %d, want 2", len(page.Items))
	}
	if page.Items[1].Text != "A group of cats is called a clowder." || page.Items[1].Length != 36 {
		t.Errorf("Items[1] = %+v", page.Items[1])
	}
	if page.NextPageURL != "https://catfact.ninja/facts?page=2" {
		t.Errorf("NextPageURL = %q", page.NextPageURL)
	}
}

func TestHTTPClient_FetchPage_LastPage(t *testing.T) {
	server := serve(t, http.StatusOK, lastPageBody)

	page, err := NewHTTPClient(0, nil).FetchPage(context.Background(), server.URL+"/facts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.NextPageURL != "" {
		t.Errorf("NextPageURL = %q, want empty for null", page.NextPageURL)
	}
	if len(page.Items) != 1 {
		t.Errorf("Items = %d, want 1", len(page.Items))
	}
}

func TestHTTPClient_FetchPage_EmptyData(t *testing.T) {
	server := serve(t, http.StatusOK, `{"current_page": 9, "data": [], "next_page_url": null}`)

	page, err := NewHTTPClient(0, nil).FetchPage(context.Background(), server.URL+"/facts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Errorf("Items = %#v, want empty slice", page.Items)
	}
}

func TestHTTPClient_SetsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		if got := r.Header.Get("User-Agent"); !strings.HasPrefix(got, "factsync-client/") {
			t.Errorf("User-Agent = %q", got)
		}
		_, _ = w.Write([]byte(`{"fact": "x", "length": 1}`))
	}))
	defer server.Close()

	if _, err := NewHTTPClient(0, nil).FetchOne(context.Background(), server.URL+"/fact"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHTTPClient_FetchOne_Success(t *testing.T) {
	server := serve(t, http.StatusOK, `{"fact": "Cats can rotate their ears 180 degrees.", "length": 39}`)

	fact, err := NewHTTPClient(0, nil).FetchOne(context.Background(), server.URL+"/fact")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fact.Text != "Cats can rotate their ears 180 degrees." || fact.Length != 39 {
		t.Errorf("fact = %+v", fact)
	}
}

func TestHTTPClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
		kind     factsync.RemoteErrorKind
	}{
		{"not found", http.StatusNotFound, factsync.ErrRemoteClient, factsync.RemoteClient},
		{"too many requests", http.StatusTooManyRequests, factsync.ErrRemoteClient, factsync.RemoteClient},
		{"internal error", http.StatusInternalServerError, factsync.ErrRemoteServer, factsync.RemoteServer},
		{"unavailable", http.StatusServiceUnavailable, factsync.ErrRemoteServer, factsync.RemoteServer},
		{"redirect without location", http.StatusMultipleChoices, factsync.ErrRemoteTransport, factsync.RemoteTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := serve(t, tt.status, `{"message": "nope"}`)

			_, err := NewHTTPClient(0, nil).FetchPage(context.Background(), server.URL+"/facts")
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("error = %v, want %v", err, tt.sentinel)
			}

			var re *factsync.RemoteError
			if !errors.As(err, &re) {
				t.Fatalf("expected RemoteError, got %T", err)
			}
			if re.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", re.Kind, tt.kind)
			}
			if re.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", re.StatusCode, tt.status)
			}
			if re.Operation != "fetch_page" {
				t.Errorf("Operation = %q, want fetch_page", re.Operation)
			}
			if !strings.Contains(err.Error(), "nope") {
				t.Errorf("error %q does not carry the response body", err)
			}
		})
	}
}

func TestHTTPClient_ErrorBodyTruncated(t *testing.T) {
	server := serve(t, http.StatusBadGateway, strings.Repeat("x", 1000))

	_, err := NewHTTPClient(0, nil).FetchPage(context.Background(), server.URL+"/facts")
	var re *factsync.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %T", err)
	}

	want := "HTTP 502: " + strings.Repeat("x", maxErrorBody) + "..."
	if got := re.Err.Error(); got != want {
		t.Errorf("Err length = %d, want %d", len(got), len(want))
	}
}

func TestHTTPClient_NetworkError(t *testing.T) {
	_, err := NewHTTPClient(time.Second, nil).FetchPage(context.Background(), "http://localhost:1/facts")
	if !errors.Is(err, factsync.ErrRemoteTransport) {
		t.Fatalf("error = %v, want ErrRemoteTransport", err)
	}
	if !factsync.IsRetryable(err) {
		t.Error("network error should be retryable")
	}
}

func TestHTTPClient_InvalidURL(t *testing.T) {
	_, err := NewHTTPClient(0, nil).FetchOne(context.Background(), "://missing-scheme")
	var re *factsync.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %T", err)
	}
	if re.Operation != "fetch_one" {
		t.Errorf("Operation = %q, want fetch_one", re.Operation)
	}
}

func TestHTTPClient_DecodeError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>maintenance</html>"},
		{"wrong shape", `{"data": "not a list"}`},
		{"truncated", `{"data": [{"fact": "x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := serve(t, http.StatusOK, tt.body)

			_, err := NewHTTPClient(0, nil).FetchPage(context.Background(), server.URL+"/facts")
			if !errors.Is(err, factsync.ErrDecode) {
				t.Fatalf("error = %v, want ErrDecode", err)
			}
			if factsync.IsRetryable(err) {
				t.Error("decode error should not be retryable")
			}
		})
	}
}

func TestHTTPClient_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPClient(0, nil).FetchPage(ctx, server.URL+"/facts")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestHTTPClient_WithHTTPClient(t *testing.T) {
	var used bool
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		used = true
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Body:       httpBody(`{"fact": "custom", "length": 6}`),
			Header:     make(http.Header),
		}, nil
	})

	client := NewHTTPClient(0, nil).WithHTTPClient(&http.Client{Transport: transport})
	fact, err := client.FetchOne(context.Background(), "https://facts.example/fact")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !used || fact.Text != "custom" {
		t.Errorf("custom transport used = %v, fact = %+v", used, fact)
	}
}

func TestHTTPClient_LogsRequests(t *testing.T) {
	server := serve(t, http.StatusOK, lastPageBody)

	var buf bytes.Buffer
	log := factsync.NewWriterLogger(factsync.LevelDebug, &buf).Channel("remote")
	if _, err := NewHTTPClient(0, log).FetchPage(context.Background(), server.URL+"/facts"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "REQUEST GET "+server.URL+"/facts") {
		t.Errorf("missing request line: %q", out)
	}
	if !strings.Contains(out, "RESPONSE 200") {
		t.Errorf("missing response line: %q", out)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type readCloser struct{ *strings.Reader }

func (readCloser) Close() error { return nil }

func httpBody(s string) readCloser { return readCloser{strings.NewReader(s)} }
