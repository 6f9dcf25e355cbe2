package factsync

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
)

// FactSource fetches facts from the remote feed.
// Implementations must be safe for concurrent use and report failures as *RemoteError.
type FactSource interface {
	// FetchPage fetches one page of the facts collection at url.
	FetchPage(ctx context.Context, url string) (*Page, error)

	// FetchOne fetches a single fact at url.
	FetchOne(ctx context.Context, url string) (*FactPayload, error)
}

// FactSaver persists batches of facts.
type FactSaver interface {
	Save(ctx context.Context, facts []Fact) error
}

// FactStore is the persistence the sync engine needs.
type FactStore interface {
	FactSaver
	Observe(ctx context.Context, q Query) (*Subscription, error)
}

// CursorState is the pagination state of an Engine.
type CursorState int

const (
	// CursorNotStarted: no page has been fetched yet.
	CursorNotStarted CursorState = iota
	// CursorHasMore: the last page carried a continuation URL.
	CursorHasMore
	// CursorExhausted: the last page carried no continuation URL.
	CursorExhausted
)

func (c CursorState) String() string {
	switch c {
	case CursorNotStarted:
		return "not_started"
	case CursorHasMore:
		return "has_more"
	case CursorExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON output.
func (c CursorState) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (c *CursorState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "not_started":
		*c = CursorNotStarted
	case "has_more":
		*c = CursorHasMore
	case "exhausted":
		*c = CursorExhausted
	default:
		return fmt.Errorf("unknown cursor state %q", text)
	}
	return nil
}

// Engine pages through the remote facts collection, gives every fetched fact
// a synthetic ordering rank and persists each page into the store.
//
// Ranks descend strictly across the whole session: each page continues one
// below the last rank handed out. The first page of a fresh engine starts at
// the current Unix second.
//
// An Engine holds a single cursor and must be driven by one caller at a time;
// FetchFirstPage and FetchNextPage are not safe for concurrent use.
type Engine struct {
	source  FactSource
	store   FactStore
	baseURL string
	now     func() time.Time
	log     *Channel

	state    CursorState
	nextURL  string
	lastRank int64
	hasRank  bool
}

// NewEngine creates a sync engine for the feed rooted at baseURL.
func NewEngine(baseURL string, source FactSource, store FactStore) *Engine {
	return &Engine{
		source:  source,
		store:   store,
		baseURL: baseURL,
		now:     time.Now,
	}
}

// WithLogger sets the channel the engine reports failures to.
func (e *Engine) WithLogger(log *Channel) *Engine {
	e.log = log
	return e
}

// WithClock replaces the wall clock used to seed ranks.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Cursor returns the pagination state and, when more pages exist, the URL of the next one.
func (e *Engine) Cursor() (CursorState, string) {
	return e.state, e.nextURL
}

// HasMore reports whether FetchNextPage would issue a request.
func (e *Engine) HasMore() bool {
	return e.state == CursorHasMore
}

// FetchFirstPage fetches the first page of the collection regardless of the
// current cursor, persists it and returns it in rank order.
// pageSize <= 0 means DefaultPageSize.
func (e *Engine) FetchFirstPage(ctx context.Context, pageSize int) ([]Fact, error) {
	if e.source == nil {
		return nil, ErrOffline
	}
	pageSize = normalizePageSize(pageSize)

	listURL, err := url.JoinPath(e.baseURL, FactsPath)
	if err != nil {
		return nil, fmt.Errorf("build facts url: %w", err)
	}
	pageURL, err := withLimit(listURL, pageSize)
	if err != nil {
		return nil, fmt.Errorf("build facts url: %w", err)
	}

	return e.fetch(ctx, "fetch_first_page", pageURL, pageSize)
}

// FetchNextPage fetches the page after the last one fetched. If no page has
// been fetched yet, or the last page had no successor, it returns an empty
// batch without making a request.
func (e *Engine) FetchNextPage(ctx context.Context, pageSize int) ([]Fact, error) {
	if e.state != CursorHasMore {
		return []Fact{}, nil
	}
	if e.source == nil {
		return nil, ErrOffline
	}
	return e.fetch(ctx, "fetch_next_page", e.nextURL, normalizePageSize(pageSize))
}

// LiveFeed subscribes to the cached facts, newest rank first, at most limit
// at a time (0 means DefaultReadLimit).
func (e *Engine) LiveFeed(ctx context.Context, limit int) (*Subscription, error) {
	return e.store.Observe(ctx, FeedQuery(limit))
}

// fetch runs one page fetch. The cursor and rank sequence only advance once
// the page has been persisted, so a failed save can be retried by repeating
// the same call.
func (e *Engine) fetch(ctx context.Context, op, pageURL string, pageSize int) ([]Fact, error) {
	e.log.Debug("%s: %s", op, pageURL)

	page, err := e.source.FetchPage(ctx, pageURL)
	if err != nil {
		e.log.Error(err, "%s", op)
		return nil, err
	}

	state, next := CursorExhausted, ""
	if page.NextPageURL != "" {
		next, err = withLimit(page.NextPageURL, pageSize)
		if err != nil {
			err = &RemoteError{Kind: RemoteDecode, Operation: op, Err: fmt.Errorf("next_page_url: %w", err)}
			e.log.Error(err, "%s", op)
			return nil, err
		}
		state = CursorHasMore
	}

	facts, lastRank := e.rankPage(page.Items)

	if err := e.store.Save(ctx, facts); err != nil {
		e.log.Error(err, "%s: persist %d facts", op, len(facts))
		return nil, err
	}

	e.state, e.nextURL = state, next
	if len(facts) > 0 {
		e.lastRank, e.hasRank = lastRank, true
	}

	e.log.Info("%s: stored %d facts (cursor %s)", op, len(facts), state)
	return facts, nil
}

// rankPage turns payloads into facts with strictly decreasing ranks that
// continue below the last rank this engine handed out.
func (e *Engine) rankPage(items []FactPayload) ([]Fact, int64) {
	base := e.now().Unix()
	if e.hasRank {
		base = e.lastRank - 1
	}

	facts := make([]Fact, len(items))
	for i, item := range items {
		facts[i] = newFact(item, base-int64(i))
	}
	return facts, base - int64(len(items)-1)
}

func newFact(p FactPayload, rank int64) Fact {
	return Fact{
		ID:           ulid.Make().String(),
		Text:         p.Text,
		Length:       p.Length,
		OrderingRank: rank,
	}
}

func normalizePageSize(pageSize int) int {
	if pageSize <= 0 {
		return DefaultPageSize
	}
	return pageSize
}

// withLimit sets the limit query parameter on rawURL.
func withLimit(rawURL string, limit int) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
