package factsync

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Creator adds single random facts from the remote feed to the cache.
type Creator struct {
	source  FactSource
	store   FactSaver
	baseURL string
	now     func() time.Time
	log     *Channel
}

// NewCreator creates a Creator for the feed rooted at baseURL.
func NewCreator(baseURL string, source FactSource, store FactSaver) *Creator {
	return &Creator{
		source:  source,
		store:   store,
		baseURL: baseURL,
		now:     time.Now,
	}
}

// WithLogger sets the channel the creator reports failures to.
func (c *Creator) WithLogger(log *Channel) *Creator {
	c.log = log
	return c
}

// WithClock replaces the wall clock used to stamp ranks.
func (c *Creator) WithClock(now func() time.Time) *Creator {
	c.now = now
	return c
}

// CreateOne fetches one random fact, ranks it at the current Unix second and
// saves it. Remote errors and persistence failures are returned unchanged.
func (c *Creator) CreateOne(ctx context.Context) (*Fact, error) {
	if c.source == nil {
		return nil, ErrOffline
	}

	factURL, err := url.JoinPath(c.baseURL, RandomFactPath)
	if err != nil {
		return nil, fmt.Errorf("build fact url: %w", err)
	}

	payload, err := c.source.FetchOne(ctx, factURL)
	if err != nil {
		c.log.Error(err, "fetch random fact")
		return nil, err
	}

	fact := newFact(*payload, c.now().Unix())
	if err := c.store.Save(ctx, []Fact{fact}); err != nil {
		c.log.Error(err, "persist random fact")
		return nil, err
	}

	c.log.Info("created fact %s", fact.ID)
	return &fact, nil
}
