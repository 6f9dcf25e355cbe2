package factsync

import "time"

// Fact is a single cached record of the remote fact feed.
type Fact struct {
	ID           string `json:"id"`
	Text         string `json:"fact"`
	Length       int    `json:"length"`
	OrderingRank int64  `json:"ordering_rank"`
}

// FactPayload is a fact as delivered by the remote feed, before it is
// assigned an id and an ordering rank.
type FactPayload struct {
	Text   string `json:"fact"`
	Length int    `json:"length"`
}

// Page is one page of the remote facts collection.
// NextPageURL is empty when the server reports no more pages.
type Page struct {
	Items       []FactPayload
	NextPageURL string
}

// StoreStats contains statistics about the local store.
type StoreStats struct {
	FactCount     int    `json:"fact_count"`
	NewestRank    int64  `json:"newest_rank,omitempty"`
	Subscribers   int    `json:"subscribers"`
	SchemaVersion string `json:"schema_version"`
}

// ClientStats combines store statistics with pagination state.
type ClientStats struct {
	Store   StoreStats    `json:"store"`
	Cursor  CursorState   `json:"cursor"`
	Offline bool          `json:"offline"`
	Uptime  time.Duration `json:"uptime"`
}

// Paging defaults.
const (
	// DefaultPageSize is the remote page size used when none is given.
	DefaultPageSize = 20

	// DefaultReadLimit bounds reads and subscriptions that set no limit.
	DefaultReadLimit = 20
)

// Remote endpoint paths relative to the configured base URL.
const (
	FactsPath      = "facts"
	RandomFactPath = "fact"
)
