package remote

import "github.com/hyperengineering/factsync"

// factDTO is a fact as encoded by the feed.
type factDTO struct {
	Fact   string `json:"fact"`
	Length int    `json:"length"`
}

// pageDTO is a response from GET /facts.
// NextPageURL is null on the last page.
type pageDTO struct {
	CurrentPage int       `json:"current_page"`
	Data        []factDTO `json:"data"`
	NextPageURL *string   `json:"next_page_url"`
	PerPage     int       `json:"per_page"`
	Total       int       `json:"total"`
}

func (f factDTO) payload() factsync.FactPayload {
	return factsync.FactPayload{Text: f.Fact, Length: f.Length}
}

func (p pageDTO) page() *factsync.Page {
	items := make([]factsync.FactPayload, len(p.Data))
	for i, d := range p.Data {
		items[i] = d.payload()
	}
	page := &factsync.Page{Items: items}
	if p.NextPageURL != nil {
		page.NextPageURL = *p.NextPageURL
	}
	return page
}
