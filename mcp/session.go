package mcp

import (
	"fmt"
	"strings"
	"sync"
)

// RefSession hands out short session references (F1, F2, ...) for facts
// surfaced to an agent, so later tool calls can name them without the full id.
// The same fact id always maps to the same ref within a session.
type RefSession struct {
	mu      sync.Mutex
	refs    map[string]string // ref -> fact id
	reverse map[string]string // fact id -> ref
	counter int
}

// NewRefSession creates an empty session.
func NewRefSession() *RefSession {
	return &RefSession{
		refs:    make(map[string]string),
		reverse: make(map[string]string),
	}
}

// Track returns the ref for factID, assigning the next one if needed.
func (s *RefSession) Track(factID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ref, ok := s.reverse[factID]; ok {
		return ref
	}

	s.counter++
	ref := fmt.Sprintf("F%d", s.counter)
	s.refs[ref] = factID
	s.reverse[factID] = ref
	return ref
}

// Resolve returns the fact id for ref. Refs are case-insensitive.
func (s *RefSession) Resolve(ref string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.refs[strings.ToUpper(ref)]
	return id, ok
}

// ResolveAll maps each ref to its fact id; values that are not known refs
// pass through unchanged as literal ids.
func (s *RefSession) ResolveAll(refsOrIDs []string) []string {
	ids := make([]string, 0, len(refsOrIDs))
	for _, v := range refsOrIDs {
		if id, ok := s.Resolve(v); ok {
			ids = append(ids, id)
			continue
		}
		ids = append(ids, v)
	}
	return ids
}

// Forget drops the refs of deleted facts. Counters are never reused.
func (s *RefSession) Forget(factIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range factIDs {
		if ref, ok := s.reverse[id]; ok {
			delete(s.refs, ref)
			delete(s.reverse, id)
		}
	}
}

// Len returns the number of tracked facts.
func (s *RefSession) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refs)
}
