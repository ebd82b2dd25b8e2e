package search

import "github.com/helixir/article-search-service/internal/domain"

// Session tracks identity keys seen within one search request so that
// the same article is never delivered twice, regardless of whether it
// arrived from the local store or an external source. Sessions are
// not safe for concurrent use; each request owns its own.
type Session struct {
	seen map[string]struct{}
}

// NewSession creates an empty dedup session.
func NewSession() *Session {
	return &Session{seen: make(map[string]struct{})}
}

// Admit records the article's identity key and reports whether it was
// new. A false return means an article with the same key was already
// admitted in this session.
func (s *Session) Admit(a *domain.Article) bool {
	key := domain.IdentityKey(a)
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Seen reports whether the key has already been admitted.
func (s *Session) Seen(key string) bool {
	_, ok := s.seen[key]
	return ok
}

// Len returns the number of distinct keys admitted so far.
func (s *Session) Len() int {
	return len(s.seen)
}
