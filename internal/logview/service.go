package logview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Fetcher retrieves the raw log text of a job.
type Fetcher interface {
	FetchJobLogs(ctx context.Context, owner, repo string, jobID int64) (string, error)
}

// ContentProvider resolves virtual document URIs to raw log text.
type ContentProvider struct {
	fetcher Fetcher
}

// NewContentProvider returns a provider backed by f.
func NewContentProvider(f Fetcher) *ContentProvider {
	return &ContentProvider{fetcher: f}
}

// Content returns the raw text addressed by uri. Fetch failures are returned
// as-is so callers can tell not-found from auth or rate-limit failures.
func (p *ContentProvider) Content(ctx context.Context, uri string) (string, error) {
	id, err := ParseURI(uri)
	if err != nil {
		return "", err
	}
	return p.Fetch(ctx, id)
}

// Fetch returns the raw text of the job log behind id.
func (p *ContentProvider) Fetch(ctx context.Context, id Identifier) (string, error) {
	if p == nil || p.fetcher == nil {
		return "", errors.New("no log fetcher configured")
	}
	text, err := p.fetcher.FetchJobLogs(ctx, id.Owner, id.Repo, id.JobID)
	if err != nil {
		return "", fmt.Errorf("fetch logs for %s: %w", id.Canonical(), err)
	}
	return text, nil
}

// feed is the incremental parse state for one job log.
type feed struct {
	consumed string
	parser   Parser
}

// Service ties fetching, incremental parsing and caching together. All
// consumers of one job log share a single fetch and parse through the cache.
type Service struct {
	content *ContentProvider
	cache   *Cache
	logger  *slog.Logger

	mu     sync.Mutex
	feeds  map[Identifier]*feed
	closes map[Identifier]uint64
}

// NewService returns a Service fetching through f.
func NewService(f Fetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		content: NewContentProvider(f),
		logger:  logger,
		feeds:   make(map[Identifier]*feed),
		closes:  make(map[Identifier]uint64),
	}
	s.cache = NewCache(s.load)
	return s
}

// Content exposes the underlying content provider.
func (s *Service) Content() *ContentProvider {
	return s.content
}

// Cache exposes the underlying cache.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Info returns the parsed log for id, fetching it on first use.
func (s *Service) Info(ctx context.Context, id Identifier) (*LogInfo, error) {
	return s.cache.Get(ctx, id)
}

// Refresh re-fetches the log for id and returns the updated parse. Text that
// extends what was seen before is parsed incrementally.
func (s *Service) Refresh(ctx context.Context, id Identifier) (*LogInfo, error) {
	s.cache.Invalidate(id)
	return s.cache.Get(ctx, id)
}

// Close forgets everything held for id. Pending loads for it are discarded.
func (s *Service) Close(id Identifier) {
	key := id.Canonical()
	s.cache.Invalidate(key)
	s.mu.Lock()
	delete(s.feeds, key)
	s.closes[key]++
	s.mu.Unlock()
}

// Reveal resolves step inside the log of id.
func (s *Service) Reveal(ctx context.Context, id Identifier, step StepRef) (Location, bool, error) {
	info, err := s.Info(ctx, id)
	if err != nil {
		return Location{}, false, err
	}
	section, ok := Resolve(info, step)
	if !ok {
		return Location{}, false, nil
	}
	return Location{ID: id, Line: section.Start}, true, nil
}

func (s *Service) load(ctx context.Context, id Identifier) (*LogInfo, error) {
	s.mu.Lock()
	closes := s.closes[id]
	s.mu.Unlock()

	text, err := s.content.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closes[id] != closes {
		s.logger.Debug("log closed during fetch, dropping", "job", id.JobID)
		return nil, ErrStale
	}
	f, ok := s.feeds[id]
	if !ok {
		f = &feed{}
		s.feeds[id] = f
	}
	switch {
	case strings.HasPrefix(text, f.consumed):
		_, _ = f.parser.Write([]byte(text[len(f.consumed):]))
	default:
		s.logger.Debug("log rewritten, reparsing", "job", id.JobID, "old_bytes", len(f.consumed), "new_bytes", len(text))
		f.parser.Reset()
		_, _ = f.parser.Write([]byte(text))
	}
	f.consumed = text
	info := f.parser.Info()
	s.logger.Debug("log parsed", "job", id.JobID, "lines", info.LineCount(), "sections", len(info.Sections))
	return info, nil
}
