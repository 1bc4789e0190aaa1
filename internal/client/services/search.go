package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/keepsearch/internal/client/models"
	"github.com/dmitrijs2005/keepsearch/internal/common"
	"github.com/dmitrijs2005/keepsearch/internal/keepassxc"
	"github.com/dmitrijs2005/keepsearch/internal/logging"
)

// DefaultMaxResults bounds the number of entries returned by Search.
const DefaultMaxResults = 10

// sampleLimit caps the oracle output logged when it cannot be parsed.
const sampleLimit = 512

// Runner executes an oracle command with the session credential.
// *session.Manager implements it.
type Runner interface {
	Run(ctx context.Context, cmd keepassxc.Command) (keepassxc.RawOutput, error)
}

// SearchResult is one page of matches. Total counts every match, including
// the ones cut off by the result limit.
type SearchResult struct {
	Entries []models.Entry
	Total   int
}

// More returns how many matches were left out.
func (r SearchResult) More() int {
	return r.Total - len(r.Entries)
}

type SearchService interface {
	Search(ctx context.Context, query string) (SearchResult, error)
	GetEntryDetail(ctx context.Context, path string) (models.Entry, error)
}

type searchService struct {
	runner     Runner
	maxResults int
	logger     logging.Logger
}

// NewSearchService returns a SearchService. maxResults <= 0 selects
// DefaultMaxResults.
func NewSearchService(runner Runner, maxResults int, logger logging.Logger) SearchService {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &searchService{runner: runner, maxResults: maxResults, logger: logger}
}

// Search lists entries whose title matches query. An empty query lists every
// entry in database order. Listing rows carry title and path only; use
// GetEntryDetail for the fields.
func (s *searchService) Search(ctx context.Context, query string) (SearchResult, error) {
	query = strings.TrimSpace(query)

	var entries []models.Entry
	if query == "" {
		out, err := s.runner.Run(ctx, keepassxc.ListAllCommand())
		if err != nil {
			return SearchResult{}, fmt.Errorf("list entries: %w", err)
		}
		entries = s.toEntries(ctx, out, keepassxc.ParseListing(out.Stdout))
	} else {
		out, err := s.runner.Run(ctx, keepassxc.SearchCommand(query))
		if errors.Is(err, keepassxc.ErrNoResults) {
			return SearchResult{Entries: []models.Entry{}}, nil
		}
		if err != nil {
			return SearchResult{}, fmt.Errorf("search entries: %w", err)
		}
		entries = Rank(query, s.toEntries(ctx, out, keepassxc.ParseSearchList(out.Stdout)))
	}

	res := SearchResult{Entries: entries, Total: len(entries)}
	if len(res.Entries) > s.maxResults {
		res.Entries = res.Entries[:s.maxResults]
	}
	return res, nil
}

func (s *searchService) toEntries(ctx context.Context, out keepassxc.RawOutput, paths []string) []models.Entry {
	if len(paths) == 0 && strings.TrimSpace(out.Stdout) != "" {
		s.logger.Warn(ctx, "unrecognised listing output, treating as no results",
			"error", common.ErrParse,
			"sample", keepassxc.RedactSample(out.Stdout, sampleLimit),
		)
	}
	entries := make([]models.Entry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, models.EntryFromPath(p))
	}
	return entries
}

// GetEntryDetail fetches every field of the entry at path.
func (s *searchService) GetEntryDetail(ctx context.Context, path string) (models.Entry, error) {
	if strings.TrimSpace(path) == "" {
		return models.Entry{}, fmt.Errorf("%w: empty entry path", keepassxc.ErrEntryNotFound)
	}

	out, err := s.runner.Run(ctx, keepassxc.ShowCommand(path))
	if err != nil {
		return models.Entry{}, fmt.Errorf("show entry: %w", err)
	}

	entries := keepassxc.ParseEntries(out.Stdout)
	if len(entries) == 0 {
		s.logger.Warn(ctx, "unrecognised entry output",
			"entry", path,
			"sample", keepassxc.RedactSample(out.Stdout, sampleLimit),
		)
		return models.Entry{}, fmt.Errorf("show entry %s: %w", path, common.ErrParse)
	}
	if len(entries) > 1 {
		s.logger.Debug(ctx, "show returned several records, using the first", "entry", path, "count", len(entries))
	}

	e := entries[0]
	listed := models.EntryFromPath(path)
	e.Path = listed.Path
	if e.Title == "" {
		e.Title = listed.Title
	}
	return e, nil
}

// Rank orders entries for query by title, case-insensitively: titles starting
// with query first, then titles containing it. Other entries are dropped.
// Ties keep the input order.
func Rank(query string, entries []models.Entry) []models.Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return entries
	}

	type ranked struct {
		entry models.Entry
		rank  int
	}
	matches := make([]ranked, 0, len(entries))
	for _, e := range entries {
		title := strings.ToLower(e.Title)
		switch {
		case strings.HasPrefix(title, q):
			matches = append(matches, ranked{e, 0})
		case strings.Contains(title, q):
			matches = append(matches, ranked{e, 1})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].rank < matches[j].rank
	})

	res := make([]models.Entry, len(matches))
	for i, m := range matches {
		res[i] = m.entry
	}
	return res
}
