// Package query answers title, content, sort and year queries by scanning
// every page; there is no persistent index.
package query

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/wikifun/wikifun/backend/go-services/internal/models"
	"github.com/wikifun/wikifun/backend/go-services/internal/pages"
	"github.com/wikifun/wikifun/backend/go-services/pkg/logger"
	"github.com/wikifun/wikifun/backend/go-services/pkg/metrics"
)

// Order selects the SortPages ordering.
type Order string

const (
	AscendingAlpha  Order = "ascending_alpha"
	DescendingAlpha Order = "descending_alpha"
	MostRecentFirst Order = "most_recent_first"
)

// PageSource is the part of the page engine a scan needs.
type PageSource interface {
	ListPageNames(ctx context.Context) ([]pages.Summary, error)
	FetchPage(ctx context.Context, name string) (*models.PageDocument, error)
}

// Entry is one page of the ephemeral index, in listing order.
type Entry struct {
	Name        string
	Content     string
	DateCreated string
}

type Engine struct {
	src PageSource
}

func NewEngine(src PageSource) *Engine {
	return &Engine{src: src}
}

// TitleContentIndex fetches every listed page. Pages that cannot be
// fetched as valid documents are left out.
func (e *Engine) TitleContentIndex(ctx context.Context) ([]Entry, error) {
	return e.scan(ctx, "index")
}

func (e *Engine) SearchByTitle(ctx context.Context, q string) ([]string, error) {
	return e.filter(ctx, "title", func(en Entry) bool { return containsFold(en.Name, q) })
}

func (e *Engine) SearchByContent(ctx context.Context, q string) ([]string, error) {
	return e.filter(ctx, "content", func(en Entry) bool { return containsFold(en.Content, q) })
}

// FilterByYear matches the year component of date_created as a string.
func (e *Engine) FilterByYear(ctx context.Context, year string) ([]string, error) {
	return e.filter(ctx, "year", func(en Entry) bool {
		return len(en.DateCreated) >= 4 && en.DateCreated[:4] == year
	})
}

// SortPages returns page names in the given order. An unknown order gives
// an empty result, not an error.
func (e *Engine) SortPages(ctx context.Context, order Order) ([]string, error) {
	var less func(a, b Entry) bool
	switch order {
	case AscendingAlpha:
		less = func(a, b Entry) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case DescendingAlpha:
		less = func(a, b Entry) bool { return strings.ToLower(a.Name) > strings.ToLower(b.Name) }
	case MostRecentFirst:
		less = func(a, b Entry) bool { return a.DateCreated > b.DateCreated }
	default:
		return []string{}, nil
	}
	entries, err := e.scan(ctx, "sort")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool { return less(entries[i], entries[j]) })
	return names(entries), nil
}

func (e *Engine) filter(ctx context.Context, query string, keep func(Entry) bool) ([]string, error) {
	entries, err := e.scan(ctx, query)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, en := range entries {
		if keep(en) {
			out = append(out, en.Name)
		}
	}
	return out, nil
}

func (e *Engine) scan(ctx context.Context, query string) ([]Entry, error) {
	list, err := e.src.ListPageNames(ctx)
	if err != nil {
		return nil, err
	}
	metrics.QueryScanPages.WithLabelValues(query).Observe(float64(len(list)))
	out := make([]Entry, 0, len(list))
	for _, s := range list {
		doc, err := e.src.FetchPage(ctx, s.Name)
		if err != nil {
			if errors.Is(err, pages.ErrPageNotFound) || errors.Is(err, pages.ErrMalformedPage) {
				logger.Warnf("query: skipping %s: %v", s.Name, err)
				continue
			}
			return nil, err
		}
		out = append(out, Entry{Name: s.Name, Content: doc.Content, DateCreated: doc.DateCreated})
	}
	return out, nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, en := range entries {
		out[i] = en.Name
	}
	return out
}
