package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the YYYY-MM-DD layout used for every stored date.
const DateLayout = "2006-01-02"

// ErrInvalidDocument is wrapped by every Validate failure.
var ErrInvalidDocument = errors.New("invalid document")

// PageDocument is the JSON blob stored per wiki page in the info bucket.
type PageDocument struct {
	WikiPage     string    `json:"wiki_page"`
	Content      string    `json:"content"`
	DateCreated  string    `json:"date_created"`
	Upvotes      int       `json:"upvotes"`
	WhoUpvoted   []string  `json:"who_upvoted"`
	Downvotes    int       `json:"downvotes"`
	WhoDownvoted []string  `json:"who_downvoted"`
	Comments     []Comment `json:"comments"`
}

// NewPageDocument returns a fresh page created on the given day.
func NewPageDocument(key, content string, created time.Time) *PageDocument {
	return &PageDocument{
		WikiPage:     key,
		Content:      content,
		DateCreated:  created.Format(DateLayout),
		WhoUpvoted:   []string{},
		WhoDownvoted: []string{},
		Comments:     []Comment{},
	}
}

// Normalize replaces nil collections with empty ones, drops repeated voters
// (first occurrence wins) and re-derives the vote counts from the lists.
func (p *PageDocument) Normalize() {
	p.WhoUpvoted = uniqueVoters(p.WhoUpvoted)
	p.WhoDownvoted = uniqueVoters(p.WhoDownvoted)
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	p.Upvotes = len(p.WhoUpvoted)
	p.Downvotes = len(p.WhoDownvoted)
}

func uniqueVoters(list []string) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, v := range list {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func (p *PageDocument) Validate() error {
	if p.WikiPage == "" {
		return fmt.Errorf("%w: wiki_page missing", ErrInvalidDocument)
	}
	if _, err := time.Parse(DateLayout, p.DateCreated); err != nil {
		return fmt.Errorf("%w: date_created %q", ErrInvalidDocument, p.DateCreated)
	}
	if p.Upvotes < 0 || p.Downvotes < 0 {
		return fmt.Errorf("%w: negative vote count", ErrInvalidDocument)
	}
	up := make(map[string]struct{}, len(p.WhoUpvoted))
	for _, u := range p.WhoUpvoted {
		up[u] = struct{}{}
	}
	for _, u := range p.WhoDownvoted {
		if _, ok := up[u]; ok {
			return fmt.Errorf("%w: %q both upvoted and downvoted", ErrInvalidDocument, u)
		}
	}
	return nil
}

// Year returns the year component of DateCreated.
func (p *PageDocument) Year() string {
	if len(p.DateCreated) < 4 {
		return ""
	}
	return p.DateCreated[:4]
}

// Comment is one entry of a page's comment thread, stored as {author: text}.
type Comment struct {
	Author string
	Text   string
}

func (c Comment) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{c.Author: c.Text})
}

func (c *Comment) UnmarshalJSON(b []byte) error {
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("%w: comment must have exactly one author, got %d", ErrInvalidDocument, len(m))
	}
	for k, v := range m {
		c.Author, c.Text = k, v
	}
	return nil
}
