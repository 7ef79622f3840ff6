package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewPageDocument_JSONShape(t *testing.T) {
	day := time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)
	doc := NewPageDocument("Alpha.txt", "hello world", day)

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"wiki_page":"Alpha.txt","content":"hello world","date_created":"2024-01-01",
		"upvotes":0,"who_upvoted":[],"downvotes":0,"who_downvoted":[],"comments":[]
	}`, string(b))
}

func TestComment_SingleKeyObject(t *testing.T) {
	doc := NewPageDocument("Alpha.txt", "", time.Now())
	doc.Comments = append(doc.Comments, Comment{Author: "bob", Text: "nice page"}, Comment{Author: "carol", Text: "agreed"})

	b, err := json.Marshal(doc.Comments)
	require.NoError(t, err)
	require.JSONEq(t, `[{"bob":"nice page"},{"carol":"agreed"}]`, string(b))

	var back []Comment
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, doc.Comments, back)

	var bad Comment
	require.ErrorIs(t, json.Unmarshal([]byte(`{"a":"1","b":"2"}`), &bad), ErrInvalidDocument)
	require.ErrorIs(t, json.Unmarshal([]byte(`{}`), &bad), ErrInvalidDocument)
}

func TestPageDocument_LegacyNullVoters(t *testing.T) {
	// early uploads stored who_upvoted/who_downvoted as null
	raw := `{"wiki_page":"Old.txt","content":"x","date_created":"2023-05-02","upvotes":0,"who_upvoted":null,"downvotes":0,"who_downvoted":null,"comments":[]}`
	var doc PageDocument
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	require.NoError(t, doc.Validate())
	doc.Normalize()
	require.Equal(t, []string{}, doc.WhoUpvoted)
	require.Equal(t, []string{}, doc.WhoDownvoted)
	require.Equal(t, "2023", doc.Year())
}

func TestPageDocument_NormalizeDropsRepeatedVoters(t *testing.T) {
	doc := NewPageDocument("A.txt", "", time.Now())
	doc.WhoUpvoted = []string{"alice", "bob", "alice"}
	doc.Upvotes = 7
	doc.Normalize()
	require.Equal(t, []string{"alice", "bob"}, doc.WhoUpvoted)
	require.Equal(t, 2, doc.Upvotes)
	require.Equal(t, 0, doc.Downvotes)
}

func TestPageDocument_Validate(t *testing.T) {
	ok := NewPageDocument("A.txt", "", time.Now())
	require.NoError(t, ok.Validate())

	missing := *ok
	missing.WikiPage = ""
	require.ErrorIs(t, missing.Validate(), ErrInvalidDocument)

	badDate := *ok
	badDate.DateCreated = "01/02/2024"
	require.ErrorIs(t, badDate.Validate(), ErrInvalidDocument)

	both := *ok
	both.WhoUpvoted = []string{"alice"}
	both.WhoDownvoted = []string{"alice"}
	require.ErrorIs(t, both.Validate(), ErrInvalidDocument)
}

func TestAccountDocument_NewAndPublic(t *testing.T) {
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	acc := NewAccountDocument("hash", day)
	require.NoError(t, acc.Validate())

	b, err := json.Marshal(acc)
	require.NoError(t, err)
	require.JSONEq(t, `{"hashed_password":"hash","account_creation":"2024-03-09","wikis_uploaded":[],"wiki_history":[],"pfp_filename":null,"about_me":""}`, string(b))

	acc.WikiHistory = append(acc.WikiHistory, "Alpha")
	p := acc.Public("dave")
	require.Equal(t, "dave", p.Username)
	require.Equal(t, []string{"Alpha"}, p.WikiHistory)
	pb, err := json.Marshal(p)
	require.NoError(t, err)
	require.NotContains(t, string(pb), "hashed_password")

	acc.HashedPassword = ""
	require.ErrorIs(t, acc.Validate(), ErrInvalidDocument)
}

func TestActor(t *testing.T) {
	require.False(t, Anonymous().IsAuthenticated())
	require.Equal(t, "anonymous", Anonymous().String())
	a := Authenticated("alice")
	require.True(t, a.IsAuthenticated())
	require.Equal(t, "alice", a.Username())
	require.False(t, Authenticated("").IsAuthenticated())
}
