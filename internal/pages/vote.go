package pages

import "github.com/wikifun/wikifun/backend/go-services/internal/models"

// Direction is the incoming vote.
type Direction string

const (
	Upvote   Direction = "upvote"
	Downvote Direction = "downvote"
)

func (d Direction) Valid() bool { return d == Upvote || d == Downvote }

// Transition labels what a vote did to the voter's state.
type Transition string

const (
	Added    Transition = "added"
	Removed  Transition = "removed"
	Switched Transition = "switched"
)

// applyVote moves voter through NONE / UPVOTED / DOWNVOTED.
// Repeating a vote withdraws it; the opposite vote switches sides.
func applyVote(doc *models.PageDocument, dir Direction, voter string) Transition {
	same, other := &doc.WhoUpvoted, &doc.WhoDownvoted
	if dir == Downvote {
		same, other = other, same
	}

	tr := Added
	if i := indexOf(*same, voter); i >= 0 {
		*same = remove(*same, i)
		tr = Removed
	} else {
		if j := indexOf(*other, voter); j >= 0 {
			*other = remove(*other, j)
			tr = Switched
		}
		*same = append(*same, voter)
	}
	doc.Normalize()
	return tr
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

func remove(list []string, i int) []string {
	return append(list[:i], list[i+1:]...)
}
