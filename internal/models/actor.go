package models

// Actor is the identity on whose behalf an engine operation runs.
// The zero value is anonymous.
type Actor struct {
	username string
}

func Anonymous() Actor { return Actor{} }

func Authenticated(username string) Actor { return Actor{username: username} }

func (a Actor) IsAuthenticated() bool { return a.username != "" }

// Username is empty for anonymous actors.
func (a Actor) Username() string { return a.username }

func (a Actor) String() string {
	if !a.IsAuthenticated() {
		return "anonymous"
	}
	return a.username
}
