package versions

import (
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing/object"
)

const shortHashLen = 7

// Revision is one immutable commit in a prompt's history.
type Revision struct {
	Hash        string    `json:"commit_hash"`
	ShortHash   string    `json:"short_hash"`
	Author      string    `json:"author"`
	AuthorEmail string    `json:"author_email"`
	Date        time.Time `json:"date"`
	Timestamp   int64     `json:"timestamp"`
	Message     string    `json:"message"`
}

// Signature identifies the author of a change. An empty Email is derived
// from Name and the configured author domain.
type Signature struct {
	Name  string
	Email string
}

func newRevision(c *object.Commit) Revision {
	hash := c.Hash.String()
	when := c.Committer.When.UTC()
	message, _ := splitTrailer(c.Message)

	return Revision{
		Hash:        hash,
		ShortHash:   hash[:shortHashLen],
		Author:      c.Author.Name,
		AuthorEmail: c.Author.Email,
		Date:        when,
		Timestamp:   when.Unix(),
		Message:     message,
	}
}

func (s Signature) resolve(domain string, when time.Time) *object.Signature {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		name = "unknown"
	}

	email := strings.TrimSpace(s.Email)
	if email == "" {
		email = name + "@" + domain
	}

	return &object.Signature{Name: name, Email: email, When: when}
}
