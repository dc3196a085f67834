package versions

import (
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// FailCommits makes every subsequent commit on s return err until the
// returned func is called.
func FailCommits(s *Store, err error) func() {
	s.repoMu.Lock()
	defer s.repoMu.Unlock()

	prev := s.commitTree
	s.commitTree = func(*git.Worktree, string, *git.CommitOptions) (plumbing.Hash, error) {
		return plumbing.ZeroHash, err
	}

	return func() {
		s.repoMu.Lock()
		defer s.repoMu.Unlock()
		s.commitTree = prev
	}
}
