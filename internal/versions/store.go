// Package versions keeps the full revision history of every prompt in a
// single git repository. Each prompt lives at prompts/<id>.md; every save is
// a commit, rollback writes old content as a new commit, and deletion
// removes the working file while the history stays readable.
package versions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

const (
	promptsDir     = "prompts"
	readmeFile     = "README.md"
	bootstrapMsg   = "Initial commit: Initialize prompts repository"
	trailerKey     = "Prompt-Id: "
	readmeContents = "# Prompts Repository\n\nThis repository stores versioned prompt templates.\nEach prompt is stored as prompts/<id>.md.\n"
)

// Store is a git-backed prompt version store. It is safe for concurrent use.
type Store struct {
	root   string
	cfg    Config
	logger *slog.Logger

	// repoMu guards every go-git operation (index, commit, object reads).
	repoMu sync.Mutex
	repo   *git.Repository

	prompts *keyedLocks

	// commitTree records the staged index. Callers hold repoMu.
	commitTree func(*git.Worktree, string, *git.CommitOptions) (plumbing.Hash, error)
}

// New opens the repository at cfg.Root, initializing and bootstrapping it
// when absent. Opening an existing repository leaves its history untouched.
func New(cfg *Config, logger *slog.Logger) (*Store, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve root: %w", ErrIO, err)
	}

	s := &Store{
		root:       root,
		cfg:        *cfg,
		logger:     logger.With("system", "versions"),
		prompts:    newKeyedLocks(),
		commitTree: (*git.Worktree).Commit,
	}

	if err := s.bootstrap(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) bootstrap() error {
	if err := os.MkdirAll(filepath.Join(s.root, promptsDir), 0o755); err != nil {
		return fmt.Errorf("%w: create prompts directory: %w", ErrIO, err)
	}

	repo, err := git.PlainOpen(s.root)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		s.logger.Info("initializing prompts repository", "root", s.root)
		repo, err = git.PlainInit(s.root, false)
	}
	if err != nil {
		return fmt.Errorf("%w: open repository: %w", ErrBackend, err)
	}
	s.repo = repo

	if err := s.configureEncoding(); err != nil {
		return err
	}

	_, err = repo.Head()
	if err == nil {
		return nil
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("%w: resolve head: %w", ErrBackend, err)
	}

	if err := writeAtomic(filepath.Join(s.root, readmeFile), readmeContents); err != nil {
		return fmt.Errorf("%w: write readme: %w", ErrIO, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("%w: open worktree: %w", ErrBackend, err)
	}
	if _, err := wt.Add(readmeFile); err != nil {
		return fmt.Errorf("%w: stage readme: %w", ErrBackend, err)
	}

	sig := s.cfg.System().resolve(s.cfg.AuthorDomain, time.Now())
	hash, err := wt.Commit(bootstrapMsg, &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return fmt.Errorf("%w: bootstrap commit: %w", ErrBackend, err)
	}

	s.logger.Info("prompts repository bootstrapped", "commit", hash.String())
	return nil
}

func (s *Store) configureEncoding() error {
	cfg, err := s.repo.Config()
	if err != nil {
		return fmt.Errorf("%w: read repository config: %w", ErrBackend, err)
	}

	cfg.Raw.Section("i18n").
		SetOption("commitEncoding", "utf-8").
		SetOption("logOutputEncoding", "utf-8")

	if err := s.repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("%w: write repository config: %w", ErrBackend, err)
	}
	return nil
}

// Save writes content as the working copy of prompt id and commits it,
// returning the full commit hash. Saving unchanged content still appends
// a revision.
func (s *Store) Save(ctx context.Context, id int64, content, message string, author Signature) (string, error) {
	rel, abs, err := s.paths(id)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	unlock := s.prompts.Lock(id)
	defer unlock()

	return s.save(ctx, id, rel, abs, content, message, author)
}

func (s *Store) save(ctx context.Context, id int64, rel, abs, content, message string, author Signature) (string, error) {
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("%w: create prompts directory: %w", ErrIO, err)
	}

	previous, existed, err := readWorking(abs)
	if err != nil {
		return "", err
	}

	if err := writeAtomic(abs, content); err != nil {
		return "", fmt.Errorf("%w: write prompt %d: %w", ErrIO, id, err)
	}

	hash, err := s.commit(rel, id, message, author, func(wt *git.Worktree) error {
		return stage(wt, rel)
	})
	if err != nil {
		s.restore(rel, abs, previous, existed)
		return "", err
	}

	s.logger.InfoContext(ctx, "prompt saved", "prompt_id", id, "commit", hash)
	return hash, nil
}

// Read returns the content of prompt id. An empty revision reads the
// working copy; otherwise the content recorded at that revision.
func (s *Store) Read(ctx context.Context, id int64, revision string) (string, error) {
	rel, abs, err := s.paths(id)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content, ok, err := s.contentAt(id, rel, abs, revision)
	if err != nil {
		return "", err
	}
	if !ok {
		if revision == "" {
			return "", fmt.Errorf("%w: prompt %d has no working copy", ErrNotFound, id)
		}
		return "", fmt.Errorf("%w: prompt %d absent at %s", ErrNotFound, id, revision)
	}
	return content, nil
}

// contentAt reads prompt id from the working copy (empty revision) or from
// the given revision. Unknown revisions are errors; a prompt absent from a
// known revision reports ok=false.
func (s *Store) contentAt(id int64, rel, abs, revision string) (string, bool, error) {
	if revision == "" {
		unlock := s.prompts.RLock(id)
		defer unlock()
		return readWorking(abs)
	}

	s.repoMu.Lock()
	defer s.repoMu.Unlock()

	commit, err := s.resolve(revision)
	if err != nil {
		return "", false, err
	}
	return fileAt(commit, rel)
}

// History returns up to maxCount revisions of prompt id, newest first.
// A maxCount of zero or less applies the configured history limit. A prompt
// without history yields an empty slice.
func (s *Store) History(ctx context.Context, id int64, maxCount int) ([]Revision, error) {
	rel, _, err := s.paths(id)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxCount <= 0 {
		maxCount = s.cfg.HistoryLimit
	}

	s.repoMu.Lock()
	defer s.repoMu.Unlock()

	head, err := s.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return []Revision{}, nil
		}
		return nil, fmt.Errorf("%w: resolve head: %w", ErrBackend, err)
	}

	iter, err := s.repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("%w: log: %w", ErrBackend, err)
	}
	defer iter.Close()

	revisions := make([]Revision, 0)
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		touched, err := touches(c, rel, id)
		if err != nil {
			return err
		}
		if !touched {
			return nil
		}

		revisions = append(revisions, newRevision(c))
		if len(revisions) >= maxCount {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: walk history: %w", ErrBackend, err)
	}

	return revisions, nil
}

// Current returns the newest revision of prompt id.
func (s *Store) Current(ctx context.Context, id int64) (*Revision, error) {
	revisions, err := s.History(ctx, id, 1)
	if err != nil {
		return nil, err
	}
	if len(revisions) == 0 {
		return nil, fmt.Errorf("%w: prompt %d has no revisions", ErrNotFound, id)
	}
	return &revisions[0], nil
}

// Rollback restores the content prompt id had at target by saving it as a
// new revision. History is never rewritten.
func (s *Store) Rollback(ctx context.Context, id int64, target, message string, author Signature) (string, error) {
	if target == "" {
		return "", fmt.Errorf("%w: rollback target required", ErrNotFound)
	}

	content, err := s.Read(ctx, id, target)
	if err != nil {
		return "", err
	}

	if message == "" {
		message = fmt.Sprintf("Rollback to %s", shorten(target))
	}

	hash, err := s.Save(ctx, id, content, message, author)
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "prompt rolled back", "prompt_id", id, "target", target, "commit", hash)
	return hash, nil
}

// Delete removes the working copy of prompt id and commits the removal.
// It returns "" when there was no working copy to remove.
func (s *Store) Delete(ctx context.Context, id int64, message string, author Signature) (string, error) {
	rel, abs, err := s.paths(id)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	unlock := s.prompts.Lock(id)
	defer unlock()

	previous, existed, err := readWorking(abs)
	if err != nil {
		return "", err
	}
	if !existed {
		return "", nil
	}

	if message == "" {
		message = fmt.Sprintf("Delete prompt %d", id)
	}

	hash, err := s.commit(rel, id, message, author, func(wt *git.Worktree) error {
		_, err := wt.Remove(rel)
		return err
	})
	if err != nil {
		s.restore(rel, abs, previous, true)
		return "", err
	}

	s.logger.InfoContext(ctx, "prompt deleted", "prompt_id", id, "commit", hash)
	return hash, nil
}

// Exists reports whether prompt id has a working copy.
func (s *Store) Exists(ctx context.Context, id int64) bool {
	_, abs, err := s.paths(id)
	if err != nil {
		return false
	}

	unlock := s.prompts.RLock(id)
	defer unlock()

	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

// commit stages a change with apply and commits it under the repository lock.
func (s *Store) commit(rel string, id int64, message string, author Signature, apply func(*git.Worktree) error) (string, error) {
	s.repoMu.Lock()
	defer s.repoMu.Unlock()

	wt, err := s.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("%w: open worktree: %w", ErrBackend, err)
	}

	if err := apply(wt); err != nil {
		return "", fmt.Errorf("%w: stage %s: %w", ErrBackend, rel, err)
	}

	sig := author.resolve(s.cfg.AuthorDomain, time.Now())
	hash, err := s.commitTree(wt, withTrailer(message, id), &git.CommitOptions{
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: commit %s: %w", ErrBackend, rel, err)
	}

	return hash.String(), nil
}

// restore puts the working file and index entry back to their state before
// a failed commit.
func (s *Store) restore(rel, abs, previous string, existed bool) {
	s.repoMu.Lock()
	defer s.repoMu.Unlock()

	wt, err := s.repo.Worktree()
	if err != nil {
		s.logger.Error("restore failed", "path", rel, "error", err)
		return
	}

	if existed {
		if err := writeAtomic(abs, previous); err != nil {
			s.logger.Error("restore working copy failed", "path", rel, "error", err)
			return
		}
		if err := stage(wt, rel); err != nil {
			s.logger.Error("restore index failed", "path", rel, "error", err)
		}
		return
	}

	if _, err := wt.Remove(rel); err != nil {
		if rmErr := os.Remove(abs); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Error("restore working copy failed", "path", rel, "error", rmErr)
		}
	}
}

// resolve maps a revision string to its commit. Callers hold repoMu.
func (s *Store) resolve(revision string) (*object.Commit, error) {
	hash, err := s.repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, fmt.Errorf("%w: revision %s: %w", ErrNotFound, revision, err)
	}

	commit, err := s.repo.CommitObject(*hash)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: revision %s", ErrNotFound, revision)
		}
		return nil, fmt.Errorf("%w: load commit %s: %w", ErrBackend, revision, err)
	}

	return commit, nil
}

func (s *Store) paths(id int64) (rel, abs string, err error) {
	if id <= 0 {
		return "", "", fmt.Errorf("%w: %d", ErrInvalidPrompt, id)
	}

	rel = path.Join(promptsDir, strconv.FormatInt(id, 10)+".md")
	abs = filepath.Join(s.root, filepath.FromSlash(rel))

	within, err := filepath.Rel(s.root, abs)
	if err != nil || strings.HasPrefix(within, "..") {
		return "", "", fmt.Errorf("%w: path escapes repository", ErrInvalidPrompt)
	}

	return rel, abs, nil
}

// stage adds rel to the index without scanning the worktree, so
// concurrent writers' temp files are never observed.
func stage(wt *git.Worktree, rel string) error {
	return wt.AddWithOptions(&git.AddOptions{Path: rel, SkipStatus: true})
}

// touches reports whether commit c changed rel relative to its first
// parent, or carries the prompt trailer for id.
func touches(c *object.Commit, rel string, id int64) (bool, error) {
	if _, trailerID := splitTrailer(c.Message); trailerID == id {
		return true, nil
	}

	current, err := blobHash(c, rel)
	if err != nil {
		return false, err
	}

	if c.NumParents() == 0 {
		return current != plumbing.ZeroHash, nil
	}

	parent, err := c.Parent(0)
	if err != nil {
		return false, err
	}

	previous, err := blobHash(parent, rel)
	if err != nil {
		return false, err
	}

	return current != previous, nil
}

func blobHash(c *object.Commit, rel string) (plumbing.Hash, error) {
	f, err := c.File(rel)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return plumbing.ZeroHash, nil
		}
		return plumbing.ZeroHash, err
	}
	return f.Hash, nil
}

// fileAt returns the content of rel at commit c and whether it existed.
func fileAt(c *object.Commit, rel string) (string, bool, error) {
	f, err := c.File(rel)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: read %s: %w", ErrBackend, rel, err)
	}

	content, err := f.Contents()
	if err != nil {
		return "", false, fmt.Errorf("%w: read %s: %w", ErrBackend, rel, err)
	}
	return content, true, nil
}

func readWorking(abs string) (string, bool, error) {
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: read %s: %w", ErrIO, filepath.Base(abs), err)
	}
	return string(data), true, nil
}

// writeAtomic replaces abs with content via a sibling temp file and rename.
func writeAtomic(abs, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(abs), "."+filepath.Base(abs)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}

	if err := os.Rename(name, abs); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

func withTrailer(message string, id int64) string {
	return strings.TrimRight(message, "\n") + "\n\n" + trailerKey + strconv.FormatInt(id, 10) + "\n"
}

// splitTrailer separates the prompt trailer from a commit message. Commits
// without a trailer report id 0.
func splitTrailer(message string) (string, int64) {
	message = strings.TrimRight(message, "\n")

	idx := strings.LastIndex(message, "\n\n"+trailerKey)
	if idx < 0 {
		return message, 0
	}

	id, err := strconv.ParseInt(strings.TrimSpace(message[idx+2+len(trailerKey):]), 10, 64)
	if err != nil {
		return message, 0
	}
	return message[:idx], id
}

func shorten(revision string) string {
	if len(revision) > shortHashLen {
		return revision[:shortHashLen]
	}
	return revision
}
