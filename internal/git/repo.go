// Package git locates the repository around a file so commands can run from
// its root.
package git

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/alexander-akhmetov/shellfilter/internal/debug"
)

// ErrNotRepo is returned when dir is not inside a git repository.
var ErrNotRepo = errors.New("not a git repository")

// Repo is an opened repository.
type Repo struct {
	repo *git.Repository
	root string
}

// Open finds the repository containing dir, walking up parent directories.
func Open(dir string) (*Repo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	r, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open %s: %w", abs, ErrNotRepo)
	}
	if err != nil {
		return nil, fmt.Errorf("open git repo at %s: %w", abs, err)
	}

	wt, err := r.Worktree()
	if err != nil {
		return nil, fmt.Errorf("get worktree: %w", err)
	}
	return &Repo{repo: r, root: wt.Filesystem.Root()}, nil
}

// Root returns the worktree root directory.
func (r *Repo) Root() string {
	return r.root
}

// CurrentBranch returns the short name of the checked out branch. A detached
// HEAD yields the abbreviated commit hash; a repository without commits yields
// the branch HEAD points at.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		ref, rerr := r.repo.Storer.Reference(plumbing.HEAD)
		if rerr != nil {
			return "", fmt.Errorf("read HEAD: %w", rerr)
		}
		return ref.Target().Short(), nil
	}
	if err != nil {
		return "", fmt.Errorf("get HEAD: %w", err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return head.Hash().String()[:7], nil
}

// RootFor returns the repository root containing dir, or dir itself when it
// is not inside a repository.
func RootFor(dir string) string {
	r, err := Open(dir)
	if err != nil {
		debug.Logf("[git] no repository for %s: %v", dir, err)
		return dir
	}
	return r.Root()
}

// IsInsideRepo checks if the given directory is inside a git repository,
// walking up parent directories to find a .git folder.
func IsInsideRepo(dir string) bool {
	_, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	return err == nil
}
