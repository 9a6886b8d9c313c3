package bucket

import (
	"context"
	"errors"
	"fmt"
	"path"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/ZebulonRouseFrantzich/zoop/internal/manifest"
)

// MaxHistoryCommits bounds how far back Versioned walks a manifest's history.
const MaxHistoryCommits = 1000

// Remote returns the origin URL of a bucket, or ErrNotAGitRepo.
func (s *Store) Remote(ctx context.Context, bucket string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}

	repo, err := gogit.PlainOpen(s.layout.BucketDir(bucket))
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return "", ErrNotAGitRepo
		}
		return "", fmt.Errorf("open repository: %w", err)
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("read origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("origin remote of %s has no URL", bucket)
	}
	return urls[0], nil
}

// Versioned walks the git history of bucket/<app>.json from HEAD backwards
// and returns the newest revision whose version equals want.
func (s *Store) Versioned(ctx context.Context, bucket, app, want string) (*manifest.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	repo, err := gogit.PlainOpen(s.layout.BucketDir(bucket))
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, ErrNotAGitRepo
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}

	// git paths always use forward slashes
	file := path.Join("bucket", app+".json")
	iter, err := repo.Log(&gogit.LogOptions{FileName: &file})
	if err != nil {
		return nil, fmt.Errorf("read history of %s: %w", file, err)
	}
	defer iter.Close()

	var (
		found   *manifest.Manifest
		visited int
	)
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		visited++
		if visited > MaxHistoryCommits {
			return storer.ErrStop
		}

		f, err := c.File(file)
		if err != nil {
			// removed in this commit
			return nil
		}
		contents, err := f.Contents()
		if err != nil {
			return fmt.Errorf("read %s at %s: %w", file, c.Hash, err)
		}
		m, err := manifest.Parse([]byte(contents), manifest.Source{Name: app, Bucket: bucket})
		if err != nil {
			// historical revisions may predate the current schema
			return nil
		}
		if m.Version == want {
			found = m
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk history of %s: %w", file, err)
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s/%s@%s", ErrVersionNotFound, bucket, app, want)
	}
	return found, nil
}
