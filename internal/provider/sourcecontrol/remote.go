package sourcecontrol

import (
	"context"
	"fmt"
	"strings"

	"code.gitea.io/sdk/gitea"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// TreeEntry is one file a remote's tree listing surfaced.
type TreeEntry struct {
	Path string
	Size int64
}

// Remote abstracts the two source-control backends this provider
// federates: list every file in a branch, fetch one file's raw bytes, and
// report the raw-content URL a fetched file lives at (used as SourceURI).
type Remote interface {
	ListTree(ctx context.Context) ([]TreeEntry, error)
	GetRawFile(ctx context.Context, path string) ([]byte, error)
	RawURL(path string) string
}

// NewRemote builds the Remote for spec.Kind ("gitea" or "gitlab").
func NewRemote(spec RepoSpec) (Remote, error) {
	switch spec.Kind {
	case "gitea":
		return newGiteaRemote(spec)
	case "gitlab":
		return newGitlabRemote(spec)
	default:
		return nil, fmt.Errorf("sourcecontrol: unknown remote kind %q", spec.Kind)
	}
}

// giteaRemote walks a repository tree via repeated ListContents calls
// (Gitea's content API is directory-at-a-time, not a single recursive
// tree endpoint), grounded on forge/gitea.go's gitea.NewClient usage.
type giteaRemote struct {
	client *gitea.Client
	spec   RepoSpec
}

func newGiteaRemote(spec RepoSpec) (*giteaRemote, error) {
	opts := []gitea.ClientOption{}
	if spec.Token != "" {
		opts = append(opts, gitea.SetToken(spec.Token))
	}
	client, err := gitea.NewClient(spec.BaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("sourcecontrol: gitea client: %w", err)
	}
	return &giteaRemote{client: client, spec: spec}, nil
}

func (r *giteaRemote) ListTree(ctx context.Context) ([]TreeEntry, error) {
	var entries []TreeEntry
	var walk func(dir string) error
	walk = func(dir string) error {
		contents, _, err := r.client.ListContents(r.spec.Owner, r.spec.Repo, r.spec.Branch, dir)
		if err != nil {
			return err
		}
		for _, c := range contents {
			if c.Type == "dir" {
				if err := walk(c.Path); err != nil {
					return err
				}
				continue
			}
			entries = append(entries, TreeEntry{Path: c.Path, Size: int64(c.Size)})
		}
		return nil
	}
	if err := walk(""); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *giteaRemote) GetRawFile(ctx context.Context, path string) ([]byte, error) {
	reader, _, err := r.client.GetFile(r.spec.Owner, r.spec.Repo, r.spec.Branch, path)
	if err != nil {
		return nil, err
	}
	return reader, nil
}

func (r *giteaRemote) RawURL(path string) string {
	return fmt.Sprintf("%s/%s/%s/raw/branch/%s/%s", strings.TrimSuffix(r.spec.BaseURL, "/"), r.spec.Owner, r.spec.Repo, r.spec.Branch, path)
}

// gitlabRemote walks a repository tree via GitLab's recursive tree
// listing and fetches files through RepositoryFiles.GetRawFile, grounded
// on forge/gitlab.go's gitlab.NewClient(token, WithBaseURL(...)) usage.
type gitlabRemote struct {
	client *gitlab.Client
	spec   RepoSpec
	pid    string
}

func newGitlabRemote(spec RepoSpec) (*gitlabRemote, error) {
	client, err := gitlab.NewClient(spec.Token, gitlab.WithBaseURL(strings.TrimSuffix(spec.BaseURL, "/")+"/api/v4"))
	if err != nil {
		return nil, fmt.Errorf("sourcecontrol: gitlab client: %w", err)
	}
	return &gitlabRemote{client: client, spec: spec, pid: spec.Owner + "/" + spec.Repo}, nil
}

func (r *gitlabRemote) ListTree(ctx context.Context) ([]TreeEntry, error) {
	var entries []TreeEntry
	page := 1
	for {
		nodes, resp, err := r.client.Repositories.ListTree(r.pid, &gitlab.ListTreeOptions{
			Ref:       gitlab.Ptr(r.spec.Branch),
			Recursive: gitlab.Ptr(true),
			ListOptions: gitlab.ListOptions{Page: page, PerPage: 100},
		}, gitlab.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			if n.Type != "blob" {
				continue
			}
			entries = append(entries, TreeEntry{Path: n.Path})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}
	return entries, nil
}

func (r *gitlabRemote) GetRawFile(ctx context.Context, path string) ([]byte, error) {
	data, _, err := r.client.RepositoryFiles.GetRawFile(r.pid, path, &gitlab.GetRawFileOptions{Ref: gitlab.Ptr(r.spec.Branch)}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *gitlabRemote) RawURL(path string) string {
	return fmt.Sprintf("%s/%s/-/raw/%s/%s", strings.TrimSuffix(r.spec.BaseURL, "/"), r.pid, r.spec.Branch, path)
}
