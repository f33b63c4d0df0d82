package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"

	"github.com/agentstation/codeinventory/internal/transport"
	"github.com/agentstation/codeinventory/pkg/constants"
)

const apiVersion = "2022-11-28"

// WithGitHubHeaders sets the media type and API version headers.
func WithGitHubHeaders() transport.Option {
	return func(c *transport.Client) {
		transport.WithHeader("Accept", "application/vnd.github+json")(c)
		transport.WithHeader("X-GitHub-Api-Version", apiVersion)(c)
	}
}

// Client is a minimal GitHub REST client.
type Client struct {
	http    *transport.Client
	baseURL string
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, auth transport.Authenticator, opts ...transport.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	opts = append([]transport.Option{WithGitHubHeaders()}, opts...)
	return &Client{
		http:    transport.New(HostName, auth, opts...),
		baseURL: baseURL,
	}
}

// Repository is the subset of the GitHub repository object that is collected.
type Repository struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	FullName      string   `json:"full_name"`
	HTMLURL       string   `json:"html_url"`
	Private       bool     `json:"private"`
	Visibility    string   `json:"visibility"`
	Description   string   `json:"description"`
	Homepage      string   `json:"homepage"`
	Language      string   `json:"language"`
	Topics        []string `json:"topics"`
	DefaultBranch string   `json:"default_branch"`
	Archived      bool     `json:"archived"`
	Fork          bool     `json:"fork"`
	Size          int      `json:"size"`
	CreatedAt     string   `json:"created_at"`
	PushedAt      string   `json:"pushed_at"`
	License       *struct {
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
	Parent *struct {
		HTMLURL string `json:"html_url"`
	} `json:"parent"`
}

type tag struct {
	Name string `json:"name"`
}

// ListRepositories lists every repository of org, following pagination.
func (c *Client) ListRepositories(ctx context.Context, org string) ([]Repository, error) {
	u := fmt.Sprintf("%s/orgs/%s/repos?per_page=%d&type=all", c.baseURL, url.PathEscape(org), constants.DefaultPageSize)
	return getAll[Repository](ctx, c.http, u)
}

// Repository fetches a single repository, which carries fork parents.
func (c *Client) Repository(ctx context.Context, owner, name string) (*Repository, error) {
	resp, err := c.http.Get(ctx, c.repoURL(owner, name, ""))
	if err != nil {
		return nil, err
	}
	var repo Repository
	if err := transport.DecodeResponse(resp, HostName, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// Languages returns the repository languages, largest first.
func (c *Client) Languages(ctx context.Context, owner, name string) ([]string, error) {
	resp, err := c.http.Get(ctx, c.repoURL(owner, name, "/languages"))
	if err != nil {
		return nil, err
	}
	var bytes map[string]int64
	if err := transport.DecodeResponse(resp, HostName, &bytes); err != nil {
		return nil, err
	}

	langs := make([]string, 0, len(bytes))
	for lang := range bytes {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool {
		if bytes[langs[i]] != bytes[langs[j]] {
			return bytes[langs[i]] > bytes[langs[j]]
		}
		return langs[i] < langs[j]
	})
	return langs, nil
}

// Readme returns the raw README text, or nil when the repository has none.
func (c *Client) Readme(ctx context.Context, owner, name string) (*string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.repoURL(owner, name, "/readme"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.raw+json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := transport.CheckResponse(resp, HostName); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxReadmeBytes))
	if err != nil {
		return nil, err
	}
	text := string(body)
	return &text, nil
}

// Tags returns the repository's git tag names.
func (c *Client) Tags(ctx context.Context, owner, name string) ([]string, error) {
	u := c.repoURL(owner, name, fmt.Sprintf("/tags?per_page=%d", constants.DefaultPageSize))
	tags, err := getAll[tag](ctx, c.http, u)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names, nil
}

func (c *Client) repoURL(owner, name, suffix string) string {
	return fmt.Sprintf("%s/repos/%s/%s%s", c.baseURL, url.PathEscape(owner), url.PathEscape(name), suffix)
}

func getAll[T any](ctx context.Context, hc *transport.Client, next string) ([]T, error) {
	var all []T
	for next != "" {
		resp, err := hc.Get(ctx, next)
		if err != nil {
			return nil, err
		}
		next = transport.NextPage(resp)

		var page []T
		if err := transport.DecodeResponse(resp, HostName, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
	}
	return all, nil
}
