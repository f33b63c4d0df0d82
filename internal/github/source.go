package github

import (
	"context"
	"time"

	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/logging"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

// Source collects raw repositories for a GitHub organization.
type Source struct {
	client *Client
}

// NewSource wraps a client as a collector source.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

// Host returns the code host name.
func (s *Source) Host() string {
	return HostName
}

// Collect lists org and fetches languages, README and tags for every repository.
// Empty repositories and repositories that fail to collect are skipped and
// recorded in the run log carried by ctx. Only a failed listing fails org.
func (s *Source) Collect(ctx context.Context, org string) ([]inventory.RawRepository, error) {
	logger := logging.FromContext(ctx)

	repos, err := s.client.ListRepositories(ctx, org)
	if err != nil {
		return nil, errors.WrapResource("list", "organization", org, err)
	}
	logger.Debug().Str("organization", org).Int("repositories", len(repos)).Msg("listed repositories")

	log := runlog.FromContext(ctx)
	raws := make([]inventory.RawRepository, 0, len(repos))
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := org + "/" + repo.Name

		if repo.Size == 0 {
			logger.Debug().Str("repository", name).Msg("skipping empty repository")
			record(log, runlog.Entry{
				Severity:     runlog.SeverityInfo,
				Kind:         runlog.KindEmptyRepository,
				Organization: org,
				Repository:   name,
				Message:      "repository has no content",
			})
			continue
		}

		raw, err := s.collectRepository(ctx, org, repo)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			err = errors.WrapResource("collect", "repository", name, err)
			logger.Warn().Err(err).Str("repository", name).Msg("skipping repository")
			record(log, runlog.Entry{
				Severity:     runlog.SeverityError,
				Kind:         runlog.KindCollection,
				Organization: org,
				Repository:   name,
				Err:          err,
			})
			continue
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

func record(log *runlog.Log, e runlog.Entry) {
	if log != nil {
		log.Add(e)
	}
}

func (s *Source) collectRepository(ctx context.Context, org string, repo Repository) (inventory.RawRepository, error) {
	if repo.Fork && repo.Parent == nil {
		full, err := s.client.Repository(ctx, org, repo.Name)
		if err != nil {
			return inventory.RawRepository{}, err
		}
		repo.Parent = full.Parent
	}

	raw := ToRaw(org, repo)

	langs, err := s.client.Languages(ctx, org, repo.Name)
	if err != nil {
		return raw, err
	}
	raw.Languages = langs

	readme, err := s.client.Readme(ctx, org, repo.Name)
	if err != nil {
		return raw, err
	}
	raw.Readme = readme

	tags, err := s.client.Tags(ctx, org, repo.Name)
	if err != nil {
		return raw, err
	}
	raw.Tags = tags

	return raw, nil
}

// ToRaw maps a GitHub repository onto a raw record.
func ToRaw(org string, repo Repository) inventory.RawRepository {
	raw := inventory.RawRepository{
		Host:          HostName,
		Organization:  org,
		Name:          repo.Name,
		ID:            repo.ID,
		URL:           repo.HTMLURL,
		Visibility:    visibility(repo),
		Description:   repo.Description,
		Homepage:      repo.Homepage,
		Language:      repo.Language,
		Topics:        repo.Topics,
		CreatedAt:     parseTime(repo.CreatedAt),
		UpdatedAt:     parseTime(repo.PushedAt),
		DefaultBranch: repo.DefaultBranch,
		Archived:      repo.Archived,
		Fork:          repo.Fork,
	}
	if repo.License != nil && repo.License.SPDXID != "" && repo.License.SPDXID != "NOASSERTION" {
		id := repo.License.SPDXID
		raw.License = &id
	}
	if repo.Parent != nil {
		raw.Parent = repo.Parent.HTMLURL
	}
	return raw
}

func visibility(repo Repository) inventory.Visibility {
	if v, err := inventory.ParseVisibility(repo.Visibility); err == nil {
		return v
	}
	if repo.Private {
		return inventory.VisibilityPrivate
	}
	return inventory.VisibilityPublic
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
