package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// GitConfig configures a Git table source.
type GitConfig struct {
	// Repository is the clone URL or a local path.
	Repository string

	// Branch to track. Default: main.
	Branch string

	// Subdirectory holding the table files, relative to the repository root.
	Subdirectory string

	// LocalPath is where the repository is cloned.
	LocalPath string

	// PollSchedule is a cron expression (or @every) for pulling. Default: @every 1m.
	PollSchedule string

	// Timeout bounds each clone or pull.
	Timeout time.Duration

	// Depth limits clone history; 0 clones everything.
	Depth int

	// Token authenticates HTTPS remotes. Username defaults to "git".
	Token    string
	Username string
}

// CommitInfo describes the checked-out commit.
type CommitInfo struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// GitSource keeps a local checkout of a table repository up to date.
type GitSource struct {
	config GitConfig
	auth   transport.AuthMethod
	logger *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
	head string
}

// NewGitSource validates the configuration and creates a source. Nothing is
// cloned until Sync.
func NewGitSource(config GitConfig, logger *slog.Logger) (*GitSource, error) {
	if config.Repository == "" {
		return nil, errors.New("git repository is required")
	}
	if config.Branch == "" {
		config.Branch = "main"
	}
	if config.LocalPath == "" {
		config.LocalPath = filepath.Join(os.TempDir(), "tabula-tables")
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.PollSchedule == "" {
		config.PollSchedule = "@every 1m"
	}
	if logger == nil {
		logger = slog.Default()
	}

	var auth transport.AuthMethod
	if config.Token != "" {
		user := config.Username
		if user == "" {
			user = "git"
		}
		auth = &http.BasicAuth{Username: user, Password: config.Token}
	}

	return &GitSource{
		config: config,
		auth:   auth,
		logger: logger.With("component", "git", "repository", config.Repository),
	}, nil
}

// Dir returns the directory holding the table files.
func (g *GitSource) Dir() string {
	return filepath.Join(g.config.LocalPath, g.config.Subdirectory)
}

// Head returns the SHA of the checked-out commit, or "" before the first Sync.
func (g *GitSource) Head() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.head
}

// Sync clones (or opens) the repository on first use and pulls afterwards.
// It reports the resulting HEAD and whether it moved.
func (g *GitSource) Sync(ctx context.Context) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	if g.repo == nil {
		if err := g.openOrClone(ctx); err != nil {
			return "", false, err
		}
	} else {
		wt, err := g.repo.Worktree()
		if err != nil {
			return g.head, false, fmt.Errorf("failed to get worktree: %w", err)
		}
		err = wt.PullContext(ctx, &gogit.PullOptions{
			RemoteName:    "origin",
			ReferenceName: plumbing.NewBranchReferenceName(g.config.Branch),
			SingleBranch:  true,
			Auth:          g.auth,
		})
		if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
			return g.head, false, fmt.Errorf("failed to pull: %w", err)
		}
	}

	ref, err := g.repo.Head()
	if err != nil {
		return g.head, false, fmt.Errorf("failed to get HEAD: %w", err)
	}
	sha := ref.Hash().String()
	changed := sha != g.head
	if changed {
		g.logger.Info("Repository updated", "from", g.head, "to", sha)
	}
	g.head = sha
	return sha, changed, nil
}

func (g *GitSource) openOrClone(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(g.config.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(g.config.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo: %w", err)
		}
		g.repo = repo
		g.logger.Info("Opened existing checkout", "path", g.config.LocalPath)
		return nil
	}

	if err := os.MkdirAll(g.config.LocalPath, 0755); err != nil {
		return fmt.Errorf("failed to create checkout directory: %w", err)
	}
	start := time.Now()
	repo, err := gogit.PlainCloneContext(ctx, g.config.LocalPath, false, &gogit.CloneOptions{
		URL:           g.config.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(g.config.Branch),
		SingleBranch:  true,
		Depth:         g.config.Depth,
		Auth:          g.auth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	g.repo = repo
	g.logger.Info("Repository cloned",
		"path", g.config.LocalPath,
		"branch", g.config.Branch,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Commit returns details of the checked-out commit.
func (g *GitSource) Commit() (*CommitInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.repo == nil {
		return nil, errors.New("repository not synced")
	}
	ref, err := g.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	c, err := g.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	return &CommitInfo{
		SHA:       c.Hash.String(),
		Author:    c.Author.Name,
		Message:   c.Message,
		Timestamp: c.Author.When,
	}, nil
}
