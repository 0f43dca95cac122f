// Package github provides a tracker that files mail as GitHub issues.
//
// GitHub has no issue types, priorities or components, so those fields are
// recorded as labels. Issue keys take the form "#123".
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"

	"github.com/danielolaszy/mailglue/internal/config"
	"github.com/danielolaszy/mailglue/internal/directive"
	"github.com/danielolaszy/mailglue/internal/logging"
	"github.com/danielolaszy/mailglue/pkg/models"
)

// KeyPattern finds GitHub issue references such as "#42".
var KeyPattern = regexp.MustCompile(`#\d+\b`)

var typeLabels = map[string]string{
	"1": "bug",
	"2": "new feature",
	"3": "task",
	"4": "improvement",
	"5": "sub-task",
}

const labelColor = "ededed"

// Client encapsulates the GitHub API client.
type Client struct {
	client *github.Client
	owner  string
	repo   string
}

// NewClient creates a GitHub client for the configured repository. It uses
// the enterprise API endpoint when the domain is not github.com.
func NewClient(cfg *config.Config) (*Client, error) {
	if err := config.ValidateGitHubConfig(cfg); err != nil {
		return nil, err
	}

	owner, repo, err := splitRepository(cfg.GitHub.Repository)
	if err != nil {
		return nil, err
	}

	domain := cfg.GitHub.Domain
	if domain == "" {
		domain = "github.com"
	}

	logging.Info("github configuration",
		"domain", domain,
		"repository", cfg.GitHub.Repository,
		"token", logging.MaskSensitive(cfg.GitHub.Token))

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.GitHub.Token},
	)
	client := github.NewClient(oauth2.NewClient(context.Background(), ts))

	if domain != "github.com" {
		apiURL, err := url.Parse(fmt.Sprintf("https://%s/api/v3/", domain))
		if err != nil {
			return nil, fmt.Errorf("invalid github api url: %w", err)
		}
		client.BaseURL = apiURL
		client.UploadURL = apiURL
	}

	return &Client{client: client, owner: owner, repo: repo}, nil
}

// splitRepository parses "owner/repo".
func splitRepository(repository string) (string, string, error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format: %s, expected format: owner/repo", repository)
	}
	return parts[0], parts[1], nil
}

// Authenticate checks the token and returns the login it belongs to.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	user, resp, err := c.client.Users.Get(ctx, "")
	if err != nil {
		logging.Error("failed to test github token",
			"error", err,
			"status_code", statusCode(resp))
		return "", fmt.Errorf("error testing github token: %w", err)
	}

	logging.Info("github authentication successful", "username", user.GetLogin())
	return user.GetLogin(), nil
}

// FindIssue returns the issue referenced by key, or nil when there is none
// or the number belongs to a pull request.
func (c *Client) FindIssue(ctx context.Context, key string) (*models.Issue, error) {
	number, err := issueNumber(key)
	if err != nil {
		return nil, err
	}

	issue, resp, err := c.client.Issues.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		if statusCode(resp) == http.StatusNotFound {
			logging.Debug("github issue not found", "key", key)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get GitHub issue %s: %w", key, err)
	}
	if issue.PullRequestLinks != nil {
		logging.Debug("github reference is a pull request", "key", key)
		return nil, nil
	}

	return &models.Issue{
		Key:     issueKey(issue.GetNumber()),
		Summary: issue.GetTitle(),
		Status:  issue.GetState(),
	}, nil
}

// CreateIssue opens an issue and returns its "#n" key.
func (c *Client) CreateIssue(ctx context.Context, issue models.NewIssue) (string, error) {
	labels := issueLabels(issue.Descriptor)
	req := &github.IssueRequest{
		Title:  github.String(issue.Descriptor.Summary),
		Body:   github.String(issueBody(issue)),
		Labels: &labels,
	}
	if issue.Descriptor.Assignee != "" {
		req.Assignee = github.String(issue.Descriptor.Assignee)
	}

	logging.Debug("creating github issue",
		"repository", c.owner+"/"+c.repo,
		"labels", labels)

	created, _, err := c.client.Issues.Create(ctx, c.owner, c.repo, req)
	if err != nil {
		return "", fmt.Errorf("failed to create GitHub issue: %w", err)
	}
	return issueKey(created.GetNumber()), nil
}

// issueLabels records type, priority and components as labels.
func issueLabels(d models.IssueDescriptor) []string {
	labels := []string{}
	if name, ok := typeLabels[d.IssueType]; ok {
		labels = append(labels, name)
	}
	if name := priorityName(d.PriorityID); name != "" {
		labels = append(labels, "priority: "+name)
	}
	for _, component := range d.Components {
		labels = append(labels, "component: "+strings.ToLower(component))
	}
	return labels
}

// priorityName maps a built-in priority id back to its lower-case name.
func priorityName(id string) string {
	if id == "" {
		return ""
	}
	for name, candidate := range directive.DefaultPriorities {
		if candidate == id {
			return strings.ToLower(name)
		}
	}
	return ""
}

// issueBody appends the fields GitHub has no place for.
func issueBody(issue models.NewIssue) string {
	var footer []string
	if issue.Reporter != "" {
		footer = append(footer, "Reported by: "+issue.Reporter)
	}
	if d := issue.Descriptor.DueDate; d != nil {
		footer = append(footer, "Due: "+d.Format("2006-01-02"))
	}
	if e := issue.Descriptor.OriginalEstimate; e != nil {
		footer = append(footer, "Estimate: "+strconv.FormatInt(*e, 10)+"s")
	}
	if len(footer) == 0 {
		return issue.Description
	}
	return strings.TrimRight(issue.Description, "\n") + "\n\n----\n" + strings.Join(footer, "\n")
}

// LabelScheme lists the type and priority labels CreateIssue can apply.
func LabelScheme() []string {
	var labels []string
	for _, code := range []string{"1", "2", "3", "4", "5"} {
		labels = append(labels, typeLabels[code])
	}
	for _, name := range []string{"Trivial", "Minor", "Major", "Critical", "Blocker"} {
		labels = append(labels, "priority: "+strings.ToLower(name))
	}
	return labels
}

// EnsureLabels creates the labels missing from the repository and returns
// their names.
func (c *Client) EnsureLabels(ctx context.Context, labels []string) ([]string, error) {
	var created []string
	for _, name := range labels {
		_, resp, err := c.client.Issues.GetLabel(ctx, c.owner, c.repo, name)
		if err == nil {
			logging.Debug("label already exists", "label", name)
			continue
		}
		if statusCode(resp) != http.StatusNotFound {
			return created, fmt.Errorf("failed to look up label %q: %w", name, err)
		}

		_, _, err = c.client.Issues.CreateLabel(ctx, c.owner, c.repo, &github.Label{
			Name:  github.String(name),
			Color: github.String(labelColor),
		})
		if err != nil {
			return created, fmt.Errorf("failed to create label %q: %w", name, err)
		}
		logging.Info("created label", "label", name, "repository", c.owner+"/"+c.repo)
		created = append(created, name)
	}
	return created, nil
}

// AddComment comments on the issue referenced by key.
func (c *Client) AddComment(ctx context.Context, key, body string) error {
	number, err := issueNumber(key)
	if err != nil {
		return err
	}

	_, _, err = c.client.Issues.CreateComment(ctx, c.owner, c.repo, number, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to comment on %s/%s%s: %w", c.owner, c.repo, key, err)
	}
	return nil
}

// UpdateSummary sets the title of the issue referenced by key.
func (c *Client) UpdateSummary(ctx context.Context, key, summary string) error {
	number, err := issueNumber(key)
	if err != nil {
		return err
	}

	_, _, err = c.client.Issues.Edit(ctx, c.owner, c.repo, number, &github.IssueRequest{
		Title: github.String(summary),
	})
	if err != nil {
		return fmt.Errorf("failed to update title of %s: %w", key, err)
	}
	return nil
}

// Transition closes the issue for the resolve and close targets and reopens
// it for any target starting with "Reopen". A resolution becomes a label.
func (c *Client) Transition(ctx context.Context, key, target, resolution string) error {
	number, err := issueNumber(key)
	if err != nil {
		return err
	}

	var state string
	switch {
	case strings.EqualFold(target, directive.TargetResolve), strings.EqualFold(target, directive.TargetClose):
		state = "closed"
	case strings.HasPrefix(strings.ToLower(target), "reopen"):
		state = "open"
	default:
		return fmt.Errorf("transition %q not supported on GitHub", target)
	}

	if resolution != "" {
		label := "resolution: " + strings.ToLower(resolution)
		if _, _, err := c.client.Issues.AddLabelsToIssue(ctx, c.owner, c.repo, number, []string{label}); err != nil {
			return fmt.Errorf("failed to add labels to issue %s#%d: %w", c.repo, number, err)
		}
	}

	_, _, err = c.client.Issues.Edit(ctx, c.owner, c.repo, number, &github.IssueRequest{
		State: github.String(state),
	})
	if err != nil {
		return fmt.Errorf("failed to set %s to %s: %w", key, state, err)
	}

	logging.Debug("changed github issue state", "key", key, "state", state, "resolution", resolution)
	return nil
}

// UserByEmail returns the login of the account with a public email address
// equal to email, or "".
func (c *Client) UserByEmail(ctx context.Context, email string) (string, error) {
	result, _, err := c.client.Search.Users(ctx, email+" in:email", nil)
	if err != nil {
		return "", fmt.Errorf("failed to search users: %w", err)
	}
	if len(result.Users) == 0 {
		return "", nil
	}
	return result.Users[0].GetLogin(), nil
}

func issueNumber(key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(key, "#"))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid github issue reference %q", key)
	}
	return n, nil
}

func issueKey(number int) string {
	return "#" + strconv.Itoa(number)
}

func statusCode(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
