// Package jira implements the handler's tracker on top of the JIRA REST API.
package jira

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	jira "github.com/andygrunwald/go-jira"

	"github.com/danielolaszy/mailglue/internal/config"
	"github.com/danielolaszy/mailglue/internal/directive"
	"github.com/danielolaszy/mailglue/internal/logging"
	"github.com/danielolaszy/mailglue/pkg/models"
)

// Client handles interactions with the JIRA API.
type Client struct {
	client *jira.Client

	mu         sync.Mutex
	priorities map[string]string
}

// NewClient creates a JIRA client authenticated with basic auth.
func NewClient(cfg *config.Config) (*Client, error) {
	if err := config.ValidateJiraConfig(cfg); err != nil {
		return nil, err
	}

	logging.Info("jira configuration",
		"url", cfg.Jira.URL,
		"username", cfg.Jira.Username,
		"token", logging.MaskSensitive(cfg.Jira.Token))

	tp := jira.BasicAuthTransport{
		Username: cfg.Jira.Username,
		Password: cfg.Jira.Token,
	}

	client, err := jira.NewClient(tp.Client(), cfg.Jira.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	return &Client{client: client}, nil
}

// newWithHTTPClient wraps an existing http.Client, bypassing authentication.
func newWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client, err := jira.NewClient(httpClient, baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{client: client}, nil
}

func (c *Client) ready() error {
	if c == nil || c.client == nil {
		return fmt.Errorf("JIRA client not initialized")
	}
	return nil
}

// FindIssue returns the issue with key, or nil when JIRA reports it missing.
func (c *Client) FindIssue(ctx context.Context, key string) (*models.Issue, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	issue, resp, err := c.client.Issue.GetWithContext(ctx, key, &jira.GetQueryOptions{Fields: "summary,status"})
	if err != nil {
		if statusCode(resp) == http.StatusNotFound {
			logging.Debug("jira issue not found", "key", key)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get jira issue %s: %w (status: %d)", key, err, statusCode(resp))
	}

	result := &models.Issue{Key: issue.Key}
	if issue.Fields != nil {
		result.Summary = issue.Fields.Summary
		if issue.Fields.Status != nil {
			result.Status = issue.Fields.Status.Name
		}
	}
	return result, nil
}

// CreateIssue creates an issue and returns its key.
func (c *Client) CreateIssue(ctx context.Context, issue models.NewIssue) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}

	fields := issueFields(issue)
	logging.Debug("creating jira issue",
		"project", fields.Project.Key,
		"type", fields.Type.ID,
		"summary", fields.Summary)

	created, resp, err := c.client.Issue.CreateWithContext(ctx, &jira.Issue{Fields: fields})
	if err != nil {
		return "", fmt.Errorf("failed to create JIRA ticket: %w (status: %d)", err, statusCode(resp))
	}
	return created.Key, nil
}

// issueFields maps a new issue onto the JIRA field set. Unset descriptor
// fields are left out so JIRA applies the project defaults.
func issueFields(issue models.NewIssue) *jira.IssueFields {
	d := issue.Descriptor
	fields := &jira.IssueFields{
		Project:     jira.Project{Key: d.ProjectKey},
		Type:        jira.IssueType{ID: d.IssueType},
		Summary:     d.Summary,
		Description: issue.Description,
	}
	if issue.Reporter != "" {
		fields.Reporter = &jira.User{Name: issue.Reporter}
	}
	if d.Assignee != "" {
		fields.Assignee = &jira.User{Name: d.Assignee}
	}
	if d.PriorityID != "" {
		fields.Priority = &jira.Priority{ID: d.PriorityID}
	}
	for _, name := range d.Components {
		fields.Components = append(fields.Components, &jira.Component{Name: name})
	}
	if d.DueDate != nil {
		fields.Duedate = jira.Date(*d.DueDate)
	}
	if d.OriginalEstimate != nil {
		fields.TimeTracking = &jira.TimeTracking{OriginalEstimateSeconds: int(*d.OriginalEstimate)}
	}
	return fields
}

// AddComment adds body as a comment on key.
func (c *Client) AddComment(ctx context.Context, key, body string) error {
	if err := c.ready(); err != nil {
		return err
	}

	_, resp, err := c.client.Issue.AddCommentWithContext(ctx, key, &jira.Comment{Body: body})
	if err != nil {
		return fmt.Errorf("failed to comment on %s: %w (status: %d)", key, err, statusCode(resp))
	}
	return nil
}

// UpdateSummary replaces the summary of key.
func (c *Client) UpdateSummary(ctx context.Context, key, summary string) error {
	if err := c.ready(); err != nil {
		return err
	}

	data := map[string]interface{}{
		"fields": map[string]interface{}{
			"summary": summary,
		},
	}
	resp, err := c.client.Issue.UpdateIssueWithContext(ctx, key, data)
	defer closeBody(resp)
	if err != nil {
		return fmt.Errorf("failed to update summary of %s: %w (status: %d)", key, err, statusCode(resp))
	}
	return nil
}

// Transition moves key through the workflow transition named target. A
// non-empty resolution is sent along with it.
func (c *Client) Transition(ctx context.Context, key, target, resolution string) error {
	if err := c.ready(); err != nil {
		return err
	}

	transitions, resp, err := c.client.Issue.GetTransitionsWithContext(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to list transitions of %s: %w (status: %d)", key, err, statusCode(resp))
	}

	id, ok := findTransition(transitions, target)
	if !ok {
		return fmt.Errorf("transition %q not available for %s", target, key)
	}

	payload := jira.CreateTransitionPayload{
		Transition: jira.TransitionPayload{ID: id},
	}
	if resolution != "" {
		payload.Fields = jira.TransitionPayloadFields{
			Resolution: &jira.Resolution{Name: resolution},
		}
	}

	logging.Debug("transitioning jira issue",
		"key", key,
		"transition", target,
		"transition_id", id,
		"resolution", resolution)

	resp, err = c.client.Issue.DoTransitionWithPayloadWithContext(ctx, key, payload)
	defer closeBody(resp)
	if err != nil {
		return fmt.Errorf("failed to transition %s: %w (status: %d)", key, err, statusCode(resp))
	}
	return nil
}

func findTransition(transitions []jira.Transition, name string) (string, bool) {
	for _, t := range transitions {
		if strings.EqualFold(t.Name, name) {
			return t.ID, true
		}
	}
	return "", false
}

// UserByEmail returns the username of the first active account registered
// with email, or "" when there is none.
func (c *Client) UserByEmail(ctx context.Context, email string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}

	users, resp, err := c.client.User.FindWithContext(ctx, email)
	if err != nil {
		if statusCode(resp) == http.StatusNotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to search users: %w (status: %d)", err, statusCode(resp))
	}

	for _, u := range users {
		if u.Active && strings.EqualFold(u.EmailAddress, email) {
			return u.Name, nil
		}
	}
	return "", nil
}

// PriorityID resolves a priority name against the priorities the server
// defines. The list is fetched once and cached.
func (c *Client) PriorityID(name string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.priorities == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		list, resp, err := c.client.Priority.GetListWithContext(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list priorities: %w (status: %d)", err, statusCode(resp))
		}
		c.priorities = make(map[string]string, len(list))
		for _, p := range list {
			c.priorities[strings.ToLower(p.Name)] = p.ID
		}
		logging.Debug("cached jira priorities", "count", len(c.priorities))
	}

	id, ok := c.priorities[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("%w: %s", directive.ErrUnknownPriority, name)
	}
	return id, nil
}

func statusCode(resp *jira.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

func closeBody(resp *jira.Response) {
	if resp != nil && resp.Response != nil && resp.Body != nil {
		resp.Body.Close()
	}
}
