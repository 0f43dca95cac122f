// Package handler turns an inbound message into a new issue or a comment on
// an existing one. Whether an issue exists is decided by an issue key in the
// subject. The tracker itself sits behind the Tracker interface.
package handler

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/danielolaszy/mailglue/internal/capture"
	"github.com/danielolaszy/mailglue/internal/config"
	"github.com/danielolaszy/mailglue/internal/directive"
	"github.com/danielolaszy/mailglue/internal/logging"
	"github.com/danielolaszy/mailglue/internal/quote"
	"github.com/danielolaszy/mailglue/internal/recipient"
	"github.com/danielolaszy/mailglue/pkg/models"
)

var (
	// ErrNoSender is returned for messages without a usable From address.
	ErrNoSender = errors.New("message has no sender address")
	// ErrSenderRejected is returned when an unknown sender matches no whitelist entry.
	ErrSenderRejected = errors.New("sender is not whitelisted")
	// ErrNoReporter is returned when nobody can be recorded as the reporter.
	ErrNoReporter = errors.New("no reporter could be established")
	// ErrNoProject is returned when a new issue has no project.
	ErrNoProject = errors.New("no project for new issue")
)

// JiraKeyPattern finds issue keys such as "ABC-123".
var JiraKeyPattern = regexp.MustCompile(`\b[A-Z][A-Z0-9_]+-\d+\b`)

// Tracker is the issue tracker the handler writes to.
type Tracker interface {
	// FindIssue returns nil and no error when key does not exist.
	FindIssue(ctx context.Context, key string) (*models.Issue, error)
	CreateIssue(ctx context.Context, issue models.NewIssue) (string, error)
	AddComment(ctx context.Context, key, body string) error
	UpdateSummary(ctx context.Context, key, summary string) error
	Transition(ctx context.Context, key, target, resolution string) error
	// UserByEmail returns "" and no error when no account uses email.
	UserByEmail(ctx context.Context, email string) (string, error)
}

// Settings controls the handler. Build it with SettingsFromConfig.
type Settings struct {
	DefaultProject   string
	DefaultIssueType string
	DefaultComponent string
	StripQuotes      bool
	CcAssignee       bool
	Addresses        []string
	ReporterUsername string
	Whitelist        []*regexp.Regexp
	SplitRegex       *regexp.Regexp
	SubjectRules     []capture.Rule
	KeyPattern       *regexp.Regexp
	// ProjectOptional lets issues be created without a project key, for
	// trackers that file everything in one place.
	ProjectOptional bool
}

// SettingsFromConfig compiles the regular expressions in cfg.
func SettingsFromConfig(cfg config.HandlerConfig) (Settings, error) {
	s := Settings{
		DefaultProject:   cfg.Project,
		DefaultIssueType: cfg.IssueType,
		DefaultComponent: cfg.Component,
		StripQuotes:      cfg.StripQuotes,
		CcAssignee:       cfg.CcAssignee,
		ReporterUsername: cfg.ReporterUsername,
		KeyPattern:       JiraKeyPattern,
	}

	for _, address := range []string{cfg.JiraEmail, cfg.JiraAlias} {
		if address != "" {
			s.Addresses = append(s.Addresses, address)
		}
	}

	for _, expr := range cfg.Whitelist {
		expr = strings.TrimSpace(expr)
		re, err := regexp.Compile(`^(?:` + expr + `)$`)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid whitelist expression %q: %w", expr, err)
		}
		logging.Debug("adding whitelist expression", "expression", expr)
		s.Whitelist = append(s.Whitelist, re)
	}

	if cfg.SplitRegex != "" {
		re, err := regexp.Compile(`(?m)` + cfg.SplitRegex)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid split regex %q: %w", cfg.SplitRegex, err)
		}
		s.SplitRegex = re
	}

	for _, rule := range cfg.SubjectRules {
		engine, err := capture.New(rule.Pattern, rule.Replace)
		if err != nil {
			return Settings{}, fmt.Errorf("subject rule %s: %w", rule.Name, err)
		}
		logging.Debug("found subject regexp pattern", "name", rule.Name, "pattern", rule.Pattern)
		s.SubjectRules = append(s.SubjectRules, capture.Rule{Name: rule.Name, Engine: engine})
	}

	return s, nil
}

// Action says what the handler did with a message.
type Action string

const (
	ActionCreated   Action = "created"
	ActionCommented Action = "commented"
)

// Result describes one handled message.
type Result struct {
	Action       Action
	IssueKey     string
	Descriptor   models.IssueDescriptor
	Appended     []string
	Transitioned bool
}

// Handler processes messages against a Tracker.
type Handler struct {
	settings Settings
	tracker  Tracker
	parser   *directive.Parser
	stripper *quote.Stripper
}

// New creates a Handler. A nil parser or stripper gets the default one.
func New(settings Settings, tracker Tracker, parser *directive.Parser, stripper *quote.Stripper) (*Handler, error) {
	if tracker == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	if parser == nil {
		parser = directive.NewParser()
	}
	if stripper == nil {
		stripper = quote.New()
	}
	if settings.KeyPattern == nil {
		settings.KeyPattern = JiraKeyPattern
	}
	return &Handler{
		settings: settings,
		tracker:  tracker,
		parser:   parser,
		stripper: stripper,
	}, nil
}

// Handle creates an issue from msg, or comments on the issue its subject names.
func (h *Handler) Handle(ctx context.Context, msg *models.Message) (Result, error) {
	if msg == nil {
		return Result{}, ErrNoSender
	}
	fromEmail := recipient.ExtractAddress(msg.From)
	if fromEmail == "" {
		logging.Warn("message has no from address, ignoring", "message_id", msg.MessageID)
		return Result{}, ErrNoSender
	}

	projectKey, ok := recipient.ProjectKey(msg.Recipients, h.settings.Addresses...)
	if !ok {
		logging.Warn("tracker address not found amongst recipients",
			"message_id", msg.MessageID,
			"addresses", h.settings.Addresses)
	}
	descriptor := h.parser.ParseFor(projectKey, msg.Subject)

	sender, err := h.tracker.UserByEmail(ctx, fromEmail)
	if err != nil {
		logging.Warn("failed to look up sender", "email", fromEmail, "error", err)
		sender = ""
	}
	if sender == "" {
		logging.Info("could not find a user for email", "email", fromEmail)
		if !h.whitelisted(fromEmail) {
			logging.Warn("sender did not match any whitelist expression", "email", fromEmail)
			return Result{}, fmt.Errorf("%w: %s", ErrSenderRejected, fromEmail)
		}
	}

	if key := h.settings.KeyPattern.FindString(msg.Subject); key != "" {
		issue, err := h.tracker.FindIssue(ctx, key)
		if err != nil {
			return Result{}, fmt.Errorf("failed to look up issue %s: %w", key, err)
		}
		if issue != nil {
			return h.comment(ctx, msg, issue, descriptor, sender, fromEmail)
		}
		logging.Info("issue referenced in subject not found, creating a new one", "key", key)
	}

	return h.create(ctx, msg, descriptor, sender, fromEmail)
}

// whitelisted reports whether an unknown sender may proceed. An empty
// whitelist accepts everybody.
func (h *Handler) whitelisted(email string) bool {
	if len(h.settings.Whitelist) == 0 {
		return true
	}
	for _, re := range h.settings.Whitelist {
		if re.MatchString(email) {
			logging.Debug("sender matched whitelist expression",
				"email", email,
				"expression", re.String())
			return true
		}
	}
	return false
}

func (h *Handler) comment(ctx context.Context, msg *models.Message, issue *models.Issue, descriptor models.IssueDescriptor, sender, fromEmail string) (Result, error) {
	result := Result{Action: ActionCommented, IssueKey: issue.Key, Descriptor: descriptor}

	if len(h.settings.SubjectRules) > 0 {
		summary, appended := capture.AppendToSummary(issue.Summary, msg.Subject, h.settings.SubjectRules)
		if len(appended) > 0 {
			if err := h.tracker.UpdateSummary(ctx, issue.Key, summary); err != nil {
				logging.Error("could not append to summary",
					"issue", issue.Key,
					"fragments", appended,
					"error", err)
			} else {
				result.Appended = appended
			}
		}
	}

	body := msg.Body
	if h.settings.StripQuotes {
		body = h.stripper.Strip(body)
	}
	if h.settings.SplitRegex != nil {
		body = SplitBody(body, h.settings.SplitRegex)
	}
	if sender == "" {
		body = strings.TrimRight(body, "\r\n") + "\n[Commented via e-mail received from: " + fromEmail + "]"
	}

	if err := h.tracker.AddComment(ctx, issue.Key, body); err != nil {
		return result, fmt.Errorf("failed to comment on %s: %w", issue.Key, err)
	}
	logging.Info("added comment", "issue", issue.Key, "sender", fromEmail)

	if descriptor.WorkflowTarget != "" {
		err := h.tracker.Transition(ctx, issue.Key, descriptor.WorkflowTarget, descriptor.Resolution)
		if err != nil {
			logging.Error("could not trigger workflow transition",
				"issue", issue.Key,
				"target", descriptor.WorkflowTarget,
				"error", err)
		} else {
			result.Transitioned = true
		}
	}

	return result, nil
}

func (h *Handler) create(ctx context.Context, msg *models.Message, descriptor models.IssueDescriptor, sender, fromEmail string) (Result, error) {
	if descriptor.ProjectKey == "" {
		descriptor.ProjectKey = h.settings.DefaultProject
	}
	descriptor.ProjectKey = strings.ToUpper(descriptor.ProjectKey)
	if descriptor.ProjectKey == "" && !h.settings.ProjectOptional {
		return Result{}, ErrNoProject
	}
	if descriptor.IssueType == "" {
		descriptor.IssueType = h.settings.DefaultIssueType
	}
	if descriptor.Components == nil && h.settings.DefaultComponent != "" {
		descriptor.Components = []string{h.settings.DefaultComponent}
	}
	if descriptor.Assignee == "" && h.settings.CcAssignee {
		descriptor.Assignee = h.firstKnownRecipient(ctx, msg.Recipients)
	}

	reporter := firstNonEmpty(descriptor.Reporter, sender, h.settings.ReporterUsername)
	if reporter == "" {
		return Result{}, ErrNoReporter
	}

	description := msg.Body
	if sender == "" && descriptor.Reporter == "" {
		description = strings.TrimRight(description, "\r\n") + "\n[Created via e-mail received from: " + fromEmail + "]"
	}

	key, err := h.tracker.CreateIssue(ctx, models.NewIssue{
		Descriptor:  descriptor,
		Reporter:    reporter,
		Description: description,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to create issue in %s: %w", descriptor.ProjectKey, err)
	}

	logging.Info("created issue",
		"issue", key,
		"project", descriptor.ProjectKey,
		"reporter", reporter)

	return Result{Action: ActionCreated, IssueKey: key, Descriptor: descriptor}, nil
}

// firstKnownRecipient returns the account of the first recipient, other than
// the tracker's own addresses, that the tracker knows.
func (h *Handler) firstKnownRecipient(ctx context.Context, recipients []string) string {
	for _, rcpt := range recipients {
		email := recipient.ExtractAddress(rcpt)
		if email == "" || h.isTrackerAddress(email) {
			continue
		}
		user, err := h.tracker.UserByEmail(ctx, email)
		if err != nil {
			logging.Debug("failed to look up recipient", "email", email, "error", err)
			continue
		}
		if user != "" {
			return user
		}
	}
	return ""
}

func (h *Handler) isTrackerAddress(email string) bool {
	for _, address := range h.settings.Addresses {
		if strings.EqualFold(address, email) {
			return true
		}
	}
	return false
}

// SplitBody keeps the part of raw before the first match of re, framed by
// blank lines. When re does not match, raw is returned unchanged.
func SplitBody(raw string, re *regexp.Regexp) string {
	if re == nil {
		return raw
	}
	parts := re.Split(raw, 2)
	if len(parts) < 2 {
		return raw
	}
	return "\n" + strings.TrimSpace(parts[0]) + "\n\n"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
