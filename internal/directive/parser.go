// Package directive extracts issue attributes from directive tags embedded in
// an email subject line, e.g. "Printer on fire #BUG #BLOCKER #ASSIGNEE=jdoe".
//
// Every whitespace-delimited token is matched against a fixed, ordered table
// of markers. Tokens that match no marker form the issue summary. Tokens that
// match a marker but carry a bad value are dropped: they never leak into the
// summary and never abort the parse.
package directive

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/danielolaszy/mailglue/internal/duration"
	"github.com/danielolaszy/mailglue/internal/logging"
	"github.com/danielolaszy/mailglue/pkg/models"
)

// ErrUnknownPriority is returned by resolvers that do not know a priority name.
var ErrUnknownPriority = errors.New("unknown priority")

// PriorityResolver maps a priority name such as "Major" to a tracker priority id.
type PriorityResolver interface {
	PriorityID(name string) (string, error)
}

// DurationParser turns a duration string such as "2d 3h" into seconds.
type DurationParser interface {
	ParseDuration(s string) (int64, error)
}

// StaticPriorities resolves priority names from a fixed, case-insensitive table.
type StaticPriorities map[string]string

// DefaultPriorities are the ids of the stock JIRA priority scheme.
var DefaultPriorities = StaticPriorities{
	"Blocker":  "1",
	"Critical": "2",
	"Major":    "3",
	"Minor":    "4",
	"Trivial":  "5",
}

// PriorityID implements PriorityResolver.
func (s StaticPriorities) PriorityID(name string) (string, error) {
	for n, id := range s {
		if strings.EqualFold(n, name) {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownPriority, name)
}

// Parser turns subject lines into issue descriptors. It is safe for
// concurrent use as long as its collaborators are.
type Parser struct {
	priorities PriorityResolver
	durations  DurationParser
}

// Option configures a Parser.
type Option func(*Parser)

// WithPriorities sets the priority name resolver.
func WithPriorities(r PriorityResolver) Option {
	return func(p *Parser) {
		if r != nil {
			p.priorities = r
		}
	}
}

// WithDurations sets the estimate duration parser.
func WithDurations(d DurationParser) Option {
	return func(p *Parser) {
		if d != nil {
			p.durations = d
		}
	}
}

// NewParser creates a Parser using the stock priorities and the default calendar
// unless overridden.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		priorities: DefaultPriorities,
		durations:  duration.Default,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse builds a descriptor from subject alone.
func (p *Parser) Parse(subject string) models.IssueDescriptor {
	return p.ParseFor("", subject)
}

// ParseFor builds a descriptor whose project key starts as projectKey, the
// value derived from the recipient address. A #PROJECT= tag overrides it.
func (p *Parser) ParseFor(projectKey, subject string) models.IssueDescriptor {
	b := &builder{projectKey: projectKey}

	for _, token := range strings.Fields(subject) {
		p.classify(b, token)
	}

	return b.build()
}

// classify applies the first matching rule to token, or adds it to the summary.
func (p *Parser) classify(b *builder, token string) {
	for _, r := range grammar {
		value, ok := r.match(token)
		if !ok {
			continue
		}
		if r.prefix && value == "" {
			logging.Debug("ignoring empty directive", "token", token)
			return
		}
		if err := r.apply(p, b, value); err != nil {
			logging.Debug("ignoring malformed directive",
				"token", token,
				"error", err)
		}
		return
	}

	b.summary.WriteString(token)
	b.summary.WriteByte(' ')
}

// builder accumulates descriptor fields during a single parse.
type builder struct {
	projectKey       string
	issueType        string
	priorityID       string
	components       []string
	reporter         string
	assignee         string
	dueDate          *time.Time
	originalEstimate *int64
	workflowTarget   string
	resolution       string
	summary          strings.Builder
}

func (b *builder) build() models.IssueDescriptor {
	summary := strings.TrimSpace(b.summary.String())
	if summary == "" {
		summary = models.DefaultSummary
	}

	var components []string
	if b.components != nil {
		components = append([]string(nil), b.components...)
	}

	return models.IssueDescriptor{
		ProjectKey:       b.projectKey,
		IssueType:        b.issueType,
		PriorityID:       b.priorityID,
		Components:       components,
		Reporter:         b.reporter,
		Assignee:         b.assignee,
		DueDate:          b.dueDate,
		OriginalEstimate: b.originalEstimate,
		WorkflowTarget:   b.workflowTarget,
		Resolution:       b.resolution,
		Summary:          summary,
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func parseCount(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
