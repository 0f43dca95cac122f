// Package models defines data structures shared across the application.
package models

import (
	"time"
)

// DefaultSummary is used when a subject carries no free text.
const DefaultSummary = "(no summary)"

// IssueDescriptor is the structured record parsed out of an email subject.
// Zero values mean "not set by the sender".
type IssueDescriptor struct {
	// ProjectKey comes from the recipient address or a #PROJECT= tag
	ProjectKey string

	// IssueType is the numeric issue type code (e.g., "1" for a bug)
	IssueType string

	// PriorityID is the tracker priority identifier resolved from a priority tag
	PriorityID string

	// Components lists component names from a #COMPONENT= tag
	Components []string

	// Reporter is the raw reporter username, unresolved
	Reporter string

	// Assignee is the raw assignee username, unresolved
	Assignee string

	// DueDate is the due date from a #DUE= tag
	DueDate *time.Time

	// OriginalEstimate is the estimate in seconds from a #EST= tag
	OriginalEstimate *int64

	// WorkflowTarget is the name of the workflow transition to apply
	WorkflowTarget string

	// Resolution is the resolution to use with the workflow transition
	Resolution string

	// Summary is the subject text left over after removing directive tags
	Summary string
}

// Message is the part of an inbound email the handler works with.
type Message struct {
	// MessageID is the Message-Id header without angle brackets
	MessageID string

	// InReplyTo lists message ids from the In-Reply-To header
	InReplyTo []string

	// Subject is the decoded subject line
	Subject string

	// From is the sender as it appears in the header (e.g., "Arthur Dent <arthur@vogon.org>")
	From string

	// Recipients holds every To, Cc and Bcc entry in header form
	Recipients []string

	// Body is the plain text body
	Body string
}

// Issue is an existing tracker issue as seen by the handler.
type Issue struct {
	// Key is the tracker issue key (e.g., "ABC-123" or "#42")
	Key string

	// Summary is the issue's title
	Summary string

	// Status is the current workflow status name
	Status string
}

// NewIssue carries everything needed to create an issue from a message.
type NewIssue struct {
	// Descriptor holds the fields parsed from the subject
	Descriptor IssueDescriptor

	// Reporter is the resolved reporter username
	Reporter string

	// Description is the issue body text
	Description string
}
