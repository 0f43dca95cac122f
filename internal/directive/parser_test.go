package directive

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/mailglue/internal/duration"
	"github.com/danielolaszy/mailglue/pkg/models"
)

// MockPriorities is a test double for PriorityResolver.
type MockPriorities struct {
	PriorityIDFunc func(string) (string, error)
	calls          []string
}

func (m *MockPriorities) PriorityID(name string) (string, error) {
	m.calls = append(m.calls, name)
	if m.PriorityIDFunc != nil {
		return m.PriorityIDFunc(name)
	}
	return "", errors.New("PriorityID not implemented")
}

func TestParsePlainSubject(t *testing.T) {
	testCases := []struct {
		name     string
		subject  string
		expected string
	}{
		{name: "Single word", subject: "Hello", expected: "Hello"},
		{name: "Sentence", subject: "The printer is on fire", expected: "The printer is on fire"},
		{name: "Whitespace collapses", subject: "  two\tspaced   words \n", expected: "two spaced words"},
		{name: "Hash without marker", subject: "Issue #42 again", expected: "Issue #42 again"},
		{name: "Lower case marker is text", subject: "fix #bug now", expected: "fix #bug now"},
		{name: "Marker as a suffix is text", subject: "x#BUG", expected: "x#BUG"},
	}

	parser := NewParser()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := parser.Parse(tc.subject)
			assert.Equal(t, models.IssueDescriptor{Summary: tc.expected}, got)
		})
	}
}

func TestParseDefaultSummary(t *testing.T) {
	testCases := []struct {
		name    string
		subject string
	}{
		{name: "Empty subject", subject: ""},
		{name: "Whitespace only", subject: " \t \r\n "},
		{name: "Single exact marker", subject: "#BUG"},
		{name: "Single prefix marker", subject: "#PROJECT=ABC"},
		{name: "Malformed directive only", subject: "#DUE=tomorrow"},
	}

	parser := NewParser()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, models.DefaultSummary, parser.Parse(tc.subject).Summary)
		})
	}
}

func TestParseIssueTypes(t *testing.T) {
	testCases := []struct {
		subject  string
		expected string
	}{
		{subject: "#BUG", expected: "1"},
		{subject: "#NEWFEATURE", expected: "2"},
		{subject: "#TASK", expected: "3"},
		{subject: "#IMPROVEMENT", expected: "4"},
		{subject: "#SUBTASK", expected: "5"},
	}

	parser := NewParser()
	for _, tc := range testCases {
		t.Run(tc.subject, func(t *testing.T) {
			assert.Equal(t, tc.expected, parser.Parse("x "+tc.subject).IssueType)
		})
	}
}

func TestParseLastDirectiveWins(t *testing.T) {
	parser := NewParser()

	got := parser.Parse("#BUG crash #TASK report #IMPROVEMENT")
	assert.Equal(t, "4", got.IssueType)
	assert.Equal(t, "crash report", got.Summary)

	got = parser.Parse("#BLOCKER #TRIVIAL")
	assert.Equal(t, "5", got.PriorityID)

	got = parser.Parse("#ASSIGNEE=alice #ASSIGNEE=bob")
	assert.Equal(t, "bob", got.Assignee)
}

func TestParsePriorities(t *testing.T) {
	mock := &MockPriorities{
		PriorityIDFunc: func(name string) (string, error) {
			if name == "Critical" {
				return "", ErrUnknownPriority
			}
			return "id-" + name, nil
		},
	}
	parser := NewParser(WithPriorities(mock))

	got := parser.Parse("#MAJOR urgent")
	assert.Equal(t, "id-Major", got.PriorityID)
	assert.Equal(t, "urgent", got.Summary)

	// An unresolvable priority keeps the earlier value and stays out of the summary.
	got = parser.Parse("#MINOR #CRITICAL text")
	assert.Equal(t, "id-Minor", got.PriorityID)
	assert.Equal(t, "text", got.Summary)
	assert.Equal(t, []string{"Major", "Minor", "Critical"}, mock.calls)
}

func TestStaticPriorities(t *testing.T) {
	id, err := DefaultPriorities.PriorityID("blocker")
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	_, err = DefaultPriorities.PriorityID("Meh")
	assert.ErrorIs(t, err, ErrUnknownPriority)
}

func TestParseComponents(t *testing.T) {
	testCases := []struct {
		name     string
		subject  string
		expected []string
		summary  string
	}{
		{name: "Placeholder decodes to space", subject: "#COMPONENT=Foo__Bar,Baz", expected: []string{"Foo Bar", "Baz"}, summary: models.DefaultSummary},
		{name: "Single component", subject: "disk #COMPONENT=Storage", expected: []string{"Storage"}, summary: "disk"},
		{name: "Empty names are dropped", subject: "#COMPONENT=A,,B,", expected: []string{"A", "B"}, summary: models.DefaultSummary},
		{name: "Later tag overwrites", subject: "#COMPONENT=A #COMPONENT=B", expected: []string{"B"}, summary: models.DefaultSummary},
		{name: "Only commas is malformed", subject: "#COMPONENT=, y", expected: nil, summary: "y"},
	}

	parser := NewParser()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := parser.Parse(tc.subject)
			assert.Equal(t, tc.expected, got.Components)
			assert.Equal(t, tc.summary, got.Summary)
		})
	}
}

func TestParseProjectKey(t *testing.T) {
	parser := NewParser()

	assert.Equal(t, "OPS", parser.ParseFor("OPS", "hello").ProjectKey)
	assert.Equal(t, "DEV", parser.ParseFor("OPS", "hello #PROJECT=DEV").ProjectKey)
	assert.Equal(t, "OPS", parser.ParseFor("OPS", "hello #PROJECT=").ProjectKey)
	assert.Equal(t, "", parser.Parse("hello").ProjectKey)
}

func TestParseUsersAndWorkflow(t *testing.T) {
	parser := NewParser()

	got := parser.Parse("Done #REPORTER=jdoe #ASSIGNEE=asmith #WORKFLOW=Start__Progress #RESOLUTION=Fixed")
	assert.Equal(t, "jdoe", got.Reporter)
	assert.Equal(t, "asmith", got.Assignee)
	assert.Equal(t, "Start__Progress", got.WorkflowTarget)
	assert.Equal(t, "Fixed", got.Resolution)
	assert.Equal(t, "Done", got.Summary)

	assert.Equal(t, TargetResolve, parser.Parse("#RESOLVE").WorkflowTarget)
	assert.Equal(t, TargetClose, parser.Parse("#CLOSE").WorkflowTarget)
	assert.Equal(t, "#RESOLVED", parser.Parse("#RESOLVED").Summary)
}

func TestParseDueDate(t *testing.T) {
	parser := NewParser()

	got := parser.Parse("#DUE=2024-02-29 leap")
	require.NotNil(t, got.DueDate)
	assert.True(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.Local).Equal(*got.DueDate))
	assert.Equal(t, "leap", got.Summary)

	testCases := []string{"#DUE=2024-02-30", "#DUE=2024-13-01", "#DUE=24-01-01", "#DUE=2024/01/01", "#DUE=soon"}
	for _, subject := range testCases {
		t.Run(subject, func(t *testing.T) {
			got := parser.Parse(subject + " text")
			assert.Nil(t, got.DueDate)
			assert.Equal(t, "text", got.Summary)
		})
	}
}

func TestParseEstimate(t *testing.T) {
	testCases := []struct {
		name     string
		subject  string
		expected *int64
	}{
		{name: "Literal count", subject: "#EST=5", expected: int64Ptr(5)},
		{name: "Days", subject: "#EST=2d", expected: int64Ptr(2 * 24 * 3600)},
		{name: "Compound", subject: "#EST=1h30m", expected: int64Ptr(5400)},
		{name: "Not a duration", subject: "#EST=notaduration", expected: nil},
		{name: "Empty value", subject: "#EST=", expected: nil},
		{name: "Overflowing count", subject: "#EST=99999999999999999999", expected: nil},
		{name: "Overflowing weeks", subject: "#EST=99999999999999999999w", expected: nil},
		{name: "Overflowing seconds", subject: "#EST=9223372036854775807s", expected: nil},
	}

	parser := NewParser()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := parser.Parse(tc.subject)
			assert.Equal(t, tc.expected, got.OriginalEstimate)
			assert.Equal(t, models.DefaultSummary, got.Summary)
		})
	}
}

func TestParseEstimateUsesCalendar(t *testing.T) {
	parser := NewParser(WithDurations(duration.Calendar{HoursPerDay: 8, DaysPerWeek: 5}))

	got := parser.Parse("#EST=1w")
	require.NotNil(t, got.OriginalEstimate)
	assert.Equal(t, int64(5*8*3600), *got.OriginalEstimate)
}

func TestParseFullSubject(t *testing.T) {
	parser := NewParser()

	got := parser.ParseFor("OPS", "Disk full on #PROJECT=INFRA db01 #BUG #CRITICAL #COMPONENT=Storage__Array #DUE=2024-03-01 #EST=4h #ASSIGNEE=ops")
	assert.Equal(t, "INFRA", got.ProjectKey)
	assert.Equal(t, "1", got.IssueType)
	assert.Equal(t, "2", got.PriorityID)
	assert.Equal(t, []string{"Storage Array"}, got.Components)
	assert.Equal(t, "ops", got.Assignee)
	require.NotNil(t, got.OriginalEstimate)
	assert.Equal(t, int64(4*3600), *got.OriginalEstimate)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "Disk full on db01", got.Summary)
}

func TestBuildCopiesComponents(t *testing.T) {
	b := &builder{components: []string{"A"}}
	got := b.build()
	b.components[0] = "changed"
	assert.Equal(t, []string{"A"}, got.Components)
}

func TestTags(t *testing.T) {
	tags := Tags()
	require.Len(t, tags, 20)
	assert.Equal(t, "#IMPROVEMENT", tags[0].Marker)
	assert.Equal(t, "#RESOLUTION=", tags[len(tags)-1].Marker)
	for _, tag := range tags {
		assert.NotEmpty(t, tag.Description, tag.Marker)
	}
}

func int64Ptr(n int64) *int64 {
	return &n
}
