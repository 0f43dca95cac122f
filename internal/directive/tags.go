package directive

import (
	"fmt"
	"strings"
	"time"
)

// Workflow targets set by the shorthand tags.
const (
	TargetResolve = "Resolve Issue"
	TargetClose   = "Close Issue"
)

// componentSpace stands in for a space inside a component name.
const componentSpace = "__"

// dueDateLayout is the only accepted #DUE= format.
const dueDateLayout = "2006-01-02"

// TagInfo describes one directive marker.
type TagInfo struct {
	Marker      string
	Description string
}

// rule is one row of the grammar: a marker, how it matches a token, and what it does.
type rule struct {
	marker string
	prefix bool
	desc   string
	apply  func(p *Parser, b *builder, value string) error
}

// match reports whether token carries this rule's marker and returns the value after it.
func (r rule) match(token string) (string, bool) {
	if r.prefix {
		if strings.HasPrefix(token, r.marker) {
			return token[len(r.marker):], true
		}
		return "", false
	}
	return "", token == r.marker
}

// grammar is scanned top to bottom for every token; the first match wins.
var grammar = []rule{
	issueType("#IMPROVEMENT", "4", "Improvement"),
	issueType("#SUBTASK", "5", "Sub-task"),
	issueType("#TASK", "3", "Task"),
	issueType("#NEWFEATURE", "2", "New Feature"),
	issueType("#BUG", "1", "Bug"),

	priority("#TRIVIAL", "Trivial"),
	priority("#MINOR", "Minor"),
	priority("#MAJOR", "Major"),
	priority("#CRITICAL", "Critical"),
	priority("#BLOCKER", "Blocker"),

	{marker: "#COMPONENT=", prefix: true, desc: "comma separated components, __ for a space", apply: applyComponents},
	{marker: "#PROJECT=", prefix: true, desc: "project key, overrides the recipient address", apply: func(_ *Parser, b *builder, v string) error {
		b.projectKey = v
		return nil
	}},
	{marker: "#REPORTER=", prefix: true, desc: "reporter username", apply: func(_ *Parser, b *builder, v string) error {
		b.reporter = v
		return nil
	}},
	{marker: "#ASSIGNEE=", prefix: true, desc: "assignee username", apply: func(_ *Parser, b *builder, v string) error {
		b.assignee = v
		return nil
	}},
	{marker: "#DUE=", prefix: true, desc: "due date as yyyy-mm-dd", apply: applyDueDate},
	{marker: "#EST=", prefix: true, desc: "original estimate, seconds or a duration like 2d3h", apply: applyEstimate},
	{marker: "#WORKFLOW=", prefix: true, desc: "workflow transition name", apply: func(_ *Parser, b *builder, v string) error {
		b.workflowTarget = v
		return nil
	}},
	{marker: "#RESOLVE", desc: "transition with " + TargetResolve, apply: func(_ *Parser, b *builder, _ string) error {
		b.workflowTarget = TargetResolve
		return nil
	}},
	{marker: "#CLOSE", desc: "transition with " + TargetClose, apply: func(_ *Parser, b *builder, _ string) error {
		b.workflowTarget = TargetClose
		return nil
	}},
	{marker: "#RESOLUTION=", prefix: true, desc: "resolution used by the transition", apply: func(_ *Parser, b *builder, v string) error {
		b.resolution = v
		return nil
	}},
}

func issueType(marker, code, name string) rule {
	return rule{
		marker: marker,
		desc:   fmt.Sprintf("issue type %s (%s)", name, code),
		apply: func(_ *Parser, b *builder, _ string) error {
			b.issueType = code
			return nil
		},
	}
}

func priority(marker, name string) rule {
	return rule{
		marker: marker,
		desc:   "priority " + name,
		apply: func(p *Parser, b *builder, _ string) error {
			id, err := p.priorities.PriorityID(name)
			if err != nil {
				return fmt.Errorf("resolve priority %q: %w", name, err)
			}
			b.priorityID = id
			return nil
		},
	}
}

func applyComponents(_ *Parser, b *builder, v string) error {
	var names []string
	for _, name := range strings.Split(v, ",") {
		if name == "" {
			continue
		}
		names = append(names, strings.ReplaceAll(name, componentSpace, " "))
	}
	if len(names) == 0 {
		return fmt.Errorf("no component names in %q", v)
	}
	b.components = names
	return nil
}

func applyDueDate(_ *Parser, b *builder, v string) error {
	// time.Parse rejects out-of-range days such as 2024-02-30.
	due, err := time.ParseInLocation(dueDateLayout, v, time.Local)
	if err != nil {
		return err
	}
	b.dueDate = &due
	return nil
}

func applyEstimate(p *Parser, b *builder, v string) error {
	var seconds int64
	if isDigits(v) {
		n, err := parseCount(v)
		if err != nil {
			return err
		}
		seconds = n
	} else {
		n, err := p.durations.ParseDuration(v)
		if err != nil {
			return err
		}
		seconds = n
	}
	b.originalEstimate = &seconds
	return nil
}

// Tags lists every directive marker in matching order.
func Tags() []TagInfo {
	tags := make([]TagInfo, 0, len(grammar))
	for _, r := range grammar {
		tags = append(tags, TagInfo{Marker: r.marker, Description: r.desc})
	}
	return tags
}
