package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danielolaszy/mailglue/internal/directive"
	"github.com/danielolaszy/mailglue/internal/recipient"
	"github.com/danielolaszy/mailglue/pkg/models"
)

// descriptorView is the printable form of an issue descriptor.
type descriptorView struct {
	Subject          string   `json:"subject" yaml:"subject"`
	ProjectKey       string   `json:"projectKey,omitempty" yaml:"projectKey,omitempty"`
	IssueType        string   `json:"issueType,omitempty" yaml:"issueType,omitempty"`
	PriorityID       string   `json:"priorityId,omitempty" yaml:"priorityId,omitempty"`
	Components       []string `json:"components,omitempty" yaml:"components,omitempty"`
	Reporter         string   `json:"reporter,omitempty" yaml:"reporter,omitempty"`
	Assignee         string   `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	DueDate          string   `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	OriginalEstimate *int64   `json:"originalEstimate,omitempty" yaml:"originalEstimate,omitempty"`
	WorkflowTarget   string   `json:"workflowTarget,omitempty" yaml:"workflowTarget,omitempty"`
	Resolution       string   `json:"resolution,omitempty" yaml:"resolution,omitempty"`
	Summary          string   `json:"summary" yaml:"summary"`
}

func newDescriptorView(subject string, d models.IssueDescriptor) descriptorView {
	v := descriptorView{
		Subject:          subject,
		ProjectKey:       d.ProjectKey,
		IssueType:        d.IssueType,
		PriorityID:       d.PriorityID,
		Components:       d.Components,
		Reporter:         d.Reporter,
		Assignee:         d.Assignee,
		OriginalEstimate: d.OriginalEstimate,
		WorkflowTarget:   d.WorkflowTarget,
		Resolution:       d.Resolution,
		Summary:          d.Summary,
	}
	if d.DueDate != nil {
		v.DueDate = d.DueDate.Format("2006-01-02")
	}
	return v
}

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [subject...]",
		Short: "Parse directive tags out of a subject line",
		Long: `Parse a subject line into the fields of an issue.

The words given as arguments form one subject. Without arguments, every
non-empty line on stdin is parsed as a separate subject.

Example:
  mailglue parse 'Printer on fire #BUG #MAJOR #COMPONENT=Hardware'
  mailglue parse --recipient 'OPS <jira@example.org>' --format yaml 'Need a towel'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			rcpt, err := cmd.Flags().GetString("recipient")
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			parser := newParser(cfg, directive.DefaultPriorities)

			projectKey := ""
			if rcpt != "" {
				projectKey = recipient.FullName(recipient.ExtractAddress(rcpt), rcpt)
			}

			subjects := []string{strings.Join(args, " ")}
			if len(args) == 0 {
				subjects, err = readLines(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

			views := make([]descriptorView, 0, len(subjects))
			for _, subject := range subjects {
				views = append(views, newDescriptorView(subject, parser.ParseFor(projectKey, subject)))
			}
			return printDescriptors(cmd.OutOrStdout(), format, views)
		},
	}

	cmd.Flags().StringP("format", "f", "text", "output format: text, json or yaml")
	cmd.Flags().String("recipient", "", "recipient header whose display name becomes the project key")
	return cmd
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subjects: %w", err)
	}
	return lines, nil
}

func printDescriptors(w io.Writer, format string, views []descriptorView) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(views) == 1 {
			return enc.Encode(views[0])
		}
		return enc.Encode(views)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		if len(views) == 1 {
			return enc.Encode(views[0])
		}
		return enc.Encode(views)
	case "text", "":
		for i, v := range views {
			if i > 0 {
				fmt.Fprintln(w)
			}
			printText(w, v)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q, expected text, json or yaml", format)
	}
}

func printText(w io.Writer, v descriptorView) {
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-12s %s\n", name+":", value)
		}
	}

	field("summary", v.Summary)
	field("project", v.ProjectKey)
	field("type", v.IssueType)
	field("priority", v.PriorityID)
	field("components", strings.Join(v.Components, ", "))
	field("reporter", v.Reporter)
	field("assignee", v.Assignee)
	field("due", v.DueDate)
	if v.OriginalEstimate != nil {
		field("estimate", fmt.Sprintf("%ds", *v.OriginalEstimate))
	}
	field("workflow", v.WorkflowTarget)
	field("resolution", v.Resolution)
}
