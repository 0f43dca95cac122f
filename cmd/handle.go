package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/mailglue/internal/config"
	"github.com/danielolaszy/mailglue/internal/directive"
	"github.com/danielolaszy/mailglue/internal/envelope"
	"github.com/danielolaszy/mailglue/internal/github"
	"github.com/danielolaszy/mailglue/internal/handler"
	"github.com/danielolaszy/mailglue/internal/jira"
	"github.com/danielolaszy/mailglue/internal/logging"
	"github.com/danielolaszy/mailglue/pkg/models"
)

// newHandleCmd builds the command that runs one message through the pipeline.
func newHandleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handle [FILE.eml]",
		Short: "File an e-mail message as a new issue or a comment",
		Long: `Read an RFC 5322 message and file it in the tracker.

If the subject names an existing issue (ABC-123 for JIRA, #123 for GitHub)
the body is added as a comment and any #RESOLVE, #CLOSE or #WORKFLOW= tag is
applied. Otherwise a new issue is created from the subject's directive tags.

A new JIRA issue needs a project, taken from a #PROJECT= tag, the display
name on the tracker's address, or handler.project. GitHub issues go to the
configured repository and need no project.

With --dry-run the tracker is only read from. Every write is printed instead.

Example:
  mailglue handle --backend jira message.eml
  mailglue handle --backend github --dry-run < message.eml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := cmd.Flags().GetString("backend")
			if err != nil {
				return err
			}
			dryRun, err := cmd.Flags().GetBool("dry-run")
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			in, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer in.Close()

			msg, err := envelope.Read(in)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			h, err := buildHandler(ctx, cfg, backend, dryRun, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			logging.Info("handling message",
				"message_id", msg.MessageID,
				"subject", msg.Subject,
				"backend", backend,
				"dry_run", dryRun)

			result, err := h.Handle(ctx, msg)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", result.Action, result.IssueKey)
			return nil
		},
	}

	cmd.Flags().StringP("backend", "B", "jira", "tracker backend: jira or github")
	cmd.Flags().Bool("dry-run", false, "read from the tracker but print writes instead of performing them")
	return cmd
}

// buildHandler wires the tracker backend, parser and stripper together.
func buildHandler(ctx context.Context, cfg *config.Config, backend string, dryRun bool, out io.Writer) (*handler.Handler, error) {
	settings, err := handler.SettingsFromConfig(cfg.Handler)
	if err != nil {
		return nil, err
	}

	var tracker handler.Tracker
	var priorities directive.PriorityResolver

	switch strings.ToLower(backend) {
	case "jira":
		client, err := jira.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize JIRA client: %w", err)
		}
		tracker = client
		priorities = client
	case "github":
		client, err := github.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GitHub client: %w", err)
		}
		if _, err := client.Authenticate(ctx); err != nil {
			return nil, err
		}
		tracker = client
		priorities = directive.DefaultPriorities
		settings.KeyPattern = github.KeyPattern
		settings.ProjectOptional = true
	default:
		return nil, fmt.Errorf("unknown backend %q, expected jira or github", backend)
	}

	if dryRun {
		tracker = &dryRunTracker{Tracker: tracker, out: out}
	}

	stripper, err := newStripper(cfg)
	if err != nil {
		return nil, err
	}

	return handler.New(settings, tracker, newParser(cfg, priorities), stripper)
}

// dryRunTracker passes reads through and prints writes.
type dryRunTracker struct {
	handler.Tracker
	out io.Writer
}

func (d *dryRunTracker) CreateIssue(_ context.Context, issue models.NewIssue) (string, error) {
	desc := issue.Descriptor
	fmt.Fprintf(d.out, "would create issue in %s: %q (type %s, priority %s, reporter %s)\n",
		orNone(desc.ProjectKey), desc.Summary, orNone(desc.IssueType), orNone(desc.PriorityID), issue.Reporter)
	if desc.ProjectKey == "" {
		return "DRYRUN", nil
	}
	return desc.ProjectKey + "-DRYRUN", nil
}

func (d *dryRunTracker) AddComment(_ context.Context, key, body string) error {
	fmt.Fprintf(d.out, "would comment on %s (%d bytes)\n", key, len(body))
	return nil
}

func (d *dryRunTracker) UpdateSummary(_ context.Context, key, summary string) error {
	fmt.Fprintf(d.out, "would set summary of %s to %q\n", key, summary)
	return nil
}

func (d *dryRunTracker) Transition(_ context.Context, key, target, resolution string) error {
	fmt.Fprintf(d.out, "would transition %s with %q (resolution %s)\n", key, target, orNone(resolution))
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
