// Package config provides centralized configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// ErrMissingConfig is returned when required settings are absent.
var ErrMissingConfig = errors.New("missing required configuration")

// Config holds all configuration parameters for the application.
type Config struct {
	GitHub   GitHubConfig
	Jira     JiraConfig
	Handler  HandlerConfig
	Calendar CalendarConfig
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	Token      string
	Domain     string
	Repository string
}

// JiraConfig holds JIRA specific configuration.
type JiraConfig struct {
	URL      string
	Username string
	Token    string
}

// SubjectRule is a named pattern/template pair whose output is appended to
// the summary of an issue being commented on.
type SubjectRule struct {
	Name    string
	Pattern string `mapstructure:"pattern"`
	Replace string `mapstructure:"replace"`
}

// HandlerConfig controls how messages become issues and comments.
type HandlerConfig struct {
	// Project is the project for new issues when none is derived from the message
	Project string
	// IssueType is the issue type id for new issues without a type tag
	IssueType string
	// Component is the component for new issues without a component tag
	Component string
	// StripQuotes removes quoted text from comments
	StripQuotes bool
	// CcAssignee makes the first known recipient the assignee of new issues
	CcAssignee bool
	// JiraEmail is the address the tracker receives mail on
	JiraEmail string
	// JiraAlias is an alternative receiving address; defaults to JiraEmail
	JiraAlias string
	// ReporterUsername acts for senders with no tracker account
	ReporterUsername string
	// Whitelist holds regexes for sender addresses accepted without an account
	Whitelist []string
	// SplitRegex cuts the description of new issues at the first match
	SplitRegex string
	// SubjectRules are applied, sorted by name, to subjects of comment mail
	SubjectRules []SubjectRule
	// Separators is a file overriding the built-in Outlook separators
	Separators string
}

// CalendarConfig defines the working calendar for duration estimates.
type CalendarConfig struct {
	HoursPerDay float64
	DaysPerWeek float64
}

// LoadConfig reads configuration from environment variables and, when path
// is not empty, from a config file (yaml, toml or json by extension).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Map specific environment variables
	v.BindEnv("github.token", "GITHUB_TOKEN")
	v.BindEnv("github.domain", "GITHUB_DOMAIN")
	v.BindEnv("github.repository", "GITHUB_REPOSITORY")
	v.BindEnv("jira.url", "JIRA_URL")
	v.BindEnv("jira.username", "JIRA_USERNAME")
	v.BindEnv("jira.token", "JIRA_TOKEN")
	v.BindEnv("handler.jiraemail", "MAILGLUE_JIRAEMAIL")
	v.BindEnv("handler.project", "MAILGLUE_PROJECT")

	v.SetDefault("github.domain", "github.com")
	v.SetDefault("handler.ccassignee", true)
	v.SetDefault("calendar.hoursperday", 24)
	v.SetDefault("calendar.daysperweek", 7)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	// Create config structure
	config := &Config{
		GitHub: GitHubConfig{
			Token:      v.GetString("github.token"),
			Domain:     v.GetString("github.domain"),
			Repository: v.GetString("github.repository"),
		},
		Jira: JiraConfig{
			URL:      v.GetString("jira.url"),
			Username: v.GetString("jira.username"),
			Token:    v.GetString("jira.token"),
		},
		Handler: HandlerConfig{
			Project:          v.GetString("handler.project"),
			IssueType:        v.GetString("handler.issuetype"),
			Component:        v.GetString("handler.component"),
			StripQuotes:      v.GetBool("handler.stripquotes"),
			CcAssignee:       v.GetBool("handler.ccassignee"),
			JiraEmail:        v.GetString("handler.jiraemail"),
			JiraAlias:        v.GetString("handler.jiraalias"),
			ReporterUsername: v.GetString("handler.reporterusername"),
			Whitelist:        v.GetStringSlice("handler.whitelist"),
			SplitRegex:       v.GetString("handler.splitregex"),
			Separators:       v.GetString("handler.separators"),
		},
		Calendar: CalendarConfig{
			HoursPerDay: v.GetFloat64("calendar.hoursperday"),
			DaysPerWeek: v.GetFloat64("calendar.daysperweek"),
		},
	}

	if config.GitHub.Domain == "" {
		config.GitHub.Domain = "github.com"
	}
	if config.Handler.JiraAlias == "" {
		config.Handler.JiraAlias = config.Handler.JiraEmail
	}

	rules, err := subjectRules(v)
	if err != nil {
		return nil, err
	}
	config.Handler.SubjectRules = rules

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// subjectRules decodes the handler.subjectregexps table, ordered by name.
func subjectRules(v *viper.Viper) ([]SubjectRule, error) {
	raw := map[string]SubjectRule{}
	if err := v.UnmarshalKey("handler.subjectregexps", &raw); err != nil {
		return nil, fmt.Errorf("invalid handler.subjectregexps: %w", err)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make([]SubjectRule, 0, len(names))
	for _, name := range names {
		rule := raw[name]
		rule.Name = name
		rules = append(rules, rule)
	}
	return rules, nil
}

// validateConfig checks values that are wrong regardless of the backend in use.
func validateConfig(config *Config) error {
	var problems []string

	if config.Calendar.HoursPerDay <= 0 {
		problems = append(problems, "calendar.hoursperday must be positive")
	}
	if config.Calendar.DaysPerWeek <= 0 {
		problems = append(problems, "calendar.daysperweek must be positive")
	}
	for _, rule := range config.Handler.SubjectRules {
		if rule.Pattern == "" {
			problems = append(problems, fmt.Sprintf("handler.subjectregexps.%s has no pattern", rule.Name))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateJiraConfig validates JIRA-specific configuration.
func ValidateJiraConfig(config *Config) error {
	var missingVars []string

	// JIRA validation
	if config.Jira.URL == "" {
		missingVars = append(missingVars, "JIRA_URL")
	}
	if config.Jira.Username == "" {
		missingVars = append(missingVars, "JIRA_USERNAME")
	}
	if config.Jira.Token == "" {
		missingVars = append(missingVars, "JIRA_TOKEN")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("%w: environment variables %v", ErrMissingConfig, missingVars)
	}

	return nil
}

// ValidateGitHubConfig validates GitHub-specific configuration.
func ValidateGitHubConfig(config *Config) error {
	var missingVars []string

	if config.GitHub.Token == "" {
		missingVars = append(missingVars, "GITHUB_TOKEN")
	}
	if config.GitHub.Repository == "" {
		missingVars = append(missingVars, "GITHUB_REPOSITORY")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("%w: environment variables %v", ErrMissingConfig, missingVars)
	}

	return nil
}
