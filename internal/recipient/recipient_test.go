package recipient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	recipients := []string{
		"Someone Else <else@example.org>",
		"OPS <Jira@Example.org>",
	}

	testCases := []struct {
		name     string
		address  string
		expected string
		found    bool
	}{
		{name: "Case-insensitive match", address: "jira@example.org", expected: "OPS <Jira@Example.org>", found: true},
		{name: "Dots are literal", address: "jira@example-org", expected: "", found: false},
		{name: "Dot does not match any char", address: "jira@examplexorg", expected: "", found: false},
		{name: "Empty address", address: "", expected: "", found: false},
		{name: "Absent address", address: "nobody@example.org", expected: "", found: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Match(recipients, tc.address)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestFullName(t *testing.T) {
	testCases := []struct {
		name     string
		address  string
		header   string
		expected string
	}{
		{name: "Angle brackets", address: "arthur@vogon.org", header: "Arthur Dent <arthur@vogon.org>", expected: "Arthur Dent"},
		{name: "Quoted name", address: "jira@example.org", header: `"OPS" <jira@example.org>`, expected: "OPS"},
		{name: "Parenthesised name", address: "jira@example.org", header: "jira@example.org (DEV)", expected: "DEV"},
		{name: "Different case", address: "jira@example.org", header: "INFRA <JIRA@EXAMPLE.ORG>", expected: "INFRA"},
		{name: "Bare address", address: "jira@example.org", header: "jira@example.org", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FullName(tc.address, tc.header))
		})
	}
}

func TestProjectKey(t *testing.T) {
	recipients := []string{"Boss <boss@example.org>", "SUPPORT <help@example.org>"}

	key, ok := ProjectKey(recipients, "jira@example.org", "help@example.org")
	assert.True(t, ok)
	assert.Equal(t, "SUPPORT", key)

	key, ok = ProjectKey(recipients, "jira@example.org")
	assert.False(t, ok)
	assert.Equal(t, "", key)
}

func TestExtractAddress(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "Arthur Dent <Arthur.Dent@Earth.com>", expected: "arthur.dent@earth.com"},
		{input: "ops-team@mail.example.info", expected: "ops-team@mail.example.info"},
		{input: "no address here", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractAddress(tc.input))
		})
	}
}
