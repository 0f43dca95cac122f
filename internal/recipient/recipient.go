// Package recipient works out which configured mailbox a message was sent to
// and derives the project key from the display name on that recipient.
package recipient

import (
	"regexp"
	"strings"

	"github.com/danielolaszy/mailglue/internal/logging"
)

var (
	addressExp = regexp.MustCompile(`[\w\-.]+@[\w\-.]+\.[a-zA-Z]{2,}`)
	nameTrim   = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", "(", "", ")", "")
)

// Match returns the first recipient header containing address, compared
// case-insensitively.
func Match(recipients []string, address string) (string, bool) {
	if address == "" {
		return "", false
	}
	re, err := addressRegexp(address)
	if err != nil {
		logging.Warn("invalid recipient address", "address", address, "error", err)
		return "", false
	}

	for i, rcpt := range recipients {
		logging.Debug("checking message recipient", "index", i, "recipient", rcpt)
		if re.MatchString(rcpt) {
			return rcpt, true
		}
	}
	return "", false
}

// FullName returns what is left of header once address and the quoting
// characters <>"'() are removed. For "ABC <jira@example.org>" it returns "ABC".
func FullName(address, header string) string {
	fullName := header
	if re, err := addressRegexp(address); err == nil {
		fullName = re.ReplaceAllString(fullName, "")
	}
	fullName = strings.TrimSpace(nameTrim.Replace(fullName))
	logging.Debug("extracted full name from header", "header", header, "full_name", fullName)
	return fullName
}

// ProjectKey tries each address in order and returns the display name on the
// first recipient that matches. It reports false when no address matched.
func ProjectKey(recipients []string, addresses ...string) (string, bool) {
	for _, address := range addresses {
		header, ok := Match(recipients, address)
		if ok {
			return FullName(address, header), true
		}
	}
	return "", false
}

// ExtractAddress returns the first bare email address in s, lower-cased, or "".
func ExtractAddress(s string) string {
	return strings.ToLower(addressExp.FindString(s))
}

// addressRegexp matches address literally and case-insensitively.
func addressRegexp(address string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)` + regexp.QuoteMeta(address))
}
