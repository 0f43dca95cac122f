package envelope

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/mailglue/internal/recipient"
)

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func TestReadPlainMessage(t *testing.T) {
	raw := crlf(`From: Arthur Dent <arthur@vogon.org>
To: OPS <jira@example.org>, Ford <ford@example.org>
Cc: help@example.org
Subject: Printer on fire #BUG
Message-Id: <abc123@vogon.org>
In-Reply-To: <parent@vogon.org>
Content-Type: text/plain; charset=utf-8

It is on fire.
`)

	msg, err := Read(strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, "Printer on fire #BUG", msg.Subject)
	assert.Equal(t, "Arthur Dent <arthur@vogon.org>", msg.From)
	assert.Equal(t, []string{
		"OPS <jira@example.org>",
		"Ford <ford@example.org>",
		"help@example.org",
	}, msg.Recipients)
	assert.Equal(t, "abc123@vogon.org", msg.MessageID)
	assert.Equal(t, []string{"parent@vogon.org"}, msg.InReplyTo)
	assert.Equal(t, "It is on fire.\r\n", msg.Body)
}

func TestReadEncodedSubject(t *testing.T) {
	raw := crlf(`From: a@example.org
To: jira@example.org
Subject: =?utf-8?q?Dr=C3=BCcker_kaputt?=
Content-Type: text/plain

body
`)

	msg, err := Read(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Drücker kaputt", msg.Subject)
}

func TestReadEncodedDisplayName(t *testing.T) {
	raw := crlf(`From: =?utf-8?q?J=C3=BCrgen?= <juergen@example.org>
To: =?utf-8?q?=C3=9CBER?= <jira@example.org>
Subject: hello
Content-Type: text/plain

body
`)

	msg, err := Read(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Jürgen <juergen@example.org>", msg.From)
	assert.Equal(t, []string{"ÜBER <jira@example.org>"}, msg.Recipients)

	key, ok := recipient.ProjectKey(msg.Recipients, "jira@example.org")
	require.True(t, ok)
	assert.Equal(t, "ÜBER", key)
}

func TestReadMultipartPrefersPlainText(t *testing.T) {
	raw := crlf(`From: a@example.org
To: jira@example.org
Subject: multi
Content-Type: multipart/alternative; boundary=XYZ

--XYZ
Content-Type: text/html

<p>html version</p>
--XYZ
Content-Type: text/plain

plain version
--XYZ--
`)

	msg, err := Read(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "plain version", strings.TrimSpace(msg.Body))
}

func TestReadHTMLOnly(t *testing.T) {
	raw := crlf(`From: a@example.org
To: jira@example.org
Subject: html
Content-Type: multipart/mixed; boundary=XYZ

--XYZ
Content-Type: text/html

<p>Hello <b>world</b></p>
--XYZ
Content-Type: application/pdf
Content-Disposition: attachment; filename=report.pdf

%PDF
--XYZ--
`)

	msg, err := Read(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Hello world")
	assert.NotContains(t, msg.Body, "<p>")
	assert.NotContains(t, msg.Body, "PDF")
}
