// Package quote removes quoted reply chains from plain text email bodies.
//
// Lines starting with ">" or "|" are dropped, together with the attribution
// line that introduces the first quoted block ("On Wed, 1 Jan 2020, Joe
// wrote:"). Once an Outlook-style "original message" separator is seen,
// everything from it to the end of the body is dropped.
package quote

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// quotePlaceholder replaces a blanked attribution line so it reads as quoted.
const quotePlaceholder = "> "

// State is the position of the stripping automaton within one body.
type State int

const (
	// StateNormal is still watching for the first attribution line.
	StateNormal State = iota
	// StateAttributed has consumed an attribution line; it fires once per body.
	StateAttributed
	// StateOutlook has seen a separator; nothing else is emitted.
	StateOutlook
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateAttributed:
		return "attributed"
	case StateOutlook:
		return "outlook"
	default:
		return "unknown"
	}
}

// Stripper removes quoted content. The zero value is not usable; call New.
type Stripper struct {
	separators []string
}

// Option configures a Stripper.
type Option func(*Stripper)

// WithSeparators replaces the built-in separator dictionary.
func WithSeparators(separators []string) Option {
	return func(s *Stripper) {
		s.separators = separators
	}
}

// New creates a Stripper using the built-in separators unless overridden.
func New(opts ...Option) *Stripper {
	s := &Stripper{}
	for _, opt := range opts {
		opt(s)
	}
	if s.separators == nil {
		s.separators = DefaultSeparators()
	}
	return s
}

// Strip returns body without quoted lines.
func (s *Stripper) Strip(body string) string {
	var out strings.Builder
	// Reading from a strings.Reader and writing to a strings.Builder cannot fail.
	_ = s.Copy(&out, strings.NewReader(body))
	return out.String()
}

// Copy streams r to w, dropping quoted lines. A nil r writes nothing.
func (s *Stripper) Copy(w io.Writer, r io.Reader) error {
	if r == nil {
		return nil
	}

	m := newMachine(s.separators)
	emit := func(l *line) error {
		if l == nil {
			return nil
		}
		if _, err := io.WriteString(w, l.text+l.term); err != nil {
			return err
		}
		return nil
	}

	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadString('\n')
		if raw != "" {
			if werr := emit(m.step(newLine(raw))); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}

	// Drain the two lines still held in the window.
	for i := 0; i < 2; i++ {
		if err := emit(m.step(nil)); err != nil {
			return err
		}
	}
	return nil
}

// line is one body line split from its terminator, which is "\n" or "" for
// a final unterminated line. A "\r" before the newline stays in text.
type line struct {
	text string
	term string
}

func newLine(raw string) *line {
	if strings.HasSuffix(raw, "\n") {
		return &line{text: raw[:len(raw)-1], term: "\n"}
	}
	return &line{text: raw}
}

// machine is the three-line lookahead automaton. Each step pushes the newest
// line in and decides the fate of the oldest one as it leaves the window.
type machine struct {
	separators []string
	state      State
	older      *line
	middle     *line
}

func newMachine(separators []string) *machine {
	return &machine{separators: separators, state: StateNormal}
}

// step advances the window by one line and returns the line to emit, if any.
// A nil newest marks the end of input.
func (m *machine) step(newest *line) *line {
	older := m.older
	middle := m.middle
	m.older, m.middle = middle, newest

	if m.state != StateOutlook && older != nil && m.isSeparator(older.text) {
		m.state = StateOutlook
	}

	if m.state == StateNormal && newest != nil && isQuoted(newest.text) {
		switch {
		case older != nil && looksLikeAttribution(older.text):
			older.text = quotePlaceholder
		case middle != nil && looksLikeAttribution(middle.text):
			middle.text = quotePlaceholder
		}
		m.state = StateAttributed
	}

	if older == nil || isQuoted(older.text) || m.state == StateOutlook {
		return nil
	}
	return older
}

func (m *machine) isSeparator(text string) bool {
	for _, sep := range m.separators {
		if strings.Contains(text, sep) {
			return true
		}
	}
	return false
}

func isQuoted(text string) bool {
	return strings.HasPrefix(text, ">") || strings.HasPrefix(text, "|")
}

func looksLikeAttribution(text string) bool {
	return strings.HasSuffix(text, ":") || strings.HasSuffix(text, ":\r")
}
