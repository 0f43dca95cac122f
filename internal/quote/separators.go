package quote

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/danielolaszy/mailglue/internal/logging"
)

// separatorsFile lists, one per line, the localized separators that Outlook-style
// clients put above a full quote of the previous message.
//
//go:embed outlook-email.translations
var separatorsFile string

// DefaultSeparators returns the built-in separator dictionary. It is parsed on
// first use and shared read-only for the life of the process.
var DefaultSeparators = sync.OnceValue(func() []string {
	separators, err := LoadSeparators(strings.NewReader(separatorsFile))
	if err != nil {
		logging.Error("failed to read built-in outlook separators", "error", err)
		return nil
	}
	logging.Debug("loaded outlook separators", "count", len(separators))
	return separators
})

// LoadSeparators reads one separator phrase per line. Blank lines are skipped
// since an empty phrase would match every line.
func LoadSeparators(r io.Reader) ([]string, error) {
	var separators []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		phrase := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(phrase) == "" {
			continue
		}
		separators = append(separators, phrase)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read separators: %w", err)
	}
	return separators, nil
}

// ReadSeparatorFile loads a separator dictionary from path.
func ReadSeparatorFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open separators file: %w", err)
	}
	defer f.Close()

	return LoadSeparators(f)
}
