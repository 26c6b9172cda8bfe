package evidence

import (
	"regexp"
	"strconv"
	"strings"
)

// ErrorSignal is a failure location pulled out of compiler or runtime
// output.
type ErrorSignal struct {
	Path    string
	Line    int
	Message string
}

// DiffHunk locates one changed region in unified diff output.
type DiffHunk struct {
	Path      string
	StartLine int
	LineCount int
}

// Signals are the typed features extracted from one request.
type Signals struct {
	Errors     []ErrorSignal
	DiffHunks  []DiffHunk
	QueryTerms []string
}

// SignalInput is the raw material signals are derived from.
type SignalInput struct {
	// ErrorText is compiler/test/runtime output, possibly empty.
	ErrorText string
	// DiffText is unified diff output, possibly empty.
	DiffText string
	// UserQuery is the user's current request text.
	UserQuery string
}

var (
	// path:line references such as pkg/window/truncate.go:42.
	errorLocationPattern = regexp.MustCompile(`([\w./\\-]+\.\w+):(\d+)`)
	errorLinePattern     = regexp.MustCompile(`(?im)\b(?:error|panic|fatal|FAIL)\b[:\s]`)

	diffHeaderPattern = regexp.MustCompile(`^diff --git a/(\S+) b/(\S+)$`)
	hunkHeaderPattern = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

	queryStopwords = map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true,
		"to": true, "in": true, "of": true, "is": true, "it": true,
		"for": true, "on": true, "with": true, "that": true, "this": true,
		"please": true, "can": true, "you": true, "how": true, "what": true,
	}
)

// ExtractSignals derives typed signals from raw input. The transform is
// pure and stateless; unknown or malformed regions are skipped rather than
// reported.
func ExtractSignals(input SignalInput) Signals {
	var signals Signals
	signals.Errors = extractErrorSignals(input.ErrorText)
	signals.DiffHunks = extractDiffHunks(input.DiffText)
	signals.QueryTerms = extractQueryTerms(input.UserQuery)
	return signals
}

func extractErrorSignals(errorText string) []ErrorSignal {
	if strings.TrimSpace(errorText) == "" {
		return nil
	}
	var out []ErrorSignal
	for _, line := range strings.Split(errorText, "\n") {
		if !errorLinePattern.MatchString(line) && !errorLocationPattern.MatchString(line) {
			continue
		}
		signal := ErrorSignal{Message: strings.TrimSpace(line)}
		if loc := errorLocationPattern.FindStringSubmatch(line); loc != nil {
			signal.Path = loc[1]
			signal.Line, _ = strconv.Atoi(loc[2])
		}
		if signal.Message == "" {
			continue
		}
		out = append(out, signal)
	}
	return out
}

// extractDiffHunks walks unified diff output line by line, tracking the
// current file from `diff --git` headers and recording each hunk header.
func extractDiffHunks(diffText string) []DiffHunk {
	if strings.TrimSpace(diffText) == "" {
		return nil
	}
	var out []DiffHunk
	var currentPath string
	for _, line := range strings.Split(diffText, "\n") {
		if header := diffHeaderPattern.FindStringSubmatch(line); header != nil {
			currentPath = header[2]
			continue
		}
		hunk := hunkHeaderPattern.FindStringSubmatch(line)
		if hunk == nil || currentPath == "" {
			continue
		}
		start, _ := strconv.Atoi(hunk[1])
		count := 1
		if hunk[2] != "" {
			count, _ = strconv.Atoi(hunk[2])
		}
		out = append(out, DiffHunk{Path: currentPath, StartLine: start, LineCount: count})
	}
	return out
}

func extractQueryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '_' && r != '.' && r != '/'
	})
	var terms []string
	seen := make(map[string]bool)
	for _, field := range fields {
		if len(field) < 3 || queryStopwords[field] || seen[field] {
			continue
		}
		seen[field] = true
		terms = append(terms, field)
	}
	return terms
}
