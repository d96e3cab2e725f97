package agent

import (
	"regexp"
	"strings"
)

// markdownRules run in order; each replaces its pattern with repl.
var markdownRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	// rules first so "***" lines are not read as emphasis
	{regexp.MustCompile(`(?m)^[ \t]*[-*_]{3,}[ \t]*$`), ""},
	// fenced code keeps its content, drops the fences and language tag
	{regexp.MustCompile("(?s)```(?:[^\\n`]*\\n)?(.*?)```"), "$1"},
	{regexp.MustCompile(`\*\*\*(.+?)\*\*\*`), "$1"},
	{regexp.MustCompile(`\*\*(.+?)\*\*`), "$1"},
	{regexp.MustCompile(`\*(.+?)\*`), "$1"},
	{regexp.MustCompile(`___(.+?)___`), "$1"},
	{regexp.MustCompile(`__(.+?)__`), "$1"},
	{regexp.MustCompile(`_(.+?)_`), "$1"},
	{regexp.MustCompile(`(?m)(^|[ \t])#{1,6}[ \t]+`), "$1"},
	{regexp.MustCompile("`([^`]+)`"), "$1"},
	{regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`), ""},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"},
	{regexp.MustCompile(`~~(.+?)~~`), "$1"},
	{regexp.MustCompile(`(?m)^>\s+`), ""},
	{regexp.MustCompile("`"), ""},
	{regexp.MustCompile(`[ \t]+`), " "},
	{regexp.MustCompile(`[ \t]*\n[ \t]*`), "\n"},
	{regexp.MustCompile(`\n\s*\n`), "\n\n"},
}

// RemoveMarkdown strips emphasis, headings, code, links, images,
// strikethrough, rules and blockquote markers, keeping the text and the
// line structure.
func RemoveMarkdown(text string) string {
	for _, rule := range markdownRules {
		text = rule.re.ReplaceAllString(text, rule.repl)
	}
	return strings.TrimSpace(text)
}
