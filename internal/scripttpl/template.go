package scripttpl

import (
	_ "embed"
	"regexp"
	"strings"
)

const (
	ProjectNameToken = "{{PROJECT_NAME}}"
	ProjectPathToken = "{{PROJECT_PATH}}"
)

//go:embed default.sh.tmpl
var defaultTemplate string

var tokenPattern = regexp.MustCompile(`\{\{[A-Z][A-Z0-9_]*\}\}`)

type Values struct {
	ProjectName string
	ProjectPath string
}

// Default returns the built-in project scaffold template.
func Default() string {
	return defaultTemplate
}

// Render substitutes every placeholder occurrence. Values are inserted
// verbatim: no shell escaping is applied.
func Render(tpl string, v Values) string {
	return strings.NewReplacer(
		ProjectNameToken, v.ProjectName,
		ProjectPathToken, v.ProjectPath,
	).Replace(tpl)
}

// Leftover lists the distinct placeholder tokens still present in s.
func Leftover(s string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, tok := range tokenPattern.FindAllString(s, -1) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
