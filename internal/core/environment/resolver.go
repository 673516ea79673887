package environment

import (
	"regexp"
	"strings"
)

var varPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Variable is one key/value pair of an environment or of the globals.
type Variable struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Resolve renders template with the environment values first and the globals
// second. For each variable only the first occurrence of {{key}} in the
// progressively rewritten string is replaced, so a token repeated in the
// template is filled by successive variables with the same key:
//
//	Resolve("{{a}}-{{a}}", env{a=X}, globals{a=Y}) == "X-Y"
//
// Tokens nobody matches are kept verbatim.
func Resolve(template string, env, globals []Variable) string {
	out := template
	for _, v := range env {
		out = strings.Replace(out, "{{"+v.Key+"}}", v.Value, 1)
	}
	for _, v := range globals {
		out = strings.Replace(out, "{{"+v.Key+"}}", v.Value, 1)
	}

	return out
}

// Unresolved returns the names of the {{name}} tokens left in s, in order of
// appearance and without duplicates.
func Unresolved(s string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, m := range varPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}

	return names
}

// Context is the variable state a request is rendered with: the selected
// environment, if any, and the globals.
type Context struct {
	Environment *Environment
	Globals     []Variable
}

// Resolve implements the request.Resolver interface for Context.
func (c Context) Resolve(template string) string {
	var env []Variable
	if c.Environment != nil {
		env = c.Environment.Values
	}

	return Resolve(template, env, c.Globals)
}
