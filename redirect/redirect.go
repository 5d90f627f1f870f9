// Package redirect implements the ordered regex -> template rewrite chain
// applied to a request path before static/API dispatch.
package redirect

import "regexp"

// Rule is one compiled (from, to) pair.
type Rule struct {
	from *regexp.Regexp
	to   string
}

// NewRule compiles a single redirect rule. from is anchored at both ends
// automatically if the caller did not already anchor it — a rule whose
// from does not begin with "/" simply never matches, which is surfaced as
// configuration guidance rather than enforced here.
func NewRule(from, to string) (Rule, error) {
	pattern := from
	if len(pattern) == 0 || pattern[0] != '^' {
		pattern = "^" + pattern
	}
	if len(pattern) == 0 || pattern[len(pattern)-1] != '$' {
		pattern = pattern + "$"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, err
	}
	return Rule{from: re, to: to}, nil
}

// Engine is a pure function of (path, rule list): applying it to the same
// input always yields the same output, and an empty rule list is the
// identity.
type Engine struct {
	rules []Rule
}

// New builds an Engine from already-compiled rules, in the order they
// should be applied.
func New(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// Apply folds the rule list left-to-right over path: each rule is given the
// *current* path, and if it matches, its captured groups are substituted
// into its template (via $1..$9) to produce the next current path. The
// fold is cumulative — a later rule may further transform an earlier
// rule's output, giving composable normalization without forcing combined
// patterns. Apply returns the final path and whether it differs from the
// input.
func (e *Engine) Apply(path string) (result string, changed bool) {
	current := path
	for _, rule := range e.rules {
		loc := rule.from.FindStringSubmatchIndex(current)
		if loc == nil {
			continue
		}
		expanded := rule.from.ExpandString(nil, rule.to, current, loc)
		current = string(expanded)
	}
	return current, current != path
}
