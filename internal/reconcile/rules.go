package reconcile

import (
	"fmt"
	"regexp"
	"strings"
)

// NamePlaceholder marks where a rule's target template receives the per-mod
// directory name captured from the source path.
const NamePlaceholder = "{name}"

// Rule maps one recognized source directory layout to a destination template.
// Match must contain exactly one capture group: the per-mod leaf name. Target
// is the destination path with NamePlaceholder standing in for that leaf.
type Rule struct {
	Match  *regexp.Regexp
	Target string
}

// NewRule compiles a translation rule from its textual form.
func NewRule(pattern, target string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("compiling rule pattern %q: %w", pattern, err)
	}
	if re.NumSubexp() < 1 {
		return Rule{}, fmt.Errorf("rule pattern %q must capture the mod name", pattern)
	}
	if !strings.Contains(target, NamePlaceholder) {
		return Rule{}, fmt.Errorf("rule target %q must contain %s", target, NamePlaceholder)
	}
	return Rule{Match: re, Target: target}, nil
}

// Translate rewrites path into the rule's target layout. The second return
// is false when the rule does not recognize the path.
func (r Rule) Translate(path string) (string, bool) {
	m := r.Match.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	return strings.Replace(r.Target, NamePlaceholder, m[1], 1), true
}

// Ruleset is an ordered path-translation table plus the exclusion patterns
// for paths that must not be carried into the destination at all (the source
// environment's own game-data root, scratch directories with no stable
// counterpart).
type Ruleset struct {
	Rules []Rule
	Skip  []string // substring patterns, checked before the rules
}

// Excluded reports whether path matches one of the exclusion patterns.
func (rs Ruleset) Excluded(path string) bool {
	for _, pat := range rs.Skip {
		if strings.Contains(path, pat) {
			return true
		}
	}
	return false
}

// Translate runs the rules in order and returns the first match.
func (rs Ruleset) Translate(path string) (string, bool) {
	for _, r := range rs.Rules {
		if out, ok := r.Translate(path); ok {
			return out, true
		}
	}
	return "", false
}
