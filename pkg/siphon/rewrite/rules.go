// Package rewrite implements the request-rewrite rule list and its matcher:
// an ordered set of domain/path-glob rules that decide whether an exchange
// should have its request or response body replaced.
package rewrite

import "errors"

// ErrEmptyPathGlob is returned by NewRule when path is empty; path-glob is
// the one required field on a rule.
var ErrEmptyPathGlob = errors.New("rewrite: path glob must not be empty")

// Rule is a single rewrite entry. Domain is optional (empty matches any
// host); RequestBody/ResponseBody are optional UTF-8 replacement bodies —
// a nil pointer means "don't replace that side".
type Rule struct {
	Enabled      bool
	Domain       string
	PathGlob     string
	RequestBody  *string
	ResponseBody *string
}

// NewRule validates and constructs a Rule.
func NewRule(enabled bool, domain, pathGlob string, requestBody, responseBody *string) (Rule, error) {
	if pathGlob == "" {
		return Rule{}, ErrEmptyPathGlob
	}
	return Rule{
		Enabled:      enabled,
		Domain:       domain,
		PathGlob:     pathGlob,
		RequestBody:  requestBody,
		ResponseBody: responseBody,
	}, nil
}

// List is an ordered, enable-able set of rules. Append and UpsertAt never
// reorder existing rules, so their indices stay stable; DeleteAt shifts
// every later rule down by one.
type List struct {
	Enabled bool
	Rules   []Rule
}

// NewList returns an empty, enabled rule list.
func NewList() *List {
	return &List{Enabled: true}
}

// Append adds rule to the end of the list.
func (l *List) Append(r Rule) {
	l.Rules = append(l.Rules, r)
}

// UpsertAt replaces the rule at idx, or appends if idx == len(l.Rules).
// It reports false if idx is out of either range.
func (l *List) UpsertAt(idx int, r Rule) bool {
	switch {
	case idx == len(l.Rules):
		l.Rules = append(l.Rules, r)
		return true
	case idx >= 0 && idx < len(l.Rules):
		l.Rules[idx] = r
		return true
	default:
		return false
	}
}

// DeleteAt removes the rule at idx, shifting later indices down by one.
// Callers that need indices to stay stable across a delete should prefer
// disabling the rule (Enabled = false) instead.
func (l *List) DeleteAt(idx int) bool {
	if idx < 0 || idx >= len(l.Rules) {
		return false
	}
	l.Rules = append(l.Rules[:idx], l.Rules[idx+1:]...)
	return true
}
