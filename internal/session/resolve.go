// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrModelNotInstalled is returned by ResolveModel when nothing matches.
var ErrModelNotInstalled = errors.New("model is not installed")

// AmbiguousModelError is returned when a name matches several installed models.
type AmbiguousModelError struct {
	Requested  string
	Rule       string // "base name", "prefix" or "substring"
	Candidates []string
}

func (e *AmbiguousModelError) Error() string {
	return fmt.Sprintf("%q matches several models by %s: %s",
		e.Requested, e.Rule, strings.Join(e.Candidates, ", "))
}

// ResolveModel maps a requested model name onto one of the installed models.
//
// Rules are tried in order and the first that yields exactly one match wins:
// exact name, name with ":latest", base name (the part before ':'), prefix,
// substring. A rule matching more than one model stops the search with an
// *AmbiguousModelError listing the candidates.
func ResolveModel(requested string, installed []string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return "", ErrModelNotInstalled
	}

	for _, m := range installed {
		if m == requested {
			return m, nil
		}
	}
	latest := requested + ":latest"
	for _, m := range installed {
		if m == latest {
			return m, nil
		}
	}

	rules := []struct {
		name  string
		match func(string) bool
	}{
		{"base name", func(m string) bool { return baseName(m) == requested }},
		{"prefix", func(m string) bool { return strings.HasPrefix(m, requested) }},
		{"substring", func(m string) bool { return strings.Contains(m, requested) }},
	}

	for _, rule := range rules {
		var matches []string
		for _, m := range installed {
			if rule.match(m) {
				matches = append(matches, m)
			}
		}
		switch len(matches) {
		case 0:
			continue
		case 1:
			return matches[0], nil
		default:
			return "", &AmbiguousModelError{Requested: requested, Rule: rule.name, Candidates: matches}
		}
	}

	return "", fmt.Errorf("%w: %s", ErrModelNotInstalled, requested)
}

func baseName(model string) string {
	if i := strings.IndexByte(model, ':'); i >= 0 {
		return model[:i]
	}
	return model
}
