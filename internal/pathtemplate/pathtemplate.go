// Copyright 2025 The AWP Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pathtemplate matches URI paths against templates with a single
// capture group, e.g. "v1/{*/projects/*}/tasks".
package pathtemplate

import (
	"fmt"
	"strings"
)

// Template is a compiled path template. Its capture group may span several
// path segments, and "*" stands for any single segment.
type Template struct {
	prefix  []string
	capture []string
	suffix  []string
}

// MatchResult is a successful path match.
type MatchResult struct {
	// Captured is the part of the path the {} group matched.
	Captured string
	// Rest is the part of the path left over after the template.
	Rest string
}

// New compiles raw, which must contain exactly one {} capture group.
func New(raw string) (*Template, error) {
	raw = trimSlash(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty template")
	}
	open, close := strings.IndexByte(raw, '{'), strings.IndexByte(raw, '}')
	if open < 0 || close < 0 {
		return nil, fmt.Errorf("no capture group {} in %s", raw)
	}
	if open > close {
		return nil, fmt.Errorf("invalid capture group in %s", raw)
	}
	if open != strings.LastIndexByte(raw, '{') || close != strings.LastIndexByte(raw, '}') {
		return nil, fmt.Errorf("duplicate { or } in %s", raw)
	}
	return &Template{
		prefix:  splitSegments(raw[:open]),
		capture: splitSegments(raw[open+1 : close]),
		suffix:  splitSegments(raw[close+1:]),
	}, nil
}

// Match reports whether path matches the template and, on a match, what the
// capture group took and what follows the template.
func (t *Template) Match(path string) (*MatchResult, bool) {
	rest := strings.Split(trimSlash(path), "/")
	rest, ok := consume(t.prefix, rest)
	if !ok {
		return nil, false
	}
	captured := rest
	if rest, ok = consume(t.capture, rest); !ok {
		return nil, false
	}
	captured = captured[:len(captured)-len(rest)]
	if rest, ok = consume(t.suffix, rest); !ok {
		return nil, false
	}
	return &MatchResult{
		Captured: strings.Join(captured, "/"),
		Rest:     "/" + strings.Join(rest, "/"),
	}, true
}

// consume matches want against the head of path and returns the unmatched
// tail.
func consume(want, path []string) ([]string, bool) {
	if len(path) < len(want) {
		return nil, false
	}
	for i, w := range want {
		if w != "*" && w != path[i] {
			return nil, false
		}
	}
	return path[len(want):], true
}

func splitSegments(s string) []string {
	var segments []string
	for seg := range strings.SplitSeq(trimSlash(s), "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

func trimSlash(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, "/"), "/")
}
