// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package selector parses the locator strings used by scenario steps.
package selector

import (
	"fmt"
	"strings"
)

// Kind is the query language a parsed selector is expressed in.
type Kind string

const (
	CSS   Kind = "css"
	XPath Kind = "xpath"
)

// Selector is a parsed locator.
type Selector struct {
	Kind Kind   // css or xpath
	Expr string // expression in that language
	Raw  string // the input string, for messages
}

func (s Selector) String() string {
	return s.Raw
}

// Parse parses a locator string. It handles:
// - css:<expr> and bare CSS selectors
// - xpath:<expr> and expressions starting with "/" or "("
// - text:<text>, elements whose own text contains <text>
// - placeholder:<text>, form fields with that exact placeholder
// - tag:has-text("<text>"), elements of tag whose text contains <text>
func Parse(input string) (Selector, error) {
	raw := input
	input = strings.TrimSpace(input)
	if input == "" {
		return Selector{}, fmt.Errorf("empty selector")
	}

	if prefix, rest, ok := strings.Cut(input, ":"); ok {
		switch strings.ToLower(prefix) {
		case "css":
			if rest = strings.TrimSpace(rest); rest == "" {
				return Selector{}, fmt.Errorf("empty css selector in %q", raw)
			}
			return Selector{Kind: CSS, Expr: rest, Raw: raw}, nil
		case "xpath":
			if rest = strings.TrimSpace(rest); rest == "" {
				return Selector{}, fmt.Errorf("empty xpath selector in %q", raw)
			}
			return Selector{Kind: XPath, Expr: rest, Raw: raw}, nil
		case "text":
			text := removeQuotes(strings.TrimSpace(rest))
			if text == "" {
				return Selector{}, fmt.Errorf("empty text in %q", raw)
			}
			return Selector{
				Kind: XPath,
				Expr: fmt.Sprintf(`//*[text()[contains(normalize-space(.), %s)]]`, xpathLiteral(text)),
				Raw:  raw,
			}, nil
		case "placeholder":
			text := removeQuotes(strings.TrimSpace(rest))
			if text == "" {
				return Selector{}, fmt.Errorf("empty placeholder in %q", raw)
			}
			return Selector{
				Kind: CSS,
				Expr: fmt.Sprintf(`[placeholder=%s]`, cssString(text)),
				Raw:  raw,
			}, nil
		}
	}

	if strings.HasPrefix(input, "/") || strings.HasPrefix(input, "(") {
		return Selector{Kind: XPath, Expr: input, Raw: raw}, nil
	}

	if tag, text, ok := parseHasText(input); ok {
		if tag == "" {
			tag = "*"
		}
		return Selector{
			Kind: XPath,
			Expr: fmt.Sprintf(`//%s[contains(normalize-space(.), %s)]`, tag, xpathLiteral(text)),
			Raw:  raw,
		}, nil
	}

	return Selector{Kind: CSS, Expr: input, Raw: raw}, nil
}

// parseHasText recognizes `tag:has-text("text")`. The tag must be a plain
// element name; anything more complex is left to the CSS engine.
func parseHasText(input string) (tag, text string, ok bool) {
	const marker = ":has-text("
	idx := strings.Index(input, marker)
	if idx < 0 || !strings.HasSuffix(input, ")") {
		return "", "", false
	}
	tag = input[:idx]
	for _, r := range tag {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-') {
			return "", "", false
		}
	}
	text = removeQuotes(strings.TrimSpace(input[idx+len(marker) : len(input)-1]))
	if text == "" {
		return "", "", false
	}
	return strings.ToLower(tag), text, true
}

// xpathLiteral quotes s for use in an XPath 1.0 expression, which has no
// escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, '"', `)
		}
		b.WriteString(`"` + p + `"`)
	}
	b.WriteString(")")
	return b.String()
}

func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)
	return `"` + r.Replace(s) + `"`
}

func removeQuotes(s string) string {
	if len(s) >= 2 {
		first := s[0]
		last := s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
