// Copyright 2025 AxonFlow
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

// Package expr implements the `{{ ... }}` template/expression evaluator:
// a hand-written lexer and Pratt parser over a small grammar (identifiers,
// dotted/indexed paths, literals, arithmetic, comparison, boolean logic,
// ternary, and `| filter(args)` pipelines), tree-walked against a flat
// variable context produced by scope.Frame.Snapshot.
//
// No off-the-shelf expression library (expr-lang/expr, Knetic/govaluate,
// PaesslerAG/gval) covers this grammar's filter-pipeline form, so the
// evaluator is hand-rolled against the standard library only.
package expr

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
	tokDot
	tokQuestion
	tokColon
	tokPipe
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

type lexer struct {
	src  []rune
	pos  int
	toks []token
}

func lex(src string) ([]token, error) {
	l := &lexer{src: []rune(src)}
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case unicode.IsSpace(c):
			l.pos++
		case c == '(':
			l.emit(tokLParen, "(")
			l.pos++
		case c == ')':
			l.emit(tokRParen, ")")
			l.pos++
		case c == '[':
			l.emit(tokLBracket, "[")
			l.pos++
		case c == ']':
			l.emit(tokRBracket, "]")
			l.pos++
		case c == ',':
			l.emit(tokComma, ",")
			l.pos++
		case c == '.':
			l.emit(tokDot, ".")
			l.pos++
		case c == '?':
			l.emit(tokQuestion, "?")
			l.pos++
		case c == ':':
			l.emit(tokColon, ":")
			l.pos++
		case c == '|':
			l.emit(tokPipe, "|")
			l.pos++
		case c == '\'' || c == '"':
			if err := l.lexString(c); err != nil {
				return nil, err
			}
		case c == '/' && len(l.toks) > 0 && (l.toks[len(l.toks)-1].kind == tokLParen || l.toks[len(l.toks)-1].kind == tokComma):
			// Regex literal /pattern/flags, only recognized as a standalone
			// argument token; lexed as a string token carrying the raw text
			// including slashes so the parser/filter layer can interpret it.
			if err := l.lexRegex(); err != nil {
				return nil, err
			}
		case unicode.IsDigit(c):
			l.lexNumber()
		case unicode.IsLetter(c) || c == '_':
			l.lexIdent()
		default:
			if err := l.lexOperator(); err != nil {
				return nil, err
			}
		}
	}
	l.emit(tokEOF, "")
	return l.toks, nil
}

func (l *lexer) emit(k tokenKind, text string) {
	l.toks = append(l.toks, token{kind: k, text: text})
}

func (l *lexer) lexString(quote rune) error {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			l.toks = append(l.toks, token{kind: tokString, text: sb.String()})
			return nil
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			if next := l.src[l.pos]; next != quote && next != '\\' {
				sb.WriteRune('\\')
			}
			sb.WriteRune(l.src[l.pos])
			l.pos++
			continue
		}
		sb.WriteRune(c)
		l.pos++
	}
	return fmt.Errorf("expr: unterminated string starting at %d", start)
}

func (l *lexer) lexRegex() error {
	start := l.pos
	l.pos++
	var sb strings.Builder
	sb.WriteRune('/')
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		sb.WriteRune(c)
		l.pos++
		if c == '/' {
			// consume trailing flags
			for l.pos < len(l.src) && unicode.IsLetter(l.src[l.pos]) {
				sb.WriteRune(l.src[l.pos])
				l.pos++
			}
			l.toks = append(l.toks, token{kind: tokString, text: sb.String()})
			return nil
		}
	}
	return fmt.Errorf("expr: unterminated regex literal starting at %d", start)
}

func (l *lexer) lexNumber() {
	start := l.pos
	for l.pos < len(l.src) && (unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
		l.pos++
	}
	text := string(l.src[start:l.pos])
	var f float64
	fmt.Sscanf(text, "%g", &f)
	l.toks = append(l.toks, token{kind: tokNumber, text: text, num: f})
}

func (l *lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.src) && (unicode.IsLetter(l.src[l.pos]) || unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.pos++
	}
	l.emit(tokIdent, string(l.src[start:l.pos]))
}

var multiCharOps = []string{"==", "!=", "<=", ">=", "&&", "||"}

func (l *lexer) lexOperator() error {
	rest := string(l.src[l.pos:])
	for _, op := range multiCharOps {
		if strings.HasPrefix(rest, op) {
			l.emit(tokOp, op)
			l.pos += len(op)
			return nil
		}
	}
	c := l.src[l.pos]
	switch c {
	case '+', '-', '*', '/', '%', '<', '>', '!':
		l.emit(tokOp, string(c))
		l.pos++
		return nil
	}
	return fmt.Errorf("expr: unexpected character %q at position %d", c, l.pos)
}
