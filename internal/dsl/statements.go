package dsl

import (
	"regexp"
	"strconv"
	"strings"
)

var requiresBlock = regexp.MustCompile(`\bRequires\s*\{`)

// statement is one "trigger -> dependency [: message]" line of source.
type statement struct {
	line       int
	text       string
	trigger    string
	dependency string
	message    string
}

// extractBlock returns the body of the first Requires { ... } block in text,
// with the line it starts on. Text without a block is returned whole.
func extractBlock(text string) (string, int, error) {
	loc := requiresBlock.FindStringIndex(text)
	if loc == nil {
		return text, 1, nil
	}
	start := loc[1]
	line := 1 + strings.Count(text[:start], "\n")

	var quote byte
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '}':
			return text[start:i], line, nil
		}
	}
	return "", line, &SyntaxError{Line: line, Msg: "unterminated Requires block"}
}

// splitStatements breaks body into statements on newlines and semicolons
// outside string literals. Blank statements are dropped.
func splitStatements(body string, firstLine int) ([]statement, error) {
	var (
		out   []statement
		buf   strings.Builder
		quote byte
		line  = firstLine
		start = firstLine
	)

	flush := func() error {
		text := strings.TrimSpace(buf.String())
		buf.Reset()
		if text == "" {
			return nil
		}
		st, err := parseStatement(text, start)
		if err != nil {
			return err
		}
		out = append(out, st)
		return nil
	}

	for i := 0; i < len(body); i++ {
		c := body[i]
		if quote != 0 {
			buf.WriteByte(c)
			if c == '\\' && i+1 < len(body) {
				i++
				buf.WriteByte(body[i])
			} else if c == quote {
				quote = 0
			}
			if c == '\n' {
				line++
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
			buf.WriteByte(c)
		case ';', '\n':
			if err := flush(); err != nil {
				return nil, err
			}
			if c == '\n' {
				line++
			}
			start = line
		default:
			if buf.Len() == 0 && (c == ' ' || c == '\t' || c == '\r') {
				continue
			}
			buf.WriteByte(c)
		}
	}
	if quote != 0 {
		return nil, &SyntaxError{Line: start, Statement: strings.TrimSpace(buf.String()), Msg: "unterminated string"}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// parseStatement splits "trigger -> dependency [: "message"]".
func parseStatement(text string, line int) (statement, error) {
	st := statement{line: line, text: text}

	arrow := indexTopLevel(text, "->")
	if arrow < 0 {
		return st, &SyntaxError{Line: line, Statement: text, Msg: "expected '->'"}
	}
	st.trigger = strings.TrimSpace(text[:arrow])
	rest := strings.TrimSpace(text[arrow+2:])

	if colon := indexTopLevel(rest, ":"); colon >= 0 {
		msg, err := unquote(strings.TrimSpace(rest[colon+1:]))
		if err != nil {
			return st, &SyntaxError{Line: line, Statement: text, Msg: "message must be a quoted string"}
		}
		st.message = msg
		rest = strings.TrimSpace(rest[:colon])
	}
	st.dependency = rest

	if st.trigger == "" {
		return st, &SyntaxError{Line: line, Statement: text, Msg: "missing trigger"}
	}
	if st.dependency == "" {
		return st, &SyntaxError{Line: line, Statement: text, Msg: "missing dependency"}
	}
	if indexTopLevel(st.dependency, "->") >= 0 {
		return st, &SyntaxError{Line: line, Statement: text, Msg: "unexpected '->'"}
	}
	return st, nil
}

// indexTopLevel finds sep outside string literals, parentheses and brackets.
func indexTopLevel(s, sep string) int {
	var (
		quote byte
		depth int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
			continue
		case '(', '[':
			depth++
			continue
		case ')', ']':
			depth--
			continue
		}
		if depth == 0 && strings.HasPrefix(s[i:], sep) {
			return i
		}
	}
	return -1
}

// indexComment finds the start of a // or /* comment outside string
// literals.
func indexComment(s string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' && quote != '`' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '/':
			if i+1 < len(s) && (s[i+1] == '/' || s[i+1] == '*') {
				return i
			}
		}
	}
	return -1
}

func unquote(s string) (string, error) {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = `"` + strings.ReplaceAll(s[1:len(s)-1], `"`, `\"`) + `"`
	}
	return strconv.Unquote(s)
}
