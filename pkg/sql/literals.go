package sql

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrUnterminatedLiteral indicates a string literal or quoted identifier that never closes.
	ErrUnterminatedLiteral = errors.New("unterminated string literal or quoted identifier")
	// ErrUnterminatedComment indicates a block comment that never closes.
	ErrUnterminatedComment = errors.New("unterminated block comment")
)

// numericLiteralPattern matches literal contents that Postgres would coerce to an integer.
var numericLiteralPattern = regexp.MustCompile(`^\s*-?\d+\s*$`)

type tokenKind int

const (
	tokenCode tokenKind = iota
	tokenString
	tokenIdentifier
	tokenComment
)

// token is a run of statement text. For strings, value holds the decoded content.
type token struct {
	kind  tokenKind
	text  string
	value string
}

// lexSQL splits a statement into code, string literals ('...', E'...', U&'...',
// $tag$...$tag$), double-quoted identifiers and comments (-- to end of line, nested /* */).
// Quotes are escaped by doubling; backslashes only escape inside E'...' strings,
// matching standard_conforming_strings. Delimiters are all ASCII, so the scan works
// on bytes without splitting multi-byte runes.
func lexSQL(sqlQuery string) ([]token, error) {
	var tokens []token
	codeStart := 0

	for i := 0; i < len(sqlQuery); {
		tok, end, err := nextToken(sqlQuery, i)
		if err != nil {
			return nil, err
		}
		if end == 0 {
			i++
			continue
		}
		if i > codeStart {
			tokens = append(tokens, token{kind: tokenCode, text: sqlQuery[codeStart:i]})
		}
		tok.text = sqlQuery[i:end]
		tokens = append(tokens, tok)
		i, codeStart = end, end
	}
	if codeStart < len(sqlQuery) {
		tokens = append(tokens, token{kind: tokenCode, text: sqlQuery[codeStart:]})
	}
	return tokens, nil
}

// nextToken recognizes a quoted or comment token starting at i and returns its end.
// An end of 0 means the byte at i is plain code.
func nextToken(s string, i int) (token, int, error) {
	switch {
	case strings.HasPrefix(s[i:], "--"):
		end := strings.IndexByte(s[i:], '\n')
		if end < 0 {
			return token{kind: tokenComment}, len(s), nil
		}
		return token{kind: tokenComment}, i + end, nil

	case strings.HasPrefix(s[i:], "/*"):
		end, err := scanBlockComment(s, i)
		return token{kind: tokenComment}, end, err

	case s[i] == '\'':
		end, value, err := scanQuoted(s, i, '\'', false)
		return token{kind: tokenString, value: value}, end, err

	case (s[i] == 'E' || s[i] == 'e') && strings.HasPrefix(s[i+1:], "'") && atWordStart(s, i):
		end, value, err := scanQuoted(s, i+1, '\'', true)
		return token{kind: tokenString, value: value}, end, err

	case (s[i] == 'U' || s[i] == 'u') && strings.HasPrefix(s[i+1:], "&'") && atWordStart(s, i):
		// Unicode escapes stay encoded in value, so such a literal never reads as an integer.
		end, value, err := scanQuoted(s, i+2, '\'', false)
		return token{kind: tokenString, value: value}, end, err

	case s[i] == '"':
		end, value, err := scanQuoted(s, i, '"', false)
		return token{kind: tokenIdentifier, value: value}, end, err

	case s[i] == '$' && atWordStart(s, i):
		tag, ok := dollarTag(s, i)
		if !ok {
			return token{}, 0, nil
		}
		body := i + len(tag)
		end := strings.Index(s[body:], tag)
		if end < 0 {
			return token{}, 0, ErrUnterminatedLiteral
		}
		return token{kind: tokenString, value: s[body : body+end]}, body + end + len(tag), nil
	}
	return token{}, 0, nil
}

// scanQuoted reads a literal opened by quote at start. A doubled quote stays inside it.
func scanQuoted(s string, start int, quote byte, backslashEscapes bool) (int, string, error) {
	var value strings.Builder
	for j := start + 1; j < len(s); j++ {
		switch {
		case backslashEscapes && s[j] == '\\' && j+1 < len(s):
			j++
			value.WriteByte(s[j])
		case s[j] == quote:
			if j+1 < len(s) && s[j+1] == quote {
				value.WriteByte(quote)
				j++
				continue
			}
			return j + 1, value.String(), nil
		default:
			value.WriteByte(s[j])
		}
	}
	return 0, "", ErrUnterminatedLiteral
}

// scanBlockComment returns the end of the comment opened at start. Block comments nest.
func scanBlockComment(s string, start int) (int, error) {
	depth := 0
	for j := start; j < len(s)-1; j++ {
		switch {
		case s[j] == '/' && s[j+1] == '*':
			depth++
			j++
		case s[j] == '*' && s[j+1] == '/':
			depth--
			j++
			if depth == 0 {
				return j + 1, nil
			}
		}
	}
	return 0, ErrUnterminatedComment
}

// dollarTag returns the opening $tag$ at i. $1 style parameters are not tags.
func dollarTag(s string, i int) (string, bool) {
	j := i + 1
	if j < len(s) && s[j] >= '0' && s[j] <= '9' {
		return "", false
	}
	for j < len(s) && isIdentByte(s[j]) && s[j] != '$' {
		j++
	}
	if j >= len(s) || s[j] != '$' {
		return "", false
	}
	return s[i : j+1], true
}

func atWordStart(s string, i int) bool {
	return i == 0 || !isIdentByte(s[i-1])
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '$' || b >= 0x80 ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// StripComments replaces every comment with a single space and leaves literals untouched.
func StripComments(sqlQuery string) (string, error) {
	tokens, err := lexSQL(sqlQuery)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.Grow(len(sqlQuery))
	for _, tok := range tokens {
		if tok.kind == tokenComment {
			out.WriteByte(' ')
			continue
		}
		out.WriteString(tok.text)
	}
	return out.String(), nil
}

// StripStringLiterals empties every string literal ('') and replaces every comment with
// a space, so that text inside data or comments is never mistaken for SQL structure.
// Quoted identifiers are kept. Literals whose whole content is an integer are unquoted
// instead of emptied, because the database compares '999' and 999 the same way against
// an integer column. A literal, identifier or comment that never closes is an error.
func StripStringLiterals(sqlQuery string) (string, error) {
	tokens, err := lexSQL(sqlQuery)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.Grow(len(sqlQuery))
	for _, tok := range tokens {
		switch tok.kind {
		case tokenComment:
			out.WriteByte(' ')
		case tokenString:
			if numericLiteralPattern.MatchString(tok.value) {
				out.WriteString(strings.TrimSpace(tok.value))
			} else {
				out.WriteString("''")
			}
		default:
			out.WriteString(tok.text)
		}
	}
	return out.String(), nil
}
