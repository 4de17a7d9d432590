package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(src string) []TokenType {
	l := New(src)
	var out []TokenType
	for {
		tok := l.Next()
		out = append(out, tok.Type)
		if tok.Type == TokenEOF {
			return out
		}
	}
}

func TestPunctuationAndOperators(t *testing.T) {
	types := collect("(){},.-+;*! != = == < <= > >= /")
	require.Equal(t, []TokenType{
		TokenLeftParen, TokenRightParen, TokenLeftBrace, TokenRightBrace,
		TokenComma, TokenDot, TokenMinus, TokenPlus, TokenSemicolon, TokenStar,
		TokenBang, TokenBangEqual, TokenEqual, TokenEqualEqual,
		TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual,
		TokenSlash, TokenEOF,
	}, types)
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	l := New("var x = orchid")
	require.Equal(t, TokenVar, l.Next().Type)
	require.Equal(t, TokenIdentifier, l.Next().Type)
	require.Equal(t, TokenEqual, l.Next().Type)
	tok := l.Next()
	require.Equal(t, TokenIdentifier, tok.Type)
	require.Equal(t, "orchid", tok.Lexeme)
}

func TestStringLiteral(t *testing.T) {
	l := New(`"hello world"`)
	tok := l.Next()
	require.Equal(t, TokenString, tok.Type)
	require.Equal(t, `"hello world"`, tok.Lexeme)
}

func TestUnterminatedString(t *testing.T) {
	l := New(`"oops`)
	tok := l.Next()
	require.Equal(t, TokenError, tok.Type)
}

func TestNumberLiteral(t *testing.T) {
	l := New("123 45.67 89.")
	require.Equal(t, "123", l.Next().Lexeme)
	require.Equal(t, "45.67", l.Next().Lexeme)
	// A trailing '.' with no following digit is not consumed as part of
	// the number (spec.md's number-grammar edge case).
	numTok := l.Next()
	require.Equal(t, "89", numTok.Lexeme)
	require.Equal(t, TokenDot, l.Next().Type)
}

func TestLineCommentsAndLineTracking(t *testing.T) {
	l := New("var a = 1; // a comment\nvar b = 2;")
	for i := 0; i < 5; i++ {
		l.Next() // var a = 1 ;
	}
	tok := l.Next() // var (line 2)
	require.Equal(t, TokenVar, tok.Type)
	require.Equal(t, 2, tok.Line)
}
