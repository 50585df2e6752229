package parser

import (
	"strings"
	"unicode"

	"github.com/leapstack-labs/sqltyper/pkg/token"
)

// Lexer tokenizes PostgreSQL input.
type Lexer struct {
	input   string
	base    token.Position // position of input[0] within the enclosing file
	pos     int            // current position in input
	readPos int            // reading position (after current char)
	ch      byte           // current char under examination
	line    int            // current line number (1-based)
	col     int            // current column number (1-based)

	// Comments collected during lexing
	Comments []*token.Comment
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	return newLexerAt(input, token.Position{Line: 1, Column: 1})
}

// newLexerAt creates a Lexer for a fragment that starts at base in its file,
// so that positions of a function body stay file-relative.
func newLexerAt(input string, base token.Position) *Lexer {
	l := &Lexer{
		input: input,
		base:  base,
		line:  base.Line,
		col:   base.Column - 1,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	if l.pos < len(l.input) && l.readPos > 0 && l.input[l.pos] == '\n' {
		l.line++
		l.col = 0
	}
	l.pos = l.readPos
	l.readPos++
	l.col++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	return l.peekAt(1)
}

func (l *Lexer) peekAt(n int) byte {
	i := l.pos + n
	if i >= len(l.input) {
		return 0
	}
	return l.input[i]
}

// currentPos returns the position of the current character.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.base.Offset + l.pos,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	tok := l.scan()
	tok.Pos = pos
	tok.End = l.currentPos()
	return tok
}

func (l *Lexer) scan() token.Token {
	switch {
	case l.ch == 0:
		return token.Token{Type: token.EOF}
	case l.ch == '\'':
		return l.readString(false)
	case (l.ch == 'e' || l.ch == 'E') && l.peekChar() == '\'':
		l.readChar()
		return l.readString(true)
	case (l.ch == 'b' || l.ch == 'B' || l.ch == 'x' || l.ch == 'X') && l.peekChar() == '\'':
		l.readChar()
		return l.readString(false)
	case l.ch == '"':
		return l.readQuotedIdentifier()
	case l.ch == '$':
		return l.readDollar()
	case isLetter(l.ch) || l.ch == '_':
		ident := l.readIdentifier()
		typ := token.LookupIdent(ident)
		return token.Token{Type: typ, Literal: strings.ToLower(ident)}
	case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
		return token.Token{Type: token.NUMBER, Literal: l.readNumber()}
	}

	if t, ok := punctuation[l.ch]; ok {
		if l.ch == ':' && l.peekChar() == ':' {
			l.readChar()
			l.readChar()
			return token.Token{Type: token.DCOLON, Literal: "::"}
		}
		lit := string(l.ch)
		l.readChar()
		return token.Token{Type: t, Literal: lit}
	}

	if isOperatorChar(l.ch) {
		return l.readOperator()
	}

	lit := string(l.ch)
	l.readChar()
	return token.Token{Type: token.ILLEGAL, Literal: lit}
}

var punctuation = map[byte]token.TokenType{
	'.': token.DOT,
	',': token.COMMA,
	';': token.SEMICOLON,
	':': token.COLON,
	'(': token.LPAREN,
	')': token.RPAREN,
	'[': token.LBRACKET,
	']': token.RBRACKET,
}

var operatorTokens = map[string]token.TokenType{
	"+":  token.PLUS,
	"-":  token.MINUS,
	"*":  token.STAR,
	"/":  token.SLASH,
	"%":  token.PERCENT,
	"^":  token.CARET,
	"||": token.DPIPE,
	"=":  token.EQ,
	"<>": token.NE,
	"!=": token.NE,
	"<":  token.LT,
	">":  token.GT,
	"<=": token.LE,
	">=": token.GE,
}

func isOperatorChar(ch byte) bool {
	return strings.IndexByte("+-*/<>=~!@#%^&|`?", ch) >= 0
}

// readOperator reads the longest operator at the current position using the
// PostgreSQL rule: a multi-character operator cannot end in + or - unless it
// also contains one of ~ ! @ # % ^ & | ` ?, and -- or /* start a comment.
func (l *Lexer) readOperator() token.Token {
	start := l.pos
	end := start
	for end < len(l.input) && isOperatorChar(l.input[end]) {
		if end > start && (strings.HasPrefix(l.input[end:], "--") || strings.HasPrefix(l.input[end:], "/*")) {
			break
		}
		end++
	}
	op := l.input[start:end]
	if len(op) > 1 && !strings.ContainsAny(op, "~!@#%^&|`?") {
		for len(op) > 1 && (op[len(op)-1] == '+' || op[len(op)-1] == '-') {
			op = op[:len(op)-1]
		}
	}
	for range op {
		l.readChar()
	}
	if t, ok := operatorTokens[op]; ok {
		return token.Token{Type: t, Literal: op}
	}
	return token.Token{Type: token.OP, Literal: op}
}

// skipWhitespaceAndComments skips whitespace and collects comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			l.collectLineComment()
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.collectBlockComment()
			continue
		}

		break
	}
}

// collectLineComment collects a line comment.
func (l *Lexer) collectLineComment() {
	startPos := l.currentPos()
	startOffset := l.pos

	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}

	l.Comments = append(l.Comments, &token.Comment{
		Kind: token.LineComment,
		Text: l.input[startOffset:l.pos],
		Span: token.Span{Start: startPos, End: l.currentPos()},
	})
}

// collectBlockComment collects a block comment. Block comments nest.
func (l *Lexer) collectBlockComment() {
	startPos := l.currentPos()
	startOffset := l.pos

	l.readChar() // skip '/'
	l.readChar() // skip '*'

	depth := 1
	for l.ch != 0 && depth > 0 {
		switch {
		case l.ch == '*' && l.peekChar() == '/':
			depth--
			l.readChar()
		case l.ch == '/' && l.peekChar() == '*':
			depth++
			l.readChar()
		}
		l.readChar()
	}

	l.Comments = append(l.Comments, &token.Comment{
		Kind: token.BlockComment,
		Text: l.input[startOffset:l.pos],
		Span: token.Span{Start: startPos, End: l.currentPos()},
	})
}

// readString reads a single-quoted string literal.
// Doubled single quotes are an escape; with escapes set, so are backslashes.
func (l *Lexer) readString(escapes bool) token.Token {
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		switch {
		case l.ch == 0:
			return token.Token{Type: token.ILLEGAL, Literal: ErrUnterminatedString}
		case l.ch == '\'' && l.peekChar() == '\'':
			result.WriteByte('\'')
			l.readChar()
			l.readChar()
		case l.ch == '\'':
			l.readChar() // skip closing quote
			return token.Token{Type: token.STRING, Literal: result.String()}
		case escapes && l.ch == '\\' && l.peekChar() != 0:
			l.readChar()
			result.WriteByte(unescape(l.ch))
			l.readChar()
		default:
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
}

func unescape(ch byte) byte {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	default:
		return ch
	}
}

// readQuotedIdentifier reads a double-quoted identifier.
// Doubled double quotes are an escape: "col""name" -> col"name
func (l *Lexer) readQuotedIdentifier() token.Token {
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		switch {
		case l.ch == 0:
			return token.Token{Type: token.ILLEGAL, Literal: ErrUnterminatedIdent}
		case l.ch == '"' && l.peekChar() == '"':
			result.WriteByte('"')
			l.readChar()
			l.readChar()
		case l.ch == '"':
			l.readChar()
			return token.Token{Type: token.IDENT, Literal: result.String(), Quoted: true}
		default:
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
}

// readDollar reads a positional parameter ($1) or a dollar-quoted string
// ($$...$$, $tag$...$tag$).
func (l *Lexer) readDollar() token.Token {
	if isDigit(l.peekChar()) {
		l.readChar() // skip '$'
		start := l.pos
		for isDigit(l.ch) {
			l.readChar()
		}
		return token.Token{Type: token.PARAM, Literal: l.input[start:l.pos]}
	}

	i := l.pos + 1
	for i < len(l.input) && (isLetter(l.input[i]) || isDigit(l.input[i]) || l.input[i] == '_') {
		i++
	}
	if i >= len(l.input) || l.input[i] != '$' {
		l.readChar()
		return token.Token{Type: token.ILLEGAL, Literal: "$"}
	}
	tag := l.input[l.pos : i+1]
	bodyStart := i + 1
	n := strings.Index(l.input[bodyStart:], tag)
	if n < 0 {
		for l.ch != 0 {
			l.readChar()
		}
		return token.Token{Type: token.ILLEGAL, Literal: ErrUnterminatedString}
	}
	body := l.input[bodyStart : bodyStart+n]
	for l.pos < bodyStart+n+len(tag) {
		l.readChar()
	}
	return token.Token{Type: token.DOLLAR_STRING, Literal: body}
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '$' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && l.peekChar() != '.' {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) ||
		((l.peekChar() == '+' || l.peekChar() == '-') && isDigit(l.peekAt(2)))) {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

// isLetter returns true if ch is a letter or a byte of a multi-byte rune.
func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch >= 0x80
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input.
func Tokenize(input string) []token.Token {
	l := NewLexer(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens
}
