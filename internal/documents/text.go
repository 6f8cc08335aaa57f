package documents

import (
	"strconv"
	"strings"
)

// kerningSpace is the TJ adjustment (thousandths of text space) beyond which
// a gap is treated as a word break.
const kerningSpace = 200

// ExtractText recovers the shown text of a page content stream. It reads the
// string operands of the text showing operators (Tj, TJ, ' and ") and breaks
// lines on text positioning operators. Glyph codes are mapped byte-wise, so
// text in fonts with custom encodings comes back approximate; that is enough
// to tell a page with text from a blank one.
func ExtractText(stream []byte) string {
	var out strings.Builder
	s := &contentScanner{data: stream}
	var operands []string

	for {
		tok, ok := s.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokenString, tokenArray:
			operands = append(operands, tok.text)
		case tokenOperator:
			switch tok.text {
			case "Tj", "TJ":
				if len(operands) > 0 {
					out.WriteString(operands[len(operands)-1])
				}
			case "'", "\"":
				lineBreak(&out)
				if len(operands) > 0 {
					out.WriteString(operands[len(operands)-1])
				}
			case "T*", "Td", "TD", "Tm", "ET":
				lineBreak(&out)
			case "ID":
				s.skipInlineImage()
			}
			operands = operands[:0]
		}
	}
	return strings.TrimSpace(out.String())
}

func lineBreak(out *strings.Builder) {
	str := out.String()
	if len(str) > 0 && str[len(str)-1] != '\n' {
		out.WriteByte('\n')
	}
}

type tokenKind int

const (
	tokenOther tokenKind = iota
	tokenString
	tokenArray
	tokenNumber
	tokenOperator
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

type contentScanner struct {
	data []byte
	pos  int
}

func isWhitespace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (s *contentScanner) eof() bool {
	return s.pos >= len(s.data)
}

func (s *contentScanner) skipSpaceAndComments() {
	for !s.eof() {
		c := s.data[s.pos]
		if isWhitespace(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for !s.eof() && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
			continue
		}
		return
	}
}

func (s *contentScanner) next() (token, bool) {
	s.skipSpaceAndComments()
	if s.eof() {
		return token{}, false
	}

	c := s.data[s.pos]
	switch c {
	case '(':
		return token{kind: tokenString, text: s.readLiteral()}, true
	case '<':
		if s.pos+1 < len(s.data) && s.data[s.pos+1] == '<' {
			s.pos += 2
			return token{kind: tokenOther, text: "<<"}, true
		}
		return token{kind: tokenString, text: s.readHex()}, true
	case '>':
		if s.pos+1 < len(s.data) && s.data[s.pos+1] == '>' {
			s.pos += 2
			return token{kind: tokenOther, text: ">>"}, true
		}
		s.pos++
		return token{kind: tokenOther, text: ">"}, true
	case '[':
		return token{kind: tokenArray, text: s.readArray()}, true
	case ']', ')', '{', '}':
		s.pos++
		return token{kind: tokenOther, text: string(c)}, true
	case '/':
		s.pos++
		return token{kind: tokenOther, text: "/" + s.readRegular()}, true
	}

	word := s.readRegular()
	if word == "" {
		s.pos++
		return token{kind: tokenOther}, true
	}
	if num, err := strconv.ParseFloat(word, 64); err == nil {
		return token{kind: tokenNumber, text: word, num: num}, true
	}
	return token{kind: tokenOperator, text: word}, true
}

func (s *contentScanner) readRegular() string {
	start := s.pos
	for !s.eof() && !isWhitespace(s.data[s.pos]) && !isDelimiter(s.data[s.pos]) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

// readLiteral decodes a (...) string starting at the opening parenthesis.
func (s *contentScanner) readLiteral() string {
	var buf []byte
	depth := 1
	s.pos++
	for !s.eof() {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '\\':
			if s.eof() {
				return decodeGlyphs(buf)
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case 'b', 'f':
			case '\r':
				if !s.eof() && s.data[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for i := 0; i < 2 && !s.eof() && s.data[s.pos] >= '0' && s.data[s.pos] <= '7'; i++ {
						val = val*8 + int(s.data[s.pos]-'0')
						s.pos++
					}
					buf = append(buf, byte(val))
				} else {
					buf = append(buf, e)
				}
			}
		case '(':
			depth++
			buf = append(buf, c)
		case ')':
			depth--
			if depth == 0 {
				return decodeGlyphs(buf)
			}
			buf = append(buf, c)
		default:
			buf = append(buf, c)
		}
	}
	return decodeGlyphs(buf)
}

// readHex decodes a <...> string starting at the opening bracket.
func (s *contentScanner) readHex() string {
	s.pos++
	var digits []byte
	for !s.eof() {
		c := s.data[s.pos]
		s.pos++
		if c == '>' {
			break
		}
		if _, ok := hexValue(c); ok {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	buf := make([]byte, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		hi, _ := hexValue(digits[i])
		lo, _ := hexValue(digits[i+1])
		buf = append(buf, hi<<4|lo)
	}
	return decodeGlyphs(buf)
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// readArray joins the strings of a TJ array starting at '['.
func (s *contentScanner) readArray() string {
	var out strings.Builder
	s.pos++
	for {
		s.skipSpaceAndComments()
		if s.eof() {
			break
		}
		if s.data[s.pos] == ']' {
			s.pos++
			break
		}
		tok, ok := s.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokenString:
			out.WriteString(tok.text)
		case tokenNumber:
			if tok.num < -kerningSpace {
				out.WriteByte(' ')
			}
		}
	}
	return out.String()
}

// skipInlineImage moves past the binary payload of a BI ... ID ... EI image.
func (s *contentScanner) skipInlineImage() {
	for s.pos+1 < len(s.data) {
		if s.data[s.pos] == 'E' && s.data[s.pos+1] == 'I' &&
			(s.pos == 0 || isWhitespace(s.data[s.pos-1])) &&
			(s.pos+2 == len(s.data) || isWhitespace(s.data[s.pos+2])) {
			s.pos += 2
			return
		}
		s.pos++
	}
	s.pos = len(s.data)
}

// decodeGlyphs maps glyph codes to text byte-wise: printable ASCII and
// Latin-1 pass through, whitespace becomes a space, control codes are dropped.
func decodeGlyphs(codes []byte) string {
	var b strings.Builder
	for _, c := range codes {
		switch {
		case c >= 0x20 && c < 0x7f:
			b.WriteByte(c)
		case c == '\t' || c == '\n' || c == '\r':
			b.WriteByte(' ')
		case c >= 0xa0:
			b.WriteRune(rune(c))
		}
	}
	return b.String()
}
