// Package jrtoken provides a strict RFC 8259 JSON tokenizer.
//
// It is the acceptance check for repaired output: the repairing parser is
// lenient by construction, so its results are verified by a parser that
// accepts nothing beyond the RFC 8259 grammar. Unlike encoding/json it
// reports failures as *jrerr.Error values positioned in Unicode code points,
// the same unit the repairing parser uses.
//
// The output is an ordered tree of JSON values with numbers kept as their
// source tokens.
package jrtoken

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/lattice-substrate/json-repair/jrerr"
)

// Limits for denial-of-service protection.
const (
	// DefaultMaxDepth is the maximum nesting depth for objects and arrays.
	DefaultMaxDepth = 1000

	// DefaultMaxInputSize is the maximum input size in bytes (64 MiB).
	DefaultMaxInputSize = 64 * 1024 * 1024
)

// Value represents a parsed JSON value.
type Value struct {
	Kind    Kind
	Str     string   // For KindString: the decoded string; for KindBool: "true" or "false"
	Num     string   // For KindNumber: the number token as written
	Members []Member // For KindObject: ordered members, duplicates kept
	Elems   []Value  // For KindArray: ordered elements
}

// Len returns the number of members of an object or elements of an array,
// and 0 for scalars.
func (v *Value) Len() int {
	switch v.Kind {
	case KindObject:
		return len(v.Members)
	case KindArray:
		return len(v.Elems)
	default:
		return 0
	}
}

// Kind identifies the type of a JSON value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Member is a key-value pair in a JSON object.
type Member struct {
	Key   string
	Value Value
}

// Options controls parser behavior.
type Options struct {
	MaxDepth     int // 0 means DefaultMaxDepth
	MaxInputSize int // 0 means DefaultMaxInputSize
}

func (o *Options) maxDepth() int {
	if o != nil && o.MaxDepth > 0 {
		return o.MaxDepth
	}
	return DefaultMaxDepth
}

func (o *Options) maxInputSize() int {
	if o != nil && o.MaxInputSize > 0 {
		return o.MaxInputSize
	}
	return DefaultMaxInputSize
}

type parser struct {
	data     []byte
	pos      int
	depth    int
	maxDepth int
}

// Parse parses a complete JSON text under RFC 8259. It returns the parsed
// value tree or a *jrerr.Error.
//
// Constraints enforced:
//   - Input is well-formed UTF-8
//   - Exactly one value, surrounded only by insignificant whitespace
//   - No unescaped control characters in strings
//   - Only the eight short escapes and \uXXXX
//   - Numbers follow the RFC grammar (no leading zeros, no bare dot)
//   - Nesting depth bounded by MaxDepth
//   - Input size bounded by MaxInputSize
//
// Duplicate member names and escaped lone surrogates are permitted, as in
// the RFC grammar; lone surrogates decode to U+FFFD.
func Parse(data []byte) (*Value, error) {
	return ParseWithOptions(data, nil)
}

// ParseWithOptions is like Parse but accepts configuration options.
func ParseWithOptions(data []byte, opts *Options) (*Value, error) {
	maxInput := opts.maxInputSize()
	if len(data) > maxInput {
		return nil, jrerr.Newf(jrerr.BoundExceeded, 0,
			"input size %d exceeds maximum %d", len(data), maxInput)
	}
	if !utf8.Valid(data) {
		return nil, invalidUTF8(data)
	}

	p := &parser{
		data:     data,
		maxDepth: opts.maxDepth(),
	}

	p.skipWhitespace()
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()
	if p.pos != len(p.data) {
		return nil, p.errorf("trailing content after JSON value")
	}
	return v, nil
}

// Validate reports whether data is a single strictly valid JSON text.
func Validate(data []byte) error {
	_, err := ParseWithOptions(data, nil)
	return err
}

// ValidateWithOptions is like Validate but accepts configuration options.
func ValidateWithOptions(data []byte, opts *Options) error {
	_, err := ParseWithOptions(data, opts)
	return err
}

func invalidUTF8(data []byte) *jrerr.Error {
	off := 0
	for off < len(data) {
		r, size := utf8.DecodeRune(data[off:])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		off += size
	}
	return jrerr.Newf(jrerr.InvalidJSON, utf8.RuneCount(data[:off]),
		"invalid UTF-8 byte 0x%02X", data[off])
}

// errorf reports a failure at the cursor. Offsets are tracked in bytes and
// converted to code points here; data is known to be valid UTF-8.
func (p *parser) errorf(format string, args ...any) *jrerr.Error {
	return p.errorAt(p.pos, format, args...)
}

func (p *parser) errorAt(off int, format string, args ...any) *jrerr.Error {
	return jrerr.Newf(jrerr.InvalidJSON, utf8.RuneCount(p.data[:off]), format, args...)
}

func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.data) {
		return 0, false
	}
	return p.data[p.pos], true
}

func (p *parser) expect(b byte) error {
	c, ok := p.peek()
	if !ok {
		return p.errorf("unexpected end of input, expected %q", string(b))
	}
	if c != b {
		return p.errorf("expected %q, got %q", string(b), p.charAt())
	}
	p.pos++
	return nil
}

// charAt returns the full character at the cursor for messages.
func (p *parser) charAt() string {
	r, _ := utf8.DecodeRune(p.data[p.pos:])
	return string(r)
}

func (p *parser) skipWhitespace() {
	for p.pos < len(p.data) {
		switch p.data[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) pushDepth() error {
	p.depth++
	if p.depth > p.maxDepth {
		return jrerr.Newf(jrerr.BoundExceeded, utf8.RuneCount(p.data[:p.pos]),
			"nesting depth %d exceeds maximum %d", p.depth, p.maxDepth)
	}
	return nil
}

func (p *parser) popDepth() {
	p.depth--
}

func (p *parser) parseValue() (*Value, error) {
	c, ok := p.peek()
	if !ok {
		return nil, p.errorf("unexpected end of input")
	}

	switch c {
	case '{':
		return p.parseObject()
	case '[':
		return p.parseArray()
	case '"':
		s, err := p.parseString()
		if err != nil {
			return nil, err
		}
		return &Value{Kind: KindString, Str: s}, nil
	case 't':
		return p.parseLiteral("true", Value{Kind: KindBool, Str: "true"})
	case 'f':
		return p.parseLiteral("false", Value{Kind: KindBool, Str: "false"})
	case 'n':
		return p.parseLiteral("null", Value{Kind: KindNull})
	default:
		return p.parseNumber()
	}
}

func (p *parser) parseObject() (*Value, error) {
	if err := p.pushDepth(); err != nil {
		return nil, err
	}
	defer p.popDepth()

	if err := p.expect('{'); err != nil {
		return nil, err
	}
	p.skipWhitespace()

	v := &Value{Kind: KindObject}

	c, ok := p.peek()
	if !ok {
		return nil, p.errorf("unexpected end of input in object")
	}
	if c == '}' {
		p.pos++
		return v, nil
	}

	for {
		p.skipWhitespace()
		if c, ok := p.peek(); ok && c != '"' {
			return nil, p.errorf("expected string member name, got %q", p.charAt())
		}
		key, err := p.parseString()
		if err != nil {
			return nil, err
		}

		p.skipWhitespace()
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		p.skipWhitespace()

		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		v.Members = append(v.Members, Member{Key: key, Value: *val})

		p.skipWhitespace()
		c, ok := p.peek()
		if !ok {
			return nil, p.errorf("unexpected end of input in object")
		}
		switch c {
		case '}':
			p.pos++
			return v, nil
		case ',':
			p.pos++
		default:
			return nil, p.errorf("expected ',' or '}' in object, got %q", p.charAt())
		}
	}
}

func (p *parser) parseArray() (*Value, error) {
	if err := p.pushDepth(); err != nil {
		return nil, err
	}
	defer p.popDepth()

	if err := p.expect('['); err != nil {
		return nil, err
	}
	p.skipWhitespace()

	v := &Value{Kind: KindArray}

	c, ok := p.peek()
	if !ok {
		return nil, p.errorf("unexpected end of input in array")
	}
	if c == ']' {
		p.pos++
		return v, nil
	}

	for {
		p.skipWhitespace()
		elem, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		v.Elems = append(v.Elems, *elem)

		p.skipWhitespace()
		c, ok := p.peek()
		if !ok {
			return nil, p.errorf("unexpected end of input in array")
		}
		switch c {
		case ']':
			p.pos++
			return v, nil
		case ',':
			p.pos++
		default:
			return nil, p.errorf("expected ',' or ']' in array, got %q", p.charAt())
		}
	}
}

// parseString parses a JSON string and decodes all escapes.
func (p *parser) parseString() (string, error) {
	if err := p.expect('"'); err != nil {
		return "", err
	}

	var buf []byte
	for {
		if p.pos >= len(p.data) {
			return "", p.errorf("unterminated string")
		}
		b := p.data[p.pos]

		switch {
		case b == '"':
			p.pos++
			return string(buf), nil
		case b == '\\':
			p.pos++
			r, err := p.parseEscape()
			if err != nil {
				return "", err
			}
			buf = utf8.AppendRune(buf, r)
		case b < 0x20:
			return "", p.errorf("unescaped control character 0x%02X in string", b)
		default:
			_, size := utf8.DecodeRune(p.data[p.pos:])
			buf = append(buf, p.data[p.pos:p.pos+size]...)
			p.pos += size
		}
	}
}

// parseEscape handles the character after '\'. Returns the decoded rune.
func (p *parser) parseEscape() (rune, error) {
	if p.pos >= len(p.data) {
		return 0, p.errorf("unterminated escape sequence")
	}
	b := p.data[p.pos]

	switch b {
	case '"', '\\', '/':
		p.pos++
		return rune(b), nil
	case 'b':
		p.pos++
		return '\b', nil
	case 'f':
		p.pos++
		return '\f', nil
	case 'n':
		p.pos++
		return '\n', nil
	case 'r':
		p.pos++
		return '\r', nil
	case 't':
		p.pos++
		return '\t', nil
	case 'u':
		p.pos++
		return p.parseUnicodeEscape()
	default:
		return 0, p.errorf("invalid escape character %q", p.charAt())
	}
}

// parseUnicodeEscape parses \uXXXX, joining \uXXXX\uXXXX surrogate pairs.
func (p *parser) parseUnicodeEscape() (rune, error) {
	r1, err := p.readHex4()
	if err != nil {
		return 0, err
	}
	if !utf16.IsSurrogate(r1) || r1 >= 0xDC00 {
		return replaceSurrogate(r1), nil
	}

	if p.pos+1 >= len(p.data) || p.data[p.pos] != '\\' || p.data[p.pos+1] != 'u' {
		return utf8.RuneError, nil
	}
	save := p.pos
	p.pos += 2
	r2, err := p.readHex4()
	if err != nil {
		return 0, err
	}
	if r2 < 0xDC00 || r2 > 0xDFFF {
		// Not a pair: leave the second escape to be read on its own.
		p.pos = save
		return utf8.RuneError, nil
	}
	return utf16.DecodeRune(r1, r2), nil
}

func replaceSurrogate(r rune) rune {
	if utf16.IsSurrogate(r) {
		return utf8.RuneError
	}
	return r
}

// readHex4 reads exactly 4 hex digits and returns the rune value.
func (p *parser) readHex4() (rune, error) {
	var val rune
	for i := 0; i < 4; i++ {
		if p.pos >= len(p.data) {
			return 0, p.errorf("incomplete \\u escape")
		}
		d, ok := hexValue(p.data[p.pos])
		if !ok {
			return 0, p.errorf("invalid hex digit %q in \\u escape", p.charAt())
		}
		val = val<<4 | d
		p.pos++
	}
	return val, nil
}

func hexValue(b byte) (rune, bool) {
	switch {
	case b >= '0' && b <= '9':
		return rune(b - '0'), true
	case b >= 'a' && b <= 'f':
		return rune(b-'a') + 10, true
	case b >= 'A' && b <= 'F':
		return rune(b-'A') + 10, true
	default:
		return 0, false
	}
}

func (p *parser) parseNumber() (*Value, error) {
	start := p.pos

	if p.pos < len(p.data) && p.data[p.pos] == '-' {
		p.pos++
	}

	if p.pos >= len(p.data) {
		return nil, p.errorf("unexpected end of input in number")
	}

	switch c := p.data[p.pos]; {
	case c == '0':
		p.pos++
		if p.pos < len(p.data) && isDigit(p.data[p.pos]) {
			return nil, p.errorf("leading zero in number")
		}
	case c >= '1' && c <= '9':
		p.skipDigits()
	default:
		if start == p.pos {
			return nil, p.errorf("unexpected character %q", p.charAt())
		}
		return nil, p.errorf("invalid number character %q", p.charAt())
	}

	if p.pos < len(p.data) && p.data[p.pos] == '.' {
		p.pos++
		if p.pos >= len(p.data) || !isDigit(p.data[p.pos]) {
			return nil, p.errorf("expected digit after decimal point")
		}
		p.skipDigits()
	}

	if p.pos < len(p.data) && (p.data[p.pos] == 'e' || p.data[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.data) && (p.data[p.pos] == '+' || p.data[p.pos] == '-') {
			p.pos++
		}
		if p.pos >= len(p.data) || !isDigit(p.data[p.pos]) {
			return nil, p.errorf("expected digit in exponent")
		}
		p.skipDigits()
	}

	return &Value{Kind: KindNumber, Num: string(p.data[start:p.pos])}, nil
}

func (p *parser) skipDigits() {
	for p.pos < len(p.data) && isDigit(p.data[p.pos]) {
		p.pos++
	}
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func (p *parser) parseLiteral(lit string, v Value) (*Value, error) {
	if p.pos+len(lit) <= len(p.data) && string(p.data[p.pos:p.pos+len(lit)]) == lit {
		p.pos += len(lit)
		return &v, nil
	}
	return nil, p.errorf("invalid literal, expected %s", lit)
}
