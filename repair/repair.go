// Package repair turns malformed or non-standard JSON-like text into strictly
// valid JSON text.
//
// The repairing parser is a single-pass recursive descent over the input: it
// parses and repairs at the same time, appending corrected text to an output
// buffer as it consumes input. There is no intermediate value tree.
//
// Repairs applied silently:
//   - single, backtick and typographic quotes normalized to double quotes
//   - missing quotes around keys and bare words
//   - missing commas, colons, closing quotes, braces and brackets
//   - trailing commas
//   - block and line comments
//   - Python constants True, False and None
//   - invalid escapes and unescaped control characters inside strings
//   - string concatenation ("a" + "b")
//   - function-call wrappers such as NumberLong("2") and JSONP callback({...});
//   - newline delimited JSON, wrapped into a root level array
//
// Inputs with no sane single interpretation fail with a *jrerr.Error that
// carries the offending position, counted in Unicode code points.
package repair

import (
	"fmt"

	"github.com/lattice-substrate/json-repair/jrerr"
)

// Limits for denial-of-service protection.
const (
	// DefaultMaxDepth is the maximum nesting depth for objects, arrays and
	// function-call wrappers.
	DefaultMaxDepth = 1000

	// DefaultMaxInputSize is the maximum input size in bytes (64 MiB).
	DefaultMaxInputSize = 64 * 1024 * 1024
)

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

// parser holds the state for one repair call.
type parser struct {
	text     []rune
	pos      int
	out      []rune
	depth    int
	maxDepth int
}

// Repair repairs text into valid JSON using the default options.
//
// Example:
//
//	repaired, err := repair.Repair("{name: 'John'}")
//	// repaired == `{"name": "John"}`
func Repair(text string) (string, error) {
	return RepairWithOptions(text, nil)
}

// RepairBytes is like RepairWithOptions but works on byte slices.
func RepairBytes(data []byte, opts *Options) ([]byte, error) {
	out, err := RepairWithOptions(string(data), opts)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// RepairWithOptions is like Repair but accepts configuration options.
func RepairWithOptions(text string, opts *Options) (string, error) {
	maxInput := opts.maxInputSize()
	if len(text) > maxInput {
		return "", jrerr.Newf(jrerr.BoundExceeded, 0,
			"Input size %d exceeds maximum %d", len(text), maxInput)
	}

	runes := []rune(text)
	p := &parser{
		text:     runes,
		out:      make([]rune, 0, len(runes)+len(runes)/8),
		maxDepth: opts.maxDepth(),
	}
	return p.parseDocument()
}

// parseDocument parses the root value and applies the root level policy:
// trailing comma removal, newline delimited JSON, and full consumption.
func (p *parser) parseDocument() (string, error) {
	processed, err := p.parseValue()
	if err != nil {
		return "", err
	}
	if !processed {
		return "", p.unexpectedEnd()
	}

	processedComma := p.parseCharacter(',')
	if processedComma {
		p.parseWhitespaceAndSkipComments()
	}

	if isStartOfValue(p.charAt(p.pos)) && endsWithCommaOrNewline(p.out) {
		// another value after the root value: newline delimited JSON
		if !processedComma {
			p.out = insertBeforeLastWhitespace(p.out, ',')
		}
		if err := p.parseNewlineDelimitedJSON(); err != nil {
			return "", err
		}
	} else if processedComma {
		p.out = stripLastOccurrence(p.out, ',', false)
	}

	if p.pos < len(p.text) {
		return "", p.unexpectedCharacter()
	}
	return string(p.out), nil
}

// charAt returns the rune at i, or eof when i is out of range.
func (p *parser) charAt(i int) rune {
	if i < 0 || i >= len(p.text) {
		return eof
	}
	return p.text[i]
}

func (p *parser) pushDepth() error {
	p.depth++
	if p.depth > p.maxDepth {
		return jrerr.Newf(jrerr.BoundExceeded, p.pos,
			"Nesting depth %d exceeds maximum %d", p.depth, p.maxDepth)
	}
	return nil
}

func (p *parser) popDepth() {
	p.depth--
}

func (p *parser) unexpectedEnd() *jrerr.Error {
	return jrerr.New(jrerr.UnexpectedEnd, len(p.text), "Unexpected end of json string")
}

func (p *parser) unexpectedCharacter() *jrerr.Error {
	return jrerr.Newf(jrerr.UnexpectedCharacter, p.pos,
		"Unexpected character %s", quote(string(p.text[p.pos])))
}

func (p *parser) invalidCharacter(r rune) *jrerr.Error {
	return jrerr.Newf(jrerr.InvalidCharacter, p.pos, "Invalid character %s", quote(string(r)))
}

func (p *parser) objectKeyExpected() *jrerr.Error {
	return jrerr.New(jrerr.ObjectKeyExpected, p.pos, "Object key expected")
}

func (p *parser) objectValueExpected() *jrerr.Error {
	return jrerr.New(jrerr.ObjectValueExpected, p.pos, "Object value expected")
}

func (p *parser) colonExpected() *jrerr.Error {
	return jrerr.New(jrerr.ColonExpected, p.pos, "Colon expected")
}

// invalidUnicodeCharacter reports a \u escape at start that is not followed
// by four hex digits. The message names the backslash, the u, and the word
// characters after it.
func (p *parser) invalidUnicodeCharacter(start int) *jrerr.Error {
	end := start + 2
	for isWordChar(p.charAt(end)) {
		end++
	}
	end = min(end, len(p.text))
	chars := string(p.text[start:end])
	return jrerr.Newf(jrerr.InvalidUnicodeCharacter, p.pos, "Invalid unicode character \"%s\"", chars)
}

// invalidNumber reports a sign, decimal point or exponent marker that is not
// followed by a digit.
func (p *parser) invalidNumber(start int) *jrerr.Error {
	got := "but reached end of input"
	if p.pos < len(p.text) {
		got = fmt.Sprintf("but got '%c'", p.text[p.pos])
	}
	return jrerr.Newf(jrerr.InvalidNumber, p.pos,
		"Invalid number '%s', expecting a digit %s", string(p.text[start:p.pos]), got)
}
