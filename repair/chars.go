package repair

// eof is returned by charAt past the end of the input.
const eof rune = -1

const (
	codeNonBreakingSpace        = 0x00a0
	codeEnQuad                  = 0x2000
	codeHairSpace               = 0x200a
	codeNarrowNoBreakSpace      = 0x202f
	codeMediumMathematicalSpace = 0x205f
	codeIdeographicSpace        = 0x3000

	codeDoubleQuoteLeft  = 0x201c // “
	codeDoubleQuoteRight = 0x201d // ”
	codeQuoteLeft        = 0x2018 // ‘
	codeQuoteRight       = 0x2019 // ’
	codeGraveAccent      = 0x0060 // `
	codeAcuteAccent      = 0x00b4 // ´
)

// controlCharacters maps the raw control characters that have a short JSON
// escape to that escape.
var controlCharacters = map[rune]string{
	'\b': `\b`,
	'\f': `\f`,
	'\n': `\n`,
	'\r': `\r`,
	'\t': `\t`,
}

// isEscapeCharacter reports whether `\` followed by r is a valid two
// character JSON escape. \u is handled separately.
func isEscapeCharacter(r rune) bool {
	switch r {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		return true
	}
	return false
}

func isHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') || (r >= 'a' && r <= 'f')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNonZeroDigit(r rune) bool {
	return r >= '1' && r <= '9'
}

// isWordChar matches the ASCII word class [A-Za-z0-9_].
func isWordChar(r rune) bool {
	return r == '_' || isDigit(r) || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

func isValidStringCharacter(r rune) bool {
	return r >= 0x20 && r <= 0x10ffff
}

func isControlCharacter(r rune) bool {
	_, ok := controlCharacters[r]
	return ok
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}

// isSpecialWhitespace matches Unicode spaces that are repaired into a plain
// space when they appear between tokens.
func isSpecialWhitespace(r rune) bool {
	return r == codeNonBreakingSpace ||
		(r >= codeEnQuad && r <= codeHairSpace) ||
		r == codeNarrowNoBreakSpace ||
		r == codeMediumMathematicalSpace ||
		r == codeIdeographicSpace
}

func isQuote(r rune) bool {
	return isDoubleQuote(r) || isSingleQuote(r)
}

func isDoubleQuote(r rune) bool {
	return r == '"' || r == codeDoubleQuoteLeft || r == codeDoubleQuoteRight
}

func isSingleQuote(r rune) bool {
	return r == '\'' ||
		r == codeQuoteLeft ||
		r == codeQuoteRight ||
		r == codeGraveAccent ||
		r == codeAcuteAccent
}

// isDelimiter reports whether r ends an unquoted literal. Spaces do not:
// "hello world" is one literal.
func isDelimiter(r rune) bool {
	switch r {
	case ',', ':', '[', ']', '{', '}', '(', ')', '\n':
		return true
	}
	return isQuote(r)
}

// isStartOfValue reports whether r can begin a JSON value (or something the
// parser repairs into one).
func isStartOfValue(r rune) bool {
	return r == '[' || r == '{' || r == '-' || isWordChar(r) || isQuote(r)
}
