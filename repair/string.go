package repair

// parseString parses a quoted string and any strings concatenated to it
// with '+'.
func (p *parser) parseString() (bool, error) {
	processed, err := p.parseStringLiteral()
	if err != nil || !processed {
		return processed, err
	}
	if err := p.parseConcatenatedString(); err != nil {
		return false, err
	}
	return true, nil
}

// parseStringLiteral parses a string enclosed in double quotes and repairs
// strings enclosed in single, backtick or typographic quotes. A string that
// starts with a stray backslash is treated as over-escaped: one backslash
// after every character is dropped.
func (p *parser) parseStringLiteral() (bool, error) {
	skipEscapeChars := p.charAt(p.pos) == '\\'
	if skipEscapeChars {
		// repair: remove the first escape character
		p.pos++
	}

	if !isQuote(p.charAt(p.pos)) {
		return false, nil
	}
	isEndQuote := endQuoteMatcher(p.text[p.pos])

	p.out = append(p.out, '"')
	p.pos++

	for p.pos < len(p.text) && !isEndQuote(p.text[p.pos]) {
		r := p.text[p.pos]
		if r == '\\' {
			if err := p.parseEscape(); err != nil {
				return false, err
			}
		} else {
			switch {
			case r == '"':
				// repair unescaped double quote
				p.out = append(p.out, '\\', '"')
			case isControlCharacter(r):
				// repair unescaped control character
				p.out = append(p.out, []rune(controlCharacters[r])...)
			case !isValidStringCharacter(r):
				return false, p.invalidCharacter(r)
			default:
				p.out = append(p.out, r)
			}
			p.pos++
		}

		if skipEscapeChars {
			p.skipCharacter('\\')
		}
	}

	// the closing quote, or a repaired one at the end of the input
	p.out = append(p.out, '"')
	if p.pos < len(p.text) {
		p.pos++
	}
	return true, nil
}

// parseEscape handles a backslash inside a string.
func (p *parser) parseEscape() error {
	next := p.charAt(p.pos + 1)
	switch {
	case isEscapeCharacter(next):
		p.out = append(p.out, p.text[p.pos:p.pos+2]...)
		p.pos += 2
	case next == 'u':
		for i := 2; i < 6; i++ {
			if !isHex(p.charAt(p.pos + i)) {
				return p.invalidUnicodeCharacter(p.pos)
			}
		}
		p.out = append(p.out, p.text[p.pos:p.pos+6]...)
		p.pos += 6
	case next == eof:
		// repair dangling backslash at the end of the input
		p.pos++
	default:
		// repair invalid escape character: drop the backslash
		return p.parseEscapedCharacter(next)
	}
	return nil
}

// parseEscapedCharacter emits the character after an invalid escape, with
// the same repairs that apply to a character outside an escape.
func (p *parser) parseEscapedCharacter(r rune) error {
	p.pos++
	switch {
	case isControlCharacter(r):
		p.out = append(p.out, []rune(controlCharacters[r])...)
	case !isValidStringCharacter(r):
		return p.invalidCharacter(r)
	default:
		p.out = append(p.out, r)
	}
	p.pos++
	return nil
}

// parseConcatenatedString repairs concatenated strings like
// "hello" + "world" into "helloworld".
func (p *parser) parseConcatenatedString() error {
	p.parseWhitespaceAndSkipComments()
	for p.charAt(p.pos) == '+' {
		p.pos++
		p.parseWhitespaceAndSkipComments()

		// repair: remove the end quote of the first string
		p.out = stripLastOccurrence(p.out, '"', true)
		start := len(p.out)

		processed, err := p.parseStringLiteral()
		if err != nil {
			return err
		}
		if !processed {
			// nothing to concatenate: restore the end quote
			p.out = append(p.out, '"')
			return nil
		}

		// repair: remove the start quote of the second string
		p.out = removeAtIndex(p.out, start, 1)
		p.parseWhitespaceAndSkipComments()
	}
	return nil
}

// endQuoteMatcher returns the predicate for the quote that closes a string
// opened with open. A plain double quote only closes on itself, so valid
// JSON strings containing typographic quotes pass through unchanged.
func endQuoteMatcher(open rune) func(rune) bool {
	switch {
	case open == '"':
		return func(r rune) bool { return r == '"' }
	case isSingleQuote(open):
		return isSingleQuote
	default:
		return isDoubleQuote
	}
}
