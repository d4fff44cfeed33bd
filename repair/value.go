package repair

// parseValue skips insignificant content and tries each value production in
// order: object, array, string, number, keyword, unquoted string. It reports
// whether any of them consumed input.
func (p *parser) parseValue() (bool, error) {
	p.parseWhitespaceAndSkipComments()

	processed, err := p.parseObject()
	if err == nil && !processed {
		processed, err = p.parseArray()
	}
	if err == nil && !processed {
		processed, err = p.parseString()
	}
	if err == nil && !processed {
		processed, err = p.parseNumber()
	}
	if err == nil && !processed {
		processed = p.parseKeywords()
	}
	if err == nil && !processed {
		processed, err = p.parseUnquotedString()
	}
	if err != nil {
		return false, err
	}

	p.parseWhitespaceAndSkipComments()
	return processed, nil
}

// parseWhitespaceAndSkipComments copies whitespace to the output and drops
// comments. A comment is only followed by another one when whitespace
// separates them.
func (p *parser) parseWhitespaceAndSkipComments() bool {
	start := p.pos
	p.parseWhitespace()
	for p.parseComment() && p.parseWhitespace() {
	}
	return p.pos > start
}

func (p *parser) parseWhitespace() bool {
	start := p.pos
	for p.pos < len(p.text) {
		r := p.text[p.pos]
		switch {
		case isWhitespace(r):
			p.out = append(p.out, r)
		case isSpecialWhitespace(r):
			// repair special whitespace
			p.out = append(p.out, ' ')
		default:
			return p.pos > start
		}
		p.pos++
	}
	return p.pos > start
}

func (p *parser) parseComment() bool {
	if p.charAt(p.pos) != '/' {
		return false
	}
	switch p.charAt(p.pos + 1) {
	case '*':
		// repair block comment by skipping it; an unterminated one runs to the end
		for p.pos < len(p.text) && !p.atEndOfBlockComment() {
			p.pos++
		}
		p.pos = min(p.pos+2, len(p.text))
		return true
	case '/':
		// repair line comment by skipping it
		for p.pos < len(p.text) && p.text[p.pos] != '\n' {
			p.pos++
		}
		return true
	}
	return false
}

func (p *parser) atEndOfBlockComment() bool {
	return p.charAt(p.pos) == '*' && p.charAt(p.pos+1) == '/'
}

// parseCharacter copies r to the output when it is next in the input.
func (p *parser) parseCharacter(r rune) bool {
	if p.charAt(p.pos) == r {
		p.out = append(p.out, r)
		p.pos++
		return true
	}
	return false
}

// skipCharacter consumes r without copying it.
func (p *parser) skipCharacter(r rune) bool {
	if p.charAt(p.pos) == r {
		p.pos++
		return true
	}
	return false
}
