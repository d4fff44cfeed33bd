package repair

// parseObject parses an object like {"key": "value"}, repairing missing
// commas, colons and closing braces, unquoted keys and trailing commas.
func (p *parser) parseObject() (bool, error) {
	if p.charAt(p.pos) != '{' {
		return false, nil
	}
	if err := p.pushDepth(); err != nil {
		return false, err
	}
	defer p.popDepth()

	p.out = append(p.out, '{')
	p.pos++
	p.parseWhitespaceAndSkipComments()

	initial := true
	for p.pos < len(p.text) && p.text[p.pos] != '}' {
		if !initial {
			if !p.parseCharacter(',') {
				// repair missing comma
				p.out = insertBeforeLastWhitespace(p.out, ',')
			}
			p.parseWhitespaceAndSkipComments()
		}

		processedKey, err := p.parseString()
		if err == nil && !processedKey {
			processedKey, err = p.parseUnquotedKey()
		}
		if err != nil {
			return false, err
		}
		if !processedKey {
			switch p.charAt(p.pos) {
			case '}', '{', ']', '[', eof:
				// repair trailing comma
				if !initial {
					p.out = stripLastOccurrence(p.out, ',', false)
				}
			default:
				return false, p.objectKeyExpected()
			}
			break
		}
		initial = false

		p.parseWhitespaceAndSkipComments()
		processedColon := p.parseCharacter(':')
		if !processedColon {
			if !isStartOfValue(p.charAt(p.pos)) {
				return false, p.colonExpected()
			}
			// repair missing colon
			p.out = insertBeforeLastWhitespace(p.out, ':')
		}

		processedValue, err := p.parseValue()
		if err != nil {
			return false, err
		}
		if !processedValue {
			if processedColon {
				return false, p.objectValueExpected()
			}
			return false, p.colonExpected()
		}
	}

	if p.charAt(p.pos) == '}' {
		p.out = append(p.out, '}')
		p.pos++
	} else {
		// repair missing closing brace
		p.out = insertBeforeLastWhitespace(p.out, '}')
	}
	return true, nil
}

// parseArray parses an array like ["item1", "item2"], repairing missing
// commas, trailing commas and a missing closing bracket.
func (p *parser) parseArray() (bool, error) {
	if p.charAt(p.pos) != '[' {
		return false, nil
	}
	if err := p.pushDepth(); err != nil {
		return false, err
	}
	defer p.popDepth()

	p.out = append(p.out, '[')
	p.pos++
	p.parseWhitespaceAndSkipComments()

	initial := true
	for p.pos < len(p.text) && p.text[p.pos] != ']' {
		if !initial {
			if !p.parseCharacter(',') {
				// repair missing comma
				p.out = insertBeforeLastWhitespace(p.out, ',')
			}
		}

		processedValue, err := p.parseValue()
		if err != nil {
			return false, err
		}
		if !processedValue {
			// repair trailing comma
			if !initial {
				p.out = stripLastOccurrence(p.out, ',', false)
			}
			break
		}
		initial = false
	}

	if p.charAt(p.pos) == ']' {
		p.out = append(p.out, ']')
		p.pos++
	} else {
		// repair missing closing bracket
		p.out = insertBeforeLastWhitespace(p.out, ']')
	}
	return true, nil
}

// parseNewlineDelimitedJSON collects the remaining root level values and
// wraps the whole output into an array.
func (p *parser) parseNewlineDelimitedJSON() error {
	for initial := true; ; initial = false {
		if !initial {
			if !p.parseCharacter(',') {
				// repair missing comma
				p.out = insertBeforeLastWhitespace(p.out, ',')
			}
		}

		processedValue, err := p.parseValue()
		if err != nil {
			return err
		}
		if !processedValue {
			// repair trailing comma
			if !initial {
				p.out = stripLastOccurrence(p.out, ',', false)
			}
			break
		}
	}

	wrapped := make([]rune, 0, len(p.out)+4)
	wrapped = append(wrapped, '[', '\n')
	wrapped = append(wrapped, p.out...)
	p.out = append(wrapped, '\n', ']')
	return nil
}
