package repair

// parseNumber parses a number like 2.4 or 2.4e6. The number is copied
// verbatim; only a missing digit after a sign, decimal point or exponent
// marker is fatal.
func (p *parser) parseNumber() (bool, error) {
	start := p.pos

	if p.charAt(p.pos) == '-' {
		p.pos++
		if err := p.expectDigit(start); err != nil {
			return false, err
		}
	}

	switch r := p.charAt(p.pos); {
	case r == '0':
		p.pos++
	case isNonZeroDigit(r):
		p.pos++
		p.skipDigits()
	default:
		// no integer part: not a number
		return false, nil
	}

	if p.charAt(p.pos) == '.' {
		p.pos++
		if err := p.expectDigit(start); err != nil {
			return false, err
		}
		p.skipDigits()
	}

	if r := p.charAt(p.pos); r == 'e' || r == 'E' {
		p.pos++
		if r := p.charAt(p.pos); r == '-' || r == '+' {
			p.pos++
		}
		if err := p.expectDigit(start); err != nil {
			return false, err
		}
		p.skipDigits()
	}

	p.out = append(p.out, p.text[start:p.pos]...)
	return true, nil
}

func (p *parser) skipDigits() {
	for isDigit(p.charAt(p.pos)) {
		p.pos++
	}
}

func (p *parser) expectDigit(start int) error {
	if !isDigit(p.charAt(p.pos)) {
		return p.invalidNumber(start)
	}
	return nil
}

// keywords lists the recognized literals in match order. The capitalized
// Python constants are repaired into their JSON counterparts.
var keywords = []struct {
	name  string
	value string
}{
	{"true", "true"},
	{"false", "false"},
	{"null", "null"},
	{"True", "true"},
	{"False", "false"},
	{"None", "null"},
}

func (p *parser) parseKeywords() bool {
	for _, kw := range keywords {
		if p.parseKeyword(kw.name, kw.value) {
			return true
		}
	}
	return false
}

func (p *parser) parseKeyword(name, value string) bool {
	i := p.pos
	for _, r := range name {
		if p.charAt(i) != r {
			return false
		}
		i++
	}
	p.out = append(p.out, []rune(value)...)
	p.pos = i
	return true
}

// parseUnquotedString repairs an unquoted string by adding quotes around it,
// and strips function-call wrappers like NumberLong("2") or a JSONP
// callback({...}); keeping only the wrapped value.
func (p *parser) parseUnquotedString() (bool, error) {
	start := p.pos
	for p.pos < len(p.text) && !isDelimiter(p.text[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return false, nil
	}

	if p.charAt(p.pos) == '(' {
		return true, p.parseFunctionCall()
	}

	// un-consume trailing whitespace so it is copied as whitespace, not
	// as part of the string
	for p.pos > start && isWhitespace(p.text[p.pos-1]) {
		p.pos--
	}
	p.out = appendQuoted(p.out, p.text[start:p.pos])
	return true, nil
}

// parseUnquotedKey is like parseUnquotedString, but a function call in key
// position must wrap a scalar: ObjectId("a") becomes "a" and f(2) becomes
// "2". A wrapped object or array cannot be a key.
func (p *parser) parseUnquotedKey() (bool, error) {
	start, mark := p.pos, len(p.out)
	processed, err := p.parseUnquotedString()
	if err != nil || !processed {
		return processed, err
	}

	key := p.out[mark:]
	lo, hi := 0, len(key)
	for lo < hi && isWhitespace(key[lo]) {
		lo++
	}
	for hi > lo && isWhitespace(key[hi-1]) {
		hi--
	}
	switch {
	case lo == hi || key[lo] == '"':
		return true, nil
	case key[lo] == '{' || key[lo] == '[':
		p.pos = start
		return false, p.objectKeyExpected()
	}
	// repair: quote a number or keyword unwrapped from a call
	scalar := append([]rune(nil), key[lo:hi]...)
	p.out = appendQuoted(p.out[:mark], scalar)
	return true, nil
}

// parseFunctionCall parses the argument of a call whose name was already
// consumed. The cursor is on the opening parenthesis.
func (p *parser) parseFunctionCall() error {
	if err := p.pushDepth(); err != nil {
		return err
	}
	defer p.popDepth()

	p.pos++
	processed, err := p.parseValue()
	if err != nil {
		return err
	}
	if !processed {
		// repair: an empty call becomes null
		p.out = append(p.out, []rune("null")...)
	}
	if p.skipCharacter(')') {
		// repair: skip the semicolon after a JSONP call
		p.skipCharacter(';')
	}
	return nil
}
