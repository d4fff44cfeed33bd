package repair

// insertBeforeLastWhitespace inserts r into out just before its run of
// trailing whitespace, so `[1 \n` becomes `[1, \n` rather than `[1 \n,`.
func insertBeforeLastWhitespace(out []rune, r rune) []rune {
	index := len(out)
	for index > 0 && isWhitespace(out[index-1]) {
		index--
	}
	if index == len(out) {
		return append(out, r)
	}
	out = append(out, 0)
	copy(out[index+1:], out[index:])
	out[index] = r
	return out
}

// stripLastOccurrence removes the last r from out. With stripRemaining set,
// everything after it is dropped as well.
func stripLastOccurrence(out []rune, r rune, stripRemaining bool) []rune {
	index := lastIndex(out, r)
	if index < 0 {
		return out
	}
	if stripRemaining {
		return out[:index]
	}
	return append(out[:index], out[index+1:]...)
}

// removeAtIndex deletes count runes starting at start. Out of range requests
// are clamped.
func removeAtIndex(out []rune, start, count int) []rune {
	if start < 0 || start >= len(out) {
		return out
	}
	end := min(start+count, len(out))
	return append(out[:start], out[end:]...)
}

// endsWithCommaOrNewline reports whether out matches /[,\n][ \t\r]*$/.
func endsWithCommaOrNewline(out []rune) bool {
	for i := len(out) - 1; i >= 0; i-- {
		switch out[i] {
		case ' ', '\t', '\r':
			continue
		case ',', '\n':
			return true
		default:
			return false
		}
	}
	return false
}

func lastIndex(out []rune, r rune) int {
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] == r {
			return i
		}
	}
	return -1
}

// appendQuoted appends s as a JSON string literal. Quotes, backslashes and
// control characters are escaped; everything else is copied as is.
func appendQuoted(out []rune, s []rune) []rune {
	out = append(out, '"')
	for _, r := range s {
		switch {
		case r == '"':
			out = append(out, '\\', '"')
		case r == '\\':
			out = append(out, '\\', '\\')
		case isControlCharacter(r):
			out = append(out, []rune(controlCharacters[r])...)
		case r < 0x20:
			out = append(out, '\\', 'u', '0', '0', hexDigit(byte(r)>>4), hexDigit(byte(r)&0x0f))
		default:
			out = append(out, r)
		}
	}
	return append(out, '"')
}

func hexDigit(b byte) rune {
	if b < 10 {
		return rune('0' + b)
	}
	return rune('a' + (b - 10))
}

// quote renders a single character or token the way it appears in error
// messages.
func quote(s string) string {
	return string(appendQuoted(nil, []rune(s)))
}
