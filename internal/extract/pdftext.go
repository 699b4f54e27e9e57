package extract

import (
	"bytes"
	"strings"
	"unicode/utf16"
)

// textFromContentStream collects the string operands of text-showing
// operators (Tj, TJ, ', ") in a page content stream. Positioning operators
// become spaces or newlines. The stream is read token by token, so operators
// may share a line.
func textFromContentStream(data []byte) string {
	var (
		sb       strings.Builder
		operands []string
	)
	newline := func() {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
	}
	flush := func() {
		for _, s := range operands {
			sb.WriteString(s)
		}
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isPDFSpace(c):
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			raw, n := readLiteralString(data[i:])
			operands = append(operands, decodePDFString(raw))
			i += n
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			i += 2
		case c == '<':
			raw, n := readHexString(data[i:])
			if s, ok := decodeHexText(raw); ok {
				operands = append(operands, s)
			}
			i += n
		case c == '/':
			i++
			for i < len(data) && isPDFRegular(data[i]) {
				i++
			}
		case isPDFDelimiter(c):
			i++
		default:
			start := i
			for i < len(data) && isPDFRegular(data[i]) {
				i++
			}
			tok := string(data[start:i])
			if isPDFNumber(tok) {
				continue
			}
			switch tok {
			case "Tj", "TJ":
				flush()
			case "'", `"`:
				newline()
				flush()
			case "Td", "TD":
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
			case "T*", "ET":
				newline()
			case "ID":
				i = skipInlineImage(data, i)
			}
			operands = operands[:0]
		}
	}
	return cleanText(sb.String())
}

// readLiteralString returns the bytes between a '(' at data[0] and its
// balancing ')', and the number of bytes consumed. Escaped parentheses do
// not count towards the depth.
func readLiteralString(data []byte) ([]byte, int) {
	depth := 0
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return data[1:i], i + 1
			}
		}
	}
	return data[1:], len(data)
}

func readHexString(data []byte) ([]byte, int) {
	end := bytes.IndexByte(data, '>')
	if end < 0 {
		return data[1:], len(data)
	}
	return data[1:end], end + 1
}

// decodeHexText only accepts UTF-16BE strings marked with a byte order mark.
// Other hex strings are usually glyph ids of composite fonts.
func decodeHexText(raw []byte) (string, bool) {
	var b []byte
	var hi byte
	half := false
	for _, c := range raw {
		v, ok := hexValue(c)
		if !ok {
			continue
		}
		if half {
			b = append(b, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		b = append(b, hi<<4)
	}
	if len(b) < 2 || b[0] != 0xFE || b[1] != 0xFF {
		return "", false
	}
	return decodeTextBytes(b), true
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

// skipInlineImage moves past the binary data of an inline image, which runs
// from the ID operator to a whitespace-delimited EI.
func skipInlineImage(data []byte, i int) int {
	for j := i + 1; j+2 <= len(data); j++ {
		if data[j] == 'E' && data[j+1] == 'I' && isPDFSpace(data[j-1]) &&
			(j+2 == len(data) || isPDFSpace(data[j+2])) {
			return j + 2
		}
	}
	return len(data)
}

// decodePDFString resolves the escapes of a literal string and maps its
// bytes to text.
func decodePDFString(raw []byte) string {
	b := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			b = append(b, c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			b = append(b, '\n')
		case 'r':
			b = append(b, '\r')
		case 't':
			b = append(b, '\t')
		case 'b', 'f':
		case '\r':
			// line continuation
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
		case '\n':
		default:
			j := i
			for j < len(raw) && j < i+3 && raw[j] >= '0' && raw[j] <= '7' {
				j++
			}
			if j == i {
				b = append(b, raw[i])
				continue
			}
			var v int
			for _, d := range raw[i:j] {
				v = v*8 + int(d-'0')
			}
			b = append(b, byte(v))
			i = j - 1
		}
	}
	return decodeTextBytes(b)
}

// decodeTextBytes reads UTF-16BE when the bytes start with a byte order mark
// and WinAnsi otherwise.
func decodeTextBytes(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		units := make([]uint16, 0, len(b)/2)
		for i := 2; i+1 < len(b); i += 2 {
			units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(units))
	}
	var sb strings.Builder
	for _, c := range b {
		if c >= 0x80 && c <= 0x9F {
			if r := winAnsiHigh[c-0x80]; r != 0 {
				sb.WriteRune(r)
			}
			continue
		}
		sb.WriteRune(rune(c))
	}
	return sb.String()
}

// winAnsiHigh maps 0x80-0x9F, where WinAnsi departs from Latin-1. Zero
// entries are undefined.
var winAnsiHigh = [32]rune{
	'€', 0, '‚', 'ƒ', '„', '…', '†', '‡', 'ˆ', '‰', 'Š', '‹', 'Œ', 0, 'Ž', 0,
	0, '‘', '’', '“', '”', '•', '–', '—', '˜', '™', 'š', '›', 'œ', 0, 'ž', 'Ÿ',
}

func isPDFSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isPDFRegular(c byte) bool {
	return !isPDFSpace(c) && !isPDFDelimiter(c)
}

func isPDFNumber(tok string) bool {
	if tok == "" {
		return false
	}
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		if (c < '0' || c > '9') && c != '.' && c != '-' && c != '+' {
			return false
		}
	}
	return true
}

func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
