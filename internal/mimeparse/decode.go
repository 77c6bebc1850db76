package mimeparse

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime/quotedprintable"
	"regexp"
	"strings"

	"github.com/emersion/go-message/charset"
)

var (
	encodedWord    = regexp.MustCompile(`=\?([^?\s]+)\?([QqBb])\?([^?]*)\?=`)
	encodedWordGap = regexp.MustCompile(`(\?=)[ \t\r\n]+(=\?)`)
)

// maxHeaderPasses bounds repeated encoded-word replacement.
const maxHeaderPasses = 4

// DecodeHeader expands RFC 2047 encoded words. Words that cannot be decoded
// are left as they are.
func DecodeHeader(value string) string {
	if !strings.Contains(value, "=?") {
		return value
	}
	value = encodedWordGap.ReplaceAllString(value, "$1$2")
	for i := 0; i < maxHeaderPasses; i++ {
		next := encodedWord.ReplaceAllStringFunc(value, decodeWord)
		if next == value {
			break
		}
		value = next
	}
	return value
}

func decodeWord(word string) string {
	m := encodedWord.FindStringSubmatch(word)
	if m == nil {
		return word
	}
	cs, enc, text := m[1], strings.ToUpper(m[2]), m[3]

	var raw []byte
	switch enc {
	case "B":
		b, err := decodeBase64Lenient(text)
		if err != nil {
			return word
		}
		raw = b
	case "Q":
		raw = decodeQuotedPrintable(strings.ReplaceAll(text, "_", " "))
	}
	return toUTF8(cs, raw)
}

func decodeBase64Lenient(s string) ([]byte, error) {
	s = stripWhitespace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// toUTF8 converts raw bytes from the named charset. Unknown charsets and
// conversion failures return the bytes unchanged.
func toUTF8(cs string, raw []byte) string {
	// RFC 2231 language suffix, e.g. utf-8*en.
	if i := strings.IndexByte(cs, '*'); i >= 0 {
		cs = cs[:i]
	}
	switch strings.ToLower(strings.TrimSpace(cs)) {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return string(raw)
	}
	r, err := charset.Reader(cs, bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// decodeQuotedPrintable works on bytes: "=XX" becomes one byte, an invalid
// escape is kept literally and "=" before a line break joins the lines.
// Trailing spaces and tabs on each line are transport padding and dropped.
func decodeQuotedPrintable(s string) []byte {
	s = trimLinePadding(s)
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '=' {
			out = append(out, c)
			continue
		}
		switch {
		case i+1 < len(s) && s[i+1] == '\n':
			i++
		case i+2 < len(s) && s[i+1] == '\r' && s[i+2] == '\n':
			i += 2
		case i+1 == len(s):
			// trailing soft break
		case i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			out = append(out, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
		default:
			out = append(out, c)
		}
	}
	return out
}

func trimLinePadding(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		cr := strings.HasSuffix(line, "\r")
		line = strings.TrimRight(strings.TrimSuffix(line, "\r"), " \t")
		if cr {
			line += "\r"
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// decodeBodyLenient never fails: undecodable base64 comes back verbatim.
func decodeBodyLenient(body, transferEncoding string) []byte {
	switch normalizeEncoding(transferEncoding) {
	case "base64":
		b, err := base64.StdEncoding.DecodeString(stripWhitespace(body))
		if err != nil {
			return []byte(body)
		}
		return b
	case "quoted-printable":
		return decodeQuotedPrintable(body)
	default:
		return []byte(body)
	}
}

// decodeBodyStrict reports malformed content instead of passing it through.
func decodeBodyStrict(body, transferEncoding string) ([]byte, error) {
	switch normalizeEncoding(transferEncoding) {
	case "base64":
		b, err := base64.StdEncoding.DecodeString(stripWhitespace(body))
		if err != nil {
			return nil, fmt.Errorf("decode base64 content: %w", err)
		}
		return b, nil
	case "quoted-printable":
		b, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("decode quoted-printable content: %w", err)
		}
		return b, nil
	default:
		return []byte(body), nil
	}
}

func normalizeEncoding(v string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(v), `"`))
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
