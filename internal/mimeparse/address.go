package mimeparse

import "strings"

// ExtractAddress returns the bracketed address in s, else the first
// email-shaped token, else s trimmed.
func ExtractAddress(s string) string {
	if m := angleAddressPattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := bareAddressPattern.FindString(s); m != "" {
		return m
	}
	return strings.TrimSpace(s)
}

// ExtractName returns the display name before a bracketed address, without
// surrounding quotes.
func ExtractName(s string) string {
	i := strings.IndexByte(s, '<')
	if i <= 0 {
		return ""
	}
	name := strings.TrimSpace(s[:i])
	name = strings.TrimSpace(strings.Trim(name, `"`))
	return name
}

func addressesOf(list string) []string {
	var out []string
	for _, item := range SplitAddressList(list) {
		if addr := ExtractAddress(item); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// SplitAddressList splits on commas that are outside quotes and angle
// brackets. Empty items are dropped.
func SplitAddressList(list string) []string {
	var (
		items   []string
		current strings.Builder
		quoted  bool
		angle   bool
		escaped bool
	)
	flush := func() {
		if item := strings.TrimSpace(current.String()); item != "" {
			items = append(items, item)
		}
		current.Reset()
	}

	for _, r := range list {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quoted:
			escaped = true
		case r == '"' && !angle:
			quoted = !quoted
		case r == '<' && !quoted:
			angle = true
		case r == '>' && !quoted:
			angle = false
		case r == ',' && !quoted && !angle:
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return items
}
