package message

import (
	"errors"
	"fmt"
	"strings"

	"graphmail/internal/mimeparse"
)

var ErrInvalidAddress = errors.New("invalid address")

// Address is a mailbox: an optional display name and an email address.
type Address struct {
	Name    string
	Address string
}

// ParseAddress reads exactly one `Name <email>` or bare `email`.
func ParseAddress(s string) (Address, error) {
	items := mimeparse.SplitAddressList(s)
	switch len(items) {
	case 0:
		return Address{}, fmt.Errorf("%w: no address in %q", ErrInvalidAddress, s)
	case 1:
	default:
		return Address{}, fmt.Errorf("%w: %d addresses in %q", ErrInvalidAddress, len(items), s)
	}
	return parseMailbox(items[0])
}

// TryParseAddress is ParseAddress without the error.
func TryParseAddress(s string) (Address, bool) {
	a, err := ParseAddress(s)
	return a, err == nil
}

func parseMailbox(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if open := strings.LastIndexByte(s, '<'); open >= 0 {
		if !strings.HasSuffix(s, ">") {
			return Address{}, fmt.Errorf("%w: unterminated angle address in %q", ErrInvalidAddress, s)
		}
		addr := strings.TrimSpace(s[open+1 : len(s)-1])
		if !validAddress(addr) {
			return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
		}
		return Address{Name: unquoteName(s[:open]), Address: addr}, nil
	}
	if !validAddress(s) {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return Address{Address: s}, nil
}

func unquoteName(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
		s = strings.ReplaceAll(s, `\"`, `"`)
		s = strings.ReplaceAll(s, `\\`, `\`)
	}
	return mimeparse.DecodeHeader(s)
}

func validAddress(addr string) bool {
	if addr == "" || strings.ContainsAny(addr, " \t<>,;\"") {
		return false
	}
	local, domain, ok := strings.Cut(addr, "@")
	return ok && local != "" && domain != "" && !strings.Contains(domain, "@")
}

const nameSpecials = `()<>[]:;@\,."`

// String renders `Name <email>`, quoting the name when it has specials.
func (a Address) String() string {
	if a.Name == "" {
		return a.Address
	}
	name := a.Name
	if strings.ContainsAny(name, nameSpecials) {
		name = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(name) + `"`
	}
	return name + " <" + a.Address + ">"
}

func (a Address) LocalPart() string {
	local, _, _ := strings.Cut(a.Address, "@")
	return local
}

func (a Address) Domain() string {
	_, domain, _ := strings.Cut(a.Address, "@")
	return domain
}

// AddressList is an ordered, mutable list of addresses. The zero value is
// an empty list.
type AddressList struct {
	items []Address
}

func NewAddressList(addrs ...Address) *AddressList {
	return &AddressList{items: append([]Address(nil), addrs...)}
}

// ParseAddressList parses a comma-separated list. Commas inside quotes or
// angle brackets do not split.
func ParseAddressList(s string) (*AddressList, error) {
	list := &AddressList{}
	for _, item := range mimeparse.SplitAddressList(s) {
		a, err := parseMailbox(item)
		if err != nil {
			return nil, err
		}
		list.Add(a)
	}
	return list, nil
}

func (l *AddressList) Add(a Address) {
	l.items = append(l.items, a)
}

func (l *AddressList) AddRange(addrs ...Address) {
	l.items = append(l.items, addrs...)
}

// Remove drops the first entry with the same address, ignoring case, and
// reports whether one was found.
func (l *AddressList) Remove(a Address) bool {
	i := l.IndexOf(a)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return true
}

func (l *AddressList) Contains(a Address) bool {
	return l.IndexOf(a) >= 0
}

func (l *AddressList) IndexOf(a Address) int {
	if l == nil {
		return -1
	}
	for i, item := range l.items {
		if strings.EqualFold(item.Address, a.Address) {
			return i
		}
	}
	return -1
}

func (l *AddressList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

func (l *AddressList) Clear() {
	l.items = nil
}

// Mailboxes returns a copy of the entries.
func (l *AddressList) Mailboxes() []Address {
	if l == nil {
		return nil
	}
	return append([]Address(nil), l.items...)
}

// Addresses returns the bare email addresses.
func (l *AddressList) Addresses() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l.items))
	for _, a := range l.items {
		out = append(out, a.Address)
	}
	return out
}

func (l *AddressList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, 0, len(l.items))
	for _, a := range l.items {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ", ")
}
