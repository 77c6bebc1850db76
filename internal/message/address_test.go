package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in   string
		want Address
	}{
		{"Alice Example <alice@example.com>", Address{Name: "Alice Example", Address: "alice@example.com"}},
		{"  bob@example.com  ", Address{Address: "bob@example.com"}},
		{`"Doe, Jane" <jane@example.com>`, Address{Name: "Doe, Jane", Address: "jane@example.com"}},
		{"<noname@example.com>", Address{Address: "noname@example.com"}},
		{"=?UTF-8?Q?Ren=C3=A9?= <rene@example.com>", Address{Name: "René", Address: "rene@example.com"}},
	}

	for _, tt := range tests {
		got, err := ParseAddress(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseAddressRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"not an address",
		"a@example.com, b@example.com",
		"Alice <alice@example.com",
		"Alice <>",
	} {
		_, err := ParseAddress(in)
		assert.ErrorIs(t, err, ErrInvalidAddress, in)

		_, ok := TryParseAddress(in)
		assert.False(t, ok, in)
	}
}

func TestAddressString(t *testing.T) {
	assert.Equal(t, "bob@example.com", Address{Address: "bob@example.com"}.String())
	assert.Equal(t, "Bob <bob@example.com>", Address{Name: "Bob", Address: "bob@example.com"}.String())
	assert.Equal(t, `"Doe, Jane" <jane@example.com>`, Address{Name: "Doe, Jane", Address: "jane@example.com"}.String())

	a := Address{Address: "ops@mail.contoso.com"}
	assert.Equal(t, "ops", a.LocalPart())
	assert.Equal(t, "mail.contoso.com", a.Domain())
}

func TestAddressStringParsesBack(t *testing.T) {
	for _, a := range []Address{
		{Name: "Doe, Jane", Address: "jane@example.com"},
		{Name: `Say "hi"`, Address: "hi@example.com"},
		{Address: "plain@example.com"},
	} {
		got, err := ParseAddress(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
}

func TestAddressList(t *testing.T) {
	list, err := ParseAddressList(`Alice <alice@example.com>, "Doe, Jane" <jane@example.com>, bob@example.com`)
	require.NoError(t, err)
	require.Equal(t, 3, list.Len())
	assert.Equal(t, []string{"alice@example.com", "jane@example.com", "bob@example.com"}, list.Addresses())

	assert.True(t, list.Contains(Address{Address: "BOB@example.com"}))
	assert.Equal(t, 1, list.IndexOf(Address{Address: "jane@example.com"}))

	assert.True(t, list.Remove(Address{Address: "jane@example.com"}))
	assert.False(t, list.Remove(Address{Address: "jane@example.com"}))
	assert.Equal(t, "Alice <alice@example.com>, bob@example.com", list.String())

	list.AddRange(Address{Address: "c@example.com"}, Address{Address: "d@example.com"})
	assert.Equal(t, 4, list.Len())

	boxes := list.Mailboxes()
	boxes[0].Name = "changed"
	assert.Equal(t, "Alice", list.Mailboxes()[0].Name)

	list.Clear()
	assert.Equal(t, 0, list.Len())
	assert.Equal(t, -1, list.IndexOf(Address{Address: "c@example.com"}))

	_, err = ParseAddressList("ok@example.com, broken")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestZeroAddressList(t *testing.T) {
	var list AddressList
	assert.Equal(t, 0, list.Len())
	assert.Empty(t, list.String())

	list.Add(Address{Address: "x@example.com"})
	assert.Equal(t, []string{"x@example.com"}, list.Addresses())
}
