// Package compat offers SMTP- and mailbox-shaped clients on top of the Graph
// reader and sender, so code written against a classic mail library can
// switch transports with few call-site changes.
//
// Credentials follow the "clientId|tenantId[|senderAddress]" convention: the
// identity string names the app registration and the secret is its client
// secret.
package compat

import (
	"errors"
	"fmt"
	"strings"

	"graphmail/internal/config"
)

// ErrNotInitialized is returned when an operation runs before Authenticate.
var ErrNotInitialized = errors.New("client is not authenticated")

type Identity struct {
	ClientID string
	TenantID string
	Sender   string
}

// ParseIdentity splits "clientId|tenantId[|sender]".
func ParseIdentity(s string) (Identity, error) {
	parts := strings.Split(s, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Identity{}, fmt.Errorf("%w: identity must look like clientId|tenantId[|sender]", config.ErrConfiguration)
	}
	id := Identity{ClientID: parts[0], TenantID: parts[1]}
	if len(parts) > 2 {
		id.Sender = parts[2]
	}
	return id, nil
}

// String renders the identity back into its combined form.
func (id Identity) String() string {
	if id.Sender == "" {
		return id.ClientID + "|" + id.TenantID
	}
	return id.ClientID + "|" + id.TenantID + "|" + id.Sender
}
