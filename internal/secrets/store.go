// Package secrets keeps the Graph client secret in the OS keyring so it does
// not have to sit in the config file.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"golang.org/x/term"

	"graphmail/internal/config"
)

const (
	keyringPasswordEnv = "GRAPHMAIL_KEYRING_PASSWORD" //nolint:gosec // env var name, not a credential
	keyringBackendEnv  = "GRAPHMAIL_KEYRING_BACKEND"  //nolint:gosec // env var name, not a credential

	backendAuto = "auto"

	// SecretService over D-Bus can block forever when the daemon is
	// installed but not running.
	keyringOpenTimeout = 5 * time.Second
)

var (
	ErrSecretNotFound = errors.New("secret not found")

	errMissingClient       = errors.New("missing tenant or client id")
	errMissingClientSecret = errors.New("missing client secret")
	errNoTTY               = errors.New("no TTY available for keyring passphrase prompt")
	errInvalidBackend      = errors.New("invalid keyring backend")
	errKeyringTimeout      = errors.New("keyring connection timed out")

	openKeyringFunc = openKeyring
	keyringOpenFunc = keyring.Open
)

var backendTypes = map[string]keyring.BackendType{
	"keychain":       keyring.KeychainBackend,
	"secret-service": keyring.SecretServiceBackend,
	"wincred":        keyring.WinCredBackend,
	"file":           keyring.FileBackend,
}

// Backend is the keyring backend in effect and where that choice came from
// (env, config or default).
type Backend struct {
	Name   string
	Source string
}

func ResolveBackend() (Backend, error) {
	if v := normalize(os.Getenv(keyringBackendEnv)); v != "" {
		return Backend{Name: v, Source: "env"}, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return Backend{}, fmt.Errorf("resolve keyring backend: %w", err)
	}
	if v := normalize(cfg.Keyring.Backend); v != "" && v != backendAuto {
		return Backend{Name: v, Source: "config"}, nil
	}

	return Backend{Name: backendAuto, Source: "default"}, nil
}

// allowed returns nil for auto, which lets the keyring library pick a backend.
func (b Backend) allowed() ([]keyring.BackendType, error) {
	if b.Name == "" || b.Name == backendAuto {
		return nil, nil
	}
	if t, ok := backendTypes[b.Name]; ok {
		return []keyring.BackendType{t}, nil
	}
	return nil, fmt.Errorf("%w: %q (expected auto, keychain, secret-service, wincred or file)", errInvalidBackend, b.Name)
}

// linuxFallback decides how an auto backend opens on Linux. Without a session
// bus only the file backend can work; with one, the open is time-bounded.
func linuxFallback(goos string, b Backend, dbusAddr string) (forceFile, bounded bool) {
	if goos != "linux" || b.Name != backendAuto {
		return false, false
	}
	return dbusAddr == "", dbusAddr != ""
}

func passphrasePrompt(password string, passwordSet, isTTY bool) keyring.PromptFunc {
	switch {
	case passwordSet:
		// An explicitly empty passphrase is allowed.
		return keyring.FixedStringPrompt(password)
	case isTTY:
		return keyring.TerminalPrompt
	default:
		return func(string) (string, error) {
			return "", fmt.Errorf("%w; set %s", errNoTTY, keyringPasswordEnv)
		}
	}
}

func openKeyring() (keyring.Keyring, error) {
	dir, err := config.EnsureKeyringDir()
	if err != nil {
		return nil, err
	}

	backend, err := ResolveBackend()
	if err != nil {
		return nil, err
	}
	allowed, err := backend.allowed()
	if err != nil {
		return nil, err
	}

	forceFile, bounded := linuxFallback(runtime.GOOS, backend, os.Getenv("DBUS_SESSION_BUS_ADDRESS"))
	if forceFile {
		allowed = []keyring.BackendType{keyring.FileBackend}
	}

	password, passwordSet := os.LookupEnv(keyringPasswordEnv)
	cfg := keyring.Config{
		ServiceName:      config.AppName,
		AllowedBackends:  allowed,
		FileDir:          dir,
		FilePasswordFunc: passphrasePrompt(password, passwordSet, term.IsTerminal(int(os.Stdin.Fd()))),
	}

	if !bounded {
		ring, err := keyringOpenFunc(cfg)
		if err != nil {
			return nil, fmt.Errorf("open keyring: %w", err)
		}
		return ring, nil
	}
	return openWithTimeout(cfg, keyringOpenTimeout)
}

func openWithTimeout(cfg keyring.Config, timeout time.Duration) (keyring.Keyring, error) {
	type result struct {
		ring keyring.Keyring
		err  error
	}
	done := make(chan result, 1)
	go func() {
		ring, err := keyringOpenFunc(cfg)
		done <- result{ring, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("open keyring: %w", res.err)
		}
		return res.ring, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w after %v; set %s=file and %s to use the encrypted file store",
			errKeyringTimeout, timeout, keyringBackendEnv, keyringPasswordEnv)
	}
}

// SetClientSecret stores the app registration secret for a (tenant, client) pair.
func SetClientSecret(tenantID, clientID, secret string) error {
	key, err := clientSecretKey(tenantID, clientID)
	if err != nil {
		return err
	}
	if secret == "" {
		return errMissingClientSecret
	}

	ring, err := openKeyringFunc()
	if err != nil {
		return err
	}
	item := keyring.Item{
		Key:         key,
		Data:        []byte(secret),
		Label:       config.AppName,
		Description: "Microsoft Graph client secret",
	}
	if err := ring.Set(item); err != nil {
		return fmt.Errorf("store client secret: %w", err)
	}
	return nil
}

func GetClientSecret(tenantID, clientID string) (string, error) {
	key, err := clientSecretKey(tenantID, clientID)
	if err != nil {
		return "", err
	}

	ring, err := openKeyringFunc()
	if err != nil {
		return "", err
	}
	item, err := ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrSecretNotFound
		}
		return "", fmt.Errorf("read client secret: %w", err)
	}
	return string(item.Data), nil
}

func DeleteClientSecret(tenantID, clientID string) error {
	key, err := clientSecretKey(tenantID, clientID)
	if err != nil {
		return err
	}

	ring, err := openKeyringFunc()
	if err != nil {
		return err
	}
	if err := ring.Remove(key); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return ErrSecretNotFound
		}
		return fmt.Errorf("remove client secret: %w", err)
	}
	return nil
}

// clientSecretKey is case-insensitive in both ids.
func clientSecretKey(tenantID, clientID string) (string, error) {
	tenant := normalize(tenantID)
	client := normalize(clientID)
	if tenant == "" || client == "" {
		return "", errMissingClient
	}
	return "graph:client_secret:" + tenant + ":" + client, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
