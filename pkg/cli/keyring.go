package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/aacskit/aacs/internal/authentication"
	"github.com/aacskit/aacs/pkg/protocol"

	"github.com/99designs/keyring"
	"golang.org/x/term"
)

const (
	keyringServiceName = "org.aacs.host"
	keyringKeyService  = "hostPrivateKey"
)

type backendType struct {
	config *Config
}

func (b backendType) String() string {
	if b.config == nil || len(b.config.Backend.AllowedBackends) == 0 {
		return string(keyring.InvalidBackend)
	}
	return string(b.config.Backend.AllowedBackends[0])
}

func (b backendType) Set(v string) error {
	value := keyring.BackendType(v)
	if b.config == nil {
		return fmt.Errorf("invalid backendType")
	}
	if v == "" {
		return nil
	}
	for _, name := range keyring.AvailableBackends() {
		if name == value {
			b.config.Backend.AllowedBackends = []keyring.BackendType{name}
			return nil
		}
	}
	return fmt.Errorf("unsupported credential storage")
}

func (c *Config) getPassword(prompt string) (string, error) {
	if c.password != nil && *c.password != "" {
		return *c.password, nil
	}

	var w io.Writer
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		fd = int(os.Stderr.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("no terminal output available for password prompt")
		} else {
			w = os.Stderr
		}
	} else {
		w = os.Stdout
	}

	fmt.Fprintf(w, "%s: ", prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(w)
	password := string(b)
	c.password = &password
	return password, nil
}

func (c *Config) openKeyring() (keyring.Keyring, error) {
	return keyring.Open(c.Backend)
}

// LoadKeyFromKeyring reads a private key from the system keyring.
//
// The provided name is an arbitrary string that identifies the key.
func (c *Config) LoadKeyFromKeyring() (protocol.HostPrivateKey, error) {
	kr, err := c.openKeyring()
	if err != nil {
		return nil, err
	}
	item, err := kr.Get(c.fullKeyName())
	if err != nil {
		return nil, fmt.Errorf("could not load key: %w", err)
	}
	key, err := protocol.UnmarshalHostKey(item.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

func (c *Config) fullKeyName() string {
	return keyringKeyService + "." + c.KeyringKeyName
}

// saveKeyToKeyring writes a private key to the system keyring.
func (c *Config) saveKeyToKeyring(key protocol.HostPrivateKey) error {
	nativeKey, ok := key.(*authentication.NativeHostKey)
	if !ok {
		return fmt.Errorf("key is not exportable")
	}

	kr, err := c.openKeyring()
	if err != nil {
		return err
	}

	if err := kr.Set(keyring.Item{
		Key:   c.fullKeyName(),
		Label: "AACS host private key " + c.KeyringKeyName,
		Data:  nativeKey.Bytes(),
	}); err != nil {
		return fmt.Errorf("failed to enroll key in keyring: %s", err)
	}
	return nil
}

// DeletePrivateKey removes the private key from the system keyring.
func (c *Config) DeletePrivateKey() error {
	kr, err := c.openKeyring()
	if err != nil {
		return err
	}
	return kr.Remove(c.fullKeyName())
}
