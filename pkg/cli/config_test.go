package cli

import (
	"bytes"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aacskit/aacs/pkg/protocol"
)

const (
	testScalar      = "0102030405060708090a0b0c0d0e0f1011121314"
	testPublicPoint = "67cecfefb41b0a03202bee53cf923806948de55b51784c3d5122671645401cd09d013ea62c451aa7"
	testCertificate = "0201005ca1a2a3a4a5a6000067cecfefb41b0a03202bee53cf923806948de55b51784c3d5122671645401cd09d013ea62c451aa717ceccac01de5b25eaf1a739bbcc37c697599c741639f5c5d3235cceaf8e825ad31c86b6bf329979"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aacs.yaml")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnvironment(t *testing.T) {
	for _, name := range []string{EnvAACSKeyName, EnvAACSKeyFile, EnvAACSCertFile, EnvAACSConfigFile,
		EnvAACSKeyringType, EnvAACSKeyringPass, EnvAACSKeyringPath, EnvAACSKeyringDebug} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
host_private_key: `+testScalar+`
host_certificate: `+testCertificate+`
keyring:
  type: file
  path: /tmp/aacs
  name: primary
log_level: debug
`)
	fc, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if fc.HostPrivateKey != testScalar {
		t.Errorf("Unexpected host_private_key %s", fc.HostPrivateKey)
	}
	if fc.HostCertificate != testCertificate {
		t.Errorf("Unexpected host_certificate %s", fc.HostCertificate)
	}
	if fc.Keyring.Type != "file" || fc.Keyring.Path != "/tmp/aacs" || fc.Keyring.Name != "primary" {
		t.Errorf("Unexpected keyring section %+v", fc.Keyring)
	}
	if fc.LogLevel != "debug" {
		t.Errorf("Unexpected log_level %s", fc.LogLevel)
	}

	if _, err := LoadFile(writeConfig(t, "keyring: [unterminated")); err == nil {
		t.Error("Expected error for malformed YAML")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestConfigFileIdentity(t *testing.T) {
	clearEnvironment(t)
	c, err := NewConfig(FlagAll)
	if err != nil {
		t.Fatal(err)
	}
	c.ConfigFilename = writeConfig(t, "host_private_key: "+testScalar+"\nhost_certificate: "+testCertificate+"\n")
	c.ReadFromEnvironment()
	if err := c.LoadConfigFile(); err != nil {
		t.Fatal(err)
	}

	skey, err := c.PrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	if got := hex.EncodeToString(skey.PublicBytes()); got != testPublicPoint {
		t.Errorf("Unexpected public point %s", got)
	}
	cert, err := c.Certificate()
	if err != nil {
		t.Fatal(err)
	}
	if got := hex.EncodeToString(cert); got != testCertificate {
		t.Errorf("Unexpected certificate %s", got)
	}

	again, err := c.PrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	if again != skey {
		t.Error("Private key was not cached")
	}
}

func TestEnvironmentOverridesConfigFile(t *testing.T) {
	clearEnvironment(t)
	keyFile := filepath.Join("..", "protocol", "test", "private.pem")
	certFile := filepath.Join("..", "protocol", "test", "cert.hex")
	t.Setenv(EnvAACSKeyFile, keyFile)
	t.Setenv(EnvAACSCertFile, certFile)
	t.Setenv(EnvAACSConfigFile, writeConfig(t, "host_private_key: "+testScalar[2:]+"02\nhost_certificate: \"00\"\nkeyring:\n  name: ignored\n"))

	c, err := NewConfig(FlagAll)
	if err != nil {
		t.Fatal(err)
	}
	c.ReadFromEnvironment()
	if c.KeyFilename != keyFile || c.CertFilename != certFile {
		t.Fatalf("Environment not applied: %+v", c)
	}
	if err := c.LoadConfigFile(); err != nil {
		t.Fatal(err)
	}
	if c.KeyringKeyName != "" {
		t.Errorf("Config file overrode key location with keyring name %s", c.KeyringKeyName)
	}
	skey, err := c.PrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	if got := hex.EncodeToString(skey.PublicBytes()); got != testPublicPoint {
		t.Errorf("Key was not loaded from %s", keyFile)
	}
	cert, err := c.Certificate()
	if err != nil {
		t.Fatal(err)
	}
	if got := hex.EncodeToString(cert); got != testCertificate {
		t.Errorf("Certificate was not loaded from %s", certFile)
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	clearEnvironment(t)
	t.Setenv(EnvAACSKeyName, "from-environment")
	t.Setenv(EnvAACSCertFile, "from-environment.pem")

	c, err := NewConfig(FlagAll)
	if err != nil {
		t.Fatal(err)
	}
	// Equivalent to -key-file and -cert-file on the command line.
	c.KeyFilename = "from-flag.pem"
	c.CertFilename = "from-flag-cert.pem"
	c.ReadFromEnvironment()
	if c.KeyringKeyName != "" || c.KeyFilename != "from-flag.pem" {
		t.Errorf("Environment overrode key flags: name=%s file=%s", c.KeyringKeyName, c.KeyFilename)
	}
	if c.CertFilename != "from-flag-cert.pem" {
		t.Errorf("Environment overrode certificate flag: %s", c.CertFilename)
	}
}

func TestConfigFileLogLevel(t *testing.T) {
	clearEnvironment(t)
	c, err := NewConfig(FlagConfigFile)
	if err != nil {
		t.Fatal(err)
	}
	c.ConfigFilename = writeConfig(t, "log_level: verbose\n")
	if err := c.LoadConfigFile(); err == nil {
		t.Error("Expected error for unknown log level")
	}

	c, err = NewConfig(FlagConfigFile)
	if err != nil {
		t.Fatal(err)
	}
	c.ConfigFilename = writeConfig(t, "log_level: none\n")
	if err := c.LoadConfigFile(); err != nil {
		t.Fatal(err)
	}
	if c.LogLevel != "none" {
		t.Errorf("Unexpected log level %s", c.LogLevel)
	}
}

func TestConfigFileRejectsBadHex(t *testing.T) {
	clearEnvironment(t)
	c, err := NewConfig(FlagAll)
	if err != nil {
		t.Fatal(err)
	}
	c.ConfigFilename = writeConfig(t, "host_private_key: not-hex\n")
	if err := c.LoadConfigFile(); err == nil {
		t.Error("Expected error for non-hex private key")
	}

	c, err = NewConfig(FlagAll)
	if err != nil {
		t.Fatal(err)
	}
	c.ConfigFilename = writeConfig(t, "host_certificate: \"0102\"\n")
	if err := c.LoadConfigFile(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Certificate(); !errors.Is(err, protocol.ErrInvalidCertificateFormat) {
		t.Errorf("Expected ErrInvalidCertificateFormat for short certificate, got %v", err)
	}
}

func TestMissingIdentity(t *testing.T) {
	clearEnvironment(t)
	c, err := NewConfig(FlagAll)
	if err != nil {
		t.Fatal(err)
	}
	c.ReadFromEnvironment()
	if err := c.LoadConfigFile(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.PrivateKey(); err != ErrNoKeySpecified {
		t.Errorf("Expected ErrNoKeySpecified, got %v", err)
	}
	if _, err := c.Certificate(); err != ErrNoCertificateSpecified {
		t.Errorf("Expected ErrNoCertificateSpecified, got %v", err)
	}
	if err := c.SavePrivateKey(nil); err != ErrNoKeySpecified {
		t.Errorf("Expected ErrNoKeySpecified when saving, got %v", err)
	}

	c, err = NewConfig(FlagCertificate)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.PrivateKey(); err != ErrNoKeySpecified {
		t.Errorf("Expected ErrNoKeySpecified without FlagPrivateKey, got %v", err)
	}
}

func TestSavePrivateKeyToFile(t *testing.T) {
	clearEnvironment(t)
	skey, err := protocol.UnmarshalHostKey(mustDecode(t, testScalar))
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewConfig(FlagPrivateKey)
	if err != nil {
		t.Fatal(err)
	}
	c.KeyFilename = filepath.Join(t.TempDir(), "host.pem")
	if err := c.SavePrivateKey(skey); err != nil {
		t.Fatal(err)
	}
	loaded, err := c.PrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(loaded.PublicBytes(), skey.PublicBytes()) {
		t.Error("Saved key did not load back")
	}
}

func TestBackendType(t *testing.T) {
	c, err := NewConfig(FlagPrivateKey)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.BackendType.Set("no-such-keyring"); err == nil {
		t.Error("Expected error for unsupported keyring type")
	}
	if err := c.BackendType.Set(""); err != nil {
		t.Errorf("Unexpected error for empty keyring type: %s", err)
	}
	if c.BackendType.String() != "" {
		t.Errorf("Unexpected keyring type %s", c.BackendType)
	}
}

func mustDecode(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
