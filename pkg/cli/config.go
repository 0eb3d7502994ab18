/*
Package cli facilitates building command-line applications that use an AACS host identity. It
defines a [Config] type that can be used to register common command-line flags (using the Golang
flag package), environment variable equivalents and a YAML configuration file.

The package uses [keyring]'s platform-agnostic interface for storing host private keys in an
OS-dependent credential store.

# Examples

	import flag

	config, err := NewConfig(FlagAll)
	if err != nil {
		panic(err)
	}
	config.RegisterCommandLineFlags() // Adds command-line flags for private keys, certificates, etc.
	flag.Parse()
	config.ReadFromEnvironment()      // Fills in missing fields using environment variables
	if err := config.LoadConfigFile(); err != nil { // Fills in remaining fields from the YAML file
		panic(err)
	}
	config.LoadCredentials()          // Prompt for Keyring password if needed

	skey, err := config.PrivateKey()
	cert, err := config.Certificate()

Explicit command-line flags take precedence over environment variables, which take precedence over
the configuration file.
*/
package cli

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/aacskit/aacs/internal/log"
	"github.com/aacskit/aacs/pkg/protocol"

	"github.com/99designs/keyring"
	"gopkg.in/yaml.v3"
)

// Environment variable names used are used by [Config.ReadFromEnvironment] to set common parameters.
const (
	EnvAACSKeyName      = "AACS_KEY_NAME"
	EnvAACSKeyFile      = "AACS_KEY_FILE"
	EnvAACSCertFile     = "AACS_CERT_FILE"
	EnvAACSConfigFile   = "AACS_CONFIG_FILE"
	EnvAACSKeyringType  = "AACS_KEYRING_TYPE"
	EnvAACSKeyringPass  = "AACS_KEYRING_PASSWORD"
	EnvAACSKeyringPath  = "AACS_KEYRING_PATH"
	EnvAACSKeyringDebug = "AACS_KEYRING_DEBUG"
)

// Flag controls what options should be scanned from the command line and/or environment variables.
type Flag int

func (f Flag) isSet(other Flag) bool {
	return (f & other) == other
}

const (
	FlagPrivateKey  Flag = 1 // Enable private key options. Required for signing and bus keys.
	FlagCertificate Flag = 2 // Enable host certificate options.
	FlagConfigFile  Flag = 4 // Enable the YAML configuration file.
	FlagAll         Flag = FlagPrivateKey | FlagCertificate | FlagConfigFile
)

var (
	ErrNoKeySpecified         = errors.New("private key location not provided")
	ErrNoCertificateSpecified = errors.New("host certificate location not provided")
	ErrKeyNotFound            = keyring.ErrKeyNotFound
)

// FileConfig is the layout of the YAML configuration file.
type FileConfig struct {
	// HostPrivateKey is a hex-encoded 20-byte private scalar.
	HostPrivateKey string `yaml:"host_private_key"`
	// HostCertificate is a hex-encoded 92-byte host certificate.
	HostCertificate string `yaml:"host_certificate"`
	Keyring         struct {
		Type string `yaml:"type"`
		Path string `yaml:"path"`
		Name string `yaml:"name"`
	} `yaml:"keyring"`
	LogLevel string `yaml:"log_level"`
}

// LoadFile parses the YAML configuration file at path.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("invalid configuration file %s: %w", path, err)
	}
	return &fc, nil
}

// Config fields determine where the host identity is loaded from.
type Config struct {
	Flags          Flag   // Controls which set of environment variables/CLI flags to use.
	KeyringKeyName string // Username for private key in system keyring
	KeyFilename    string
	CertFilename   string
	ConfigFilename string
	LogLevel       string
	Backend        keyring.Config
	BackendType    backendType
	Debug          bool // Enable keyring debug messages

	password   *string
	skey       protocol.HostPrivateKey
	cert       []byte
	inlineKey  []byte
	inlineCert []byte
}

func NewConfig(flags Flag) (*Config, error) {
	c := Config{
		Flags: flags,
		Backend: keyring.Config{
			ServiceName:              keyringServiceName,
			KeychainTrustApplication: true,
			KeyCtlScope:              "user",
		},
	}
	c.BackendType = backendType{&c}
	c.Backend.KeychainPasswordFunc = c.getPassword
	c.Backend.FilePasswordFunc = c.getPassword

	return &c, nil
}

func (c *Config) RegisterCommandLineFlags() {
	if c.Flags.isSet(FlagPrivateKey) {
		flag.StringVar(&c.KeyringKeyName, "key-name", "", "System keyring `name` for private key. Defaults to $AACS_KEY_NAME.")
		flag.StringVar(&c.KeyFilename, "key-file", "", "A `file` containing private key. Defaults to $AACS_KEY_FILE.")

		var names []string
		for _, name := range keyring.AvailableBackends() {
			names = append(names, string(name))
		}
		sort.Strings(names)
		flag.Var(&c.BackendType, "keyring-type", "Keyring `type` ("+strings.Join(names, "|")+"). Defaults to $AACS_KEYRING_TYPE.")
		flag.StringVar(&c.Backend.FileDir, "keyring-file-dir", "", "keyring `directory` for file-backed keyring types. Defaults to $AACS_KEYRING_PATH.")
		flag.BoolVar(&c.Debug, "keyring-debug", false, "Enable keyring debug logging")
	}
	if c.Flags.isSet(FlagCertificate) {
		flag.StringVar(&c.CertFilename, "cert-file", "", "A `file` containing the host certificate. Defaults to $AACS_CERT_FILE.")
	}
	if c.Flags.isSet(FlagConfigFile) {
		flag.StringVar(&c.ConfigFilename, "config", "", "YAML configuration `file`. Defaults to $AACS_CONFIG_FILE.")
	}
}

// LoadCredentials attempts to open a keyring, prompting for a password if needed. It is not an
// error for c to not specify a private key.
func (c *Config) LoadCredentials() error {
	if c.Flags.isSet(FlagPrivateKey) {
		if _, err := c.PrivateKey(); err != nil && !errors.Is(err, ErrNoKeySpecified) {
			return err
		}
	}
	return nil
}

// ReadFromEnvironment populates c using environment variables. Values that are already populated
// are not overwritten.
//
// Calling ReadFromEnvironment after flag.Parse() (or other initialization method) will prevent the
// environment from overriding explicit command-line parameters and avoid potentially misleading
// debug log messages.
func (c *Config) ReadFromEnvironment() {
	if c.Flags.isSet(FlagPrivateKey) {
		if c.KeyringKeyName == "" && c.KeyFilename == "" {
			c.KeyringKeyName = os.Getenv(EnvAACSKeyName)
			log.Debug("Set key name to '%s'", c.KeyringKeyName)

			c.KeyFilename = os.Getenv(EnvAACSKeyFile)
			log.Debug("Set key file to '%s'", c.KeyFilename)
		}
		if c.BackendType.String() == string(keyring.InvalidBackend) {
			if err := c.BackendType.Set(os.Getenv(EnvAACSKeyringType)); err == nil {
				log.Debug("Set keyring type to '%s'", c.BackendType)
			}
		}
		if c.password == nil {
			password := os.Getenv(EnvAACSKeyringPass)
			c.password = &password
			if len(password) > 0 {
				log.Debug("Set keyring File Password to %s", strings.Repeat("*", len("hunter2")))
			}
		}
		if c.Backend.FileDir == "" {
			c.Backend.FileDir = os.Getenv(EnvAACSKeyringPath)
			log.Debug("Set keyring File Path to '%s'", c.Backend.FileDir)
		}
		if !c.Debug {
			_, c.Debug = os.LookupEnv(EnvAACSKeyringDebug)
			log.Debug("Set keyring Debug Logging to '%v'", c.Debug)
		}
	}
	if c.Flags.isSet(FlagCertificate) && c.CertFilename == "" {
		c.CertFilename = os.Getenv(EnvAACSCertFile)
		log.Debug("Set certificate file to '%s'", c.CertFilename)
	}
	if c.Flags.isSet(FlagConfigFile) && c.ConfigFilename == "" {
		c.ConfigFilename = os.Getenv(EnvAACSConfigFile)
		log.Debug("Set configuration file to '%s'", c.ConfigFilename)
	}
}

// LoadConfigFile populates fields of c that are still empty from c.ConfigFilename. It does nothing
// if no configuration file is set.
func (c *Config) LoadConfigFile() error {
	if !c.Flags.isSet(FlagConfigFile) || c.ConfigFilename == "" {
		return nil
	}
	log.Debug("Loading configuration from %s...", c.ConfigFilename)
	fc, err := LoadFile(c.ConfigFilename)
	if err != nil {
		return err
	}
	return c.apply(fc)
}

func (c *Config) apply(fc *FileConfig) error {
	if c.LogLevel == "" && fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if c.LogLevel != "" {
		level, err := log.ParseLevel(c.LogLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
	}
	if c.Flags.isSet(FlagPrivateKey) {
		if c.KeyringKeyName == "" && c.KeyFilename == "" {
			c.KeyringKeyName = fc.Keyring.Name
			if fc.HostPrivateKey != "" {
				scalar, err := hex.DecodeString(fc.HostPrivateKey)
				if err != nil {
					return fmt.Errorf("invalid host_private_key: %w", err)
				}
				c.inlineKey = scalar
			}
		}
		if c.BackendType.String() == string(keyring.InvalidBackend) {
			if err := c.BackendType.Set(fc.Keyring.Type); err != nil {
				return fmt.Errorf("keyring type '%s': %w", fc.Keyring.Type, err)
			}
		}
		if c.Backend.FileDir == "" {
			c.Backend.FileDir = fc.Keyring.Path
		}
	}
	if c.Flags.isSet(FlagCertificate) && c.CertFilename == "" && fc.HostCertificate != "" {
		cert, err := hex.DecodeString(fc.HostCertificate)
		if err != nil {
			return fmt.Errorf("invalid host_certificate: %w", err)
		}
		c.inlineCert = cert
	}
	return nil
}

// PrivateKey loads a private key from the location specified in c.
//
// The private key is cached after it is first loaded, and subsequent calls will always return the
// same private key.
func (c *Config) PrivateKey() (skey protocol.HostPrivateKey, err error) {
	if c.skey != nil {
		return c.skey, nil
	}
	if !c.Flags.isSet(FlagPrivateKey) {
		log.Debug("Skipping private key loading because FlagPrivateKey is not set")
		return nil, ErrNoKeySpecified
	}
	switch {
	case c.KeyFilename != "":
		skey, err = protocol.LoadPrivateKey(c.KeyFilename)
	case c.KeyringKeyName != "":
		skey, err = c.LoadKeyFromKeyring()
	case c.inlineKey != nil:
		skey, err = protocol.UnmarshalHostKey(c.inlineKey)
	default:
		return nil, ErrNoKeySpecified
	}
	if err != nil {
		return nil, err
	}
	c.skey = skey
	return skey, nil
}

// Certificate returns the host certificate specified in c. The certificate's signature is not
// checked.
func (c *Config) Certificate() ([]byte, error) {
	if c.cert != nil {
		return c.cert, nil
	}
	if !c.Flags.isSet(FlagCertificate) {
		return nil, ErrNoCertificateSpecified
	}
	var err error
	switch {
	case c.CertFilename != "":
		c.cert, err = protocol.LoadCertificate(c.CertFilename)
	case c.inlineCert != nil:
		if len(c.inlineCert) != protocol.CertificateLength {
			err = fmt.Errorf("%w: host_certificate must be %d bytes", protocol.ErrInvalidCertificateFormat, protocol.CertificateLength)
		} else {
			c.cert = c.inlineCert
		}
	default:
		err = ErrNoCertificateSpecified
	}
	if err != nil {
		c.cert = nil
		return nil, err
	}
	return c.cert, nil
}

// SavePrivateKey writes skey to the system keyring or file, depending on what options are
// configured. The method prefers the keyring if both options are available.
func (c *Config) SavePrivateKey(skey protocol.HostPrivateKey) error {
	if c.KeyringKeyName != "" {
		return c.saveKeyToKeyring(skey)
	}
	if c.KeyFilename != "" {
		return protocol.SavePrivateKey(skey, c.KeyFilename)
	}
	return ErrNoKeySpecified
}
