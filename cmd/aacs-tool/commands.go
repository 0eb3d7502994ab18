package main

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aacskit/aacs/internal/authentication"
	"github.com/aacskit/aacs/pkg/cli"
	"github.com/aacskit/aacs/pkg/protocol"
	"github.com/aacskit/aacs/pkg/sign"
)

var (
	ErrCommandLineArgs    = errors.New("invalid command line arguments")
	ErrRequiresPrivateKey = errors.New("command requires a host private key")
	ErrRequiresCert       = errors.New("command requires a host certificate")
	ErrUnknownCommand     = errors.New("unrecognized command")
	ErrRejected           = errors.New("rejected")

	selectionNames = map[string]protocol.Selection{
		"LEFT":       protocol.SelectLeft,
		"PROCESSING": protocol.SelectProcessing,
		"RIGHT":      protocol.SelectRight,
		"ALL":        protocol.SelectAll,
	}
)

type Argument struct {
	name string
	help string
}

// session holds the host identity and output stream shared by all commands.
type session struct {
	config *cli.Config
	out    io.Writer
}

func (s *session) privateKey() (protocol.HostPrivateKey, error) {
	if s.config == nil {
		return nil, ErrRequiresPrivateKey
	}
	return s.config.PrivateKey()
}

func (s *session) certificate() ([]byte, error) {
	if s.config == nil {
		return nil, ErrRequiresCert
	}
	return s.config.Certificate()
}

func (s *session) printf(format string, a ...interface{}) {
	fmt.Fprintf(s.out, format, a...)
}

type Handler func(s *session, args map[string]string) error

type Command struct {
	help         string
	requiresKey  bool // True if command requires the host private key
	requiresCert bool // True if command requires the host certificate
	args         []Argument
	optional     []Argument
	handler      Handler
}

// ParseSelection converts a comma-separated list of AES-G3 output names into a Selection.
func ParseSelection(names string) (protocol.Selection, error) {
	var sel protocol.Selection
	for _, name := range strings.Split(names, ",") {
		if v, ok := selectionNames[strings.TrimSpace(strings.ToUpper(name))]; ok {
			sel |= v
		} else {
			return 0, fmt.Errorf("%w: unrecognized output name: %v", ErrCommandLineArgs, name)
		}
	}
	return sel, nil
}

// decodeHex decodes an argument. If size is non-negative, the decoded value must have exactly
// that many bytes.
func decodeHex(name, value string, size int) ([]byte, error) {
	b, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not hex-encoded: %s", ErrCommandLineArgs, name, err)
	}
	if size >= 0 && len(b) != size {
		return nil, fmt.Errorf("%w: %s must be %d bytes", ErrCommandLineArgs, name, size)
	}
	return b, nil
}

// certificateArg accepts a hex-encoded certificate or the name of a certificate file.
func certificateArg(value string) ([]byte, error) {
	if cert, err := hex.DecodeString(value); err == nil && len(cert) == protocol.CertificateLength {
		return cert, nil
	}
	return protocol.LoadCertificate(value)
}

// pointArg accepts a hex-encoded public point or the name of a key file.
func pointArg(value string) ([]byte, error) {
	if point, err := protocol.PublicPointFromHex(value); err == nil {
		return point, nil
	}
	return protocol.LoadPublicPoint(value)
}

func readClaims(args map[string]string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	filename, ok := args["JSON_FILE"]
	if !ok {
		return claims, nil
	}
	jsonBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(jsonBytes, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// extractIssuerPublicKey does not verify that the issuer is trusted.
func extractIssuerPublicKey(token *jwt.Token) (interface{}, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("could not parse JWT claims")
	}
	// The issuer is a bare public point, so the algorithm must be checked explicitly.
	if alg, ok := token.Header["alg"]; !ok {
		return nil, fmt.Errorf("JWT is missing signature algorithm in header")
	} else if algStr, ok := alg.(string); !ok || algStr != authentication.AACSES160 {
		return nil, fmt.Errorf("unsupported signature type")
	}
	issuer, ok := claims["iss"]
	if !ok {
		return nil, fmt.Errorf("JWT is missing issuer")
	}
	issuerB64, ok := issuer.(string)
	if !ok {
		return nil, fmt.Errorf("issuer field is not a string")
	}
	publicKeyBytes, err := base64.StdEncoding.DecodeString(issuerB64)
	if err != nil {
		return nil, fmt.Errorf("issuer is not a base64-encoded string")
	}
	return publicKeyBytes, nil
}

func rejected(what string, err error) error {
	return fmt.Errorf("%s %w: %s", what, ErrRejected, err)
}

// checkReadiness verifies that s holds the host identity needed to run commandName.
func checkReadiness(s *session, commandName string) (*Command, error) {
	info, ok := commands[commandName]
	if !ok {
		return nil, ErrUnknownCommand
	}
	if info.requiresKey {
		if _, err := s.privateKey(); err != nil {
			return nil, requirement(ErrRequiresPrivateKey, cli.ErrNoKeySpecified, err)
		}
	}
	if info.requiresCert {
		if _, err := s.certificate(); err != nil {
			return nil, requirement(ErrRequiresCert, cli.ErrNoCertificateSpecified, err)
		}
	}
	return info, nil
}

func requirement(missing, unset, err error) error {
	if errors.Is(err, unset) {
		return missing
	}
	return fmt.Errorf("%w: %s", missing, err)
}

// configureFlags sets the configuration flags a command needs.
func configureFlags(c *cli.Config, commandName string) error {
	info, ok := commands[commandName]
	if !ok {
		return ErrUnknownCommand
	}
	c.Flags = cli.FlagConfigFile
	if info.requiresKey {
		c.Flags |= cli.FlagPrivateKey
	}
	if info.requiresCert || commandName == "verify" {
		c.Flags |= cli.FlagCertificate
	}
	return nil
}

func execute(s *session, args []string) error {
	if len(args) == 0 {
		return errors.New("missing COMMAND")
	}

	info, err := checkReadiness(s, args[0])
	if err != nil {
		return err
	}

	if len(args)-1 < len(info.args) || len(args)-1 > len(info.args)+len(info.optional) {
		writeErr("Invalid number of command line arguments: %d (%d required, %d optional).", len(args)-1, len(info.args), len(info.optional))
		err = ErrCommandLineArgs
	} else {
		keywords := make(map[string]string)
		for i, argInfo := range info.args {
			keywords[argInfo.name] = args[i+1]
		}
		index := len(info.args) + 1
		for _, argInfo := range info.optional {
			if index >= len(args) {
				break
			}
			keywords[argInfo.name] = args[index]
			index++
		}
		err = info.handler(s, keywords)
	}

	// Print command-specific help
	if errors.Is(err, ErrCommandLineArgs) {
		info.Usage(args[0])
	}
	return err
}

func (c *Command) Usage(name string) {
	fmt.Printf("Usage: %s", name)
	maxLength := 0
	for _, arg := range c.args {
		fmt.Printf(" %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Printf(" [")
	}
	for _, arg := range c.optional {
		fmt.Printf(" %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Printf(" ]")
	}
	fmt.Printf("\n%s\n", c.help)
	maxLength++
	for _, arg := range c.args {
		fmt.Printf("    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
	for _, arg := range c.optional {
		fmt.Printf("    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
}

var commands = map[string]*Command{
	"aes-g3": &Command{
		help: "Derive subkeys and processing key from a 16-byte key",
		args: []Argument{
			Argument{name: "KEY", help: "hex-encoded 16-byte key"},
		},
		optional: []Argument{
			Argument{name: "OUTPUTS", help: "comma-separated list of LEFT, PROCESSING, RIGHT or ALL (default)"},
		},
		handler: func(s *session, args map[string]string) error {
			key, err := decodeHex("KEY", args["KEY"], protocol.BusKeyLength)
			if err != nil {
				return err
			}
			sel := protocol.SelectAll
			if names, ok := args["OUTPUTS"]; ok {
				if sel, err = ParseSelection(names); err != nil {
					return err
				}
			}
			keys, err := protocol.AESG3(key, sel)
			if err != nil {
				return err
			}
			if keys.Left != nil {
				s.printf("left:       %x\n", keys.Left)
			}
			if keys.Processing != nil {
				s.printf("processing: %x\n", keys.Processing)
			}
			if keys.Right != nil {
				s.printf("right:      %x\n", keys.Right)
			}
			return nil
		},
	},
	"cmac": &Command{
		help: "Compute the AES-CMAC of a single 16-byte block",
		args: []Argument{
			Argument{name: "KEY", help: "hex-encoded 16-byte key"},
			Argument{name: "DATA", help: "hex-encoded 16-byte block"},
		},
		handler: func(s *session, args map[string]string) error {
			key, err := decodeHex("KEY", args["KEY"], protocol.BusKeyLength)
			if err != nil {
				return err
			}
			data, err := decodeHex("DATA", args["DATA"], protocol.BusKeyLength)
			if err != nil {
				return err
			}
			mac, err := protocol.CMAC16(data, key)
			if err != nil {
				return err
			}
			s.printf("%x\n", mac)
			return nil
		},
	},
	"sign": &Command{
		help:         "Sign NONCE||POINT with the host private key",
		requiresKey:  true,
		requiresCert: true,
		args: []Argument{
			Argument{name: "NONCE", help: "hex-encoded 20-byte nonce"},
			Argument{name: "POINT", help: "hex-encoded 40-byte public point"},
		},
		handler: func(s *session, args map[string]string) error {
			nonce, err := decodeHex("NONCE", args["NONCE"], protocol.NonceLength)
			if err != nil {
				return err
			}
			point, err := decodeHex("POINT", args["POINT"], protocol.PublicPointLength)
			if err != nil {
				return err
			}
			skey, err := s.privateKey()
			if err != nil {
				return err
			}
			native, ok := skey.(*authentication.NativeHostKey)
			if !ok {
				return fmt.Errorf("private key is not exportable")
			}
			cert, err := s.certificate()
			if err != nil {
				return err
			}
			signature, err := protocol.Sign(cert, native.Bytes(), nonce, point)
			if err != nil {
				return err
			}
			s.printf("%x\n", signature)
			return nil
		},
	},
	"verify": &Command{
		help: "Verify a signature against the public key in a certificate",
		args: []Argument{
			Argument{name: "SIGNATURE", help: "hex-encoded 40-byte signature"},
			Argument{name: "DATA", help: "hex-encoded signed data"},
		},
		optional: []Argument{
			Argument{name: "CERT", help: "hex-encoded certificate or certificate file (default: host certificate)"},
		},
		handler: func(s *session, args map[string]string) error {
			signature, err := decodeHex("SIGNATURE", args["SIGNATURE"], -1)
			if err != nil {
				return err
			}
			data, err := decodeHex("DATA", args["DATA"], -1)
			if err != nil {
				return err
			}
			var cert []byte
			if value, ok := args["CERT"]; ok {
				cert, err = certificateArg(value)
			} else {
				cert, err = s.certificate()
			}
			if err != nil {
				return err
			}
			e, err := protocol.DefaultEngine()
			if err != nil {
				return err
			}
			if err := e.Verify(signature, data, cert); err != nil {
				return rejected("signature", err)
			}
			s.printf("valid\n")
			return nil
		},
	},
	"verify-la": &Command{
		help: "Verify a signature made by the licensing authority",
		args: []Argument{
			Argument{name: "SIGNATURE", help: "hex-encoded 40-byte signature"},
			Argument{name: "DATA", help: "hex-encoded signed data"},
		},
		handler: func(s *session, args map[string]string) error {
			signature, err := decodeHex("SIGNATURE", args["SIGNATURE"], -1)
			if err != nil {
				return err
			}
			data, err := decodeHex("DATA", args["DATA"], -1)
			if err != nil {
				return err
			}
			e, err := protocol.DefaultEngine()
			if err != nil {
				return err
			}
			if err := e.VerifyAACSLA(signature, data); err != nil {
				return rejected("signature", err)
			}
			s.printf("valid\n")
			return nil
		},
	},
	"verify-cert": &Command{
		help: "Verify a certificate's licensing authority signature",
		args: []Argument{
			Argument{name: "CERT", help: "hex-encoded certificate or certificate file"},
		},
		optional: []Argument{
			Argument{name: "TYPE", help: "required certificate type: host, drive or any (default)"},
		},
		handler: func(s *session, args map[string]string) error {
			cert, err := certificateArg(args["CERT"])
			if err != nil {
				return err
			}
			e, err := protocol.DefaultEngine()
			if err != nil {
				return err
			}
			switch strings.ToLower(args["TYPE"]) {
			case "", "any":
				err = e.VerifyCert(cert)
			case "host":
				err = e.VerifyHostCert(cert)
			case "drive":
				err = e.VerifyDriveCert(cert)
			default:
				return fmt.Errorf("%w: unrecognized certificate type %s", ErrCommandLineArgs, args["TYPE"])
			}
			if err != nil {
				return rejected("certificate", err)
			}
			s.printf("valid\n")
			return nil
		},
	},
	"verify-cert-issuer": &Command{
		help: "Verify a certificate against an issuer's public point instead of the licensing authority",
		args: []Argument{
			Argument{name: "CERT", help: "hex-encoded certificate or certificate file"},
			Argument{name: "ISSUER", help: "hex-encoded 40-byte public point or key file"},
		},
		handler: func(s *session, args map[string]string) error {
			cert, err := certificateArg(args["CERT"])
			if err != nil {
				return err
			}
			issuer, err := pointArg(args["ISSUER"])
			if err != nil {
				return err
			}
			e, err := protocol.DefaultEngine()
			if err != nil {
				return err
			}
			if err := e.VerifyCertIssuedBy(cert, issuer); err != nil {
				return rejected("certificate", err)
			}
			s.printf("valid\n")
			return nil
		},
	},
	"title-hash": &Command{
		help: "Compute the SHA-1 title hash of a file",
		args: []Argument{
			Argument{name: "FILE", help: "file to hash"},
		},
		handler: func(s *session, args map[string]string) error {
			data, err := os.ReadFile(args["FILE"])
			if err != nil {
				return err
			}
			digest, err := protocol.TitleHash(data)
			if err != nil {
				return err
			}
			s.printf("%x\n", digest)
			return nil
		},
	},
	"nonce": &Command{
		help: "Generate a random nonce",
		optional: []Argument{
			Argument{name: "LENGTH", help: "nonce length in bytes (default 20)"},
		},
		handler: func(s *session, args map[string]string) error {
			length := protocol.NonceLength
			if value, ok := args["LENGTH"]; ok {
				var err error
				if length, err = strconv.Atoi(value); err != nil || length < 0 {
					return fmt.Errorf("%w: LENGTH must be a non-negative integer", ErrCommandLineArgs)
				}
			}
			nonce, err := protocol.CreateNonce(length)
			if err != nil {
				return err
			}
			s.printf("%x\n", nonce)
			return nil
		},
	},
	"bus-key": &Command{
		help:        "Derive the bus key shared with the owner of a public point",
		requiresKey: true,
		args: []Argument{
			Argument{name: "PEER", help: "hex-encoded 40-byte public point or key file"},
		},
		handler: func(s *session, args map[string]string) error {
			peer, err := pointArg(args["PEER"])
			if err != nil {
				return err
			}
			skey, err := s.privateKey()
			if err != nil {
				return err
			}
			busKey, err := skey.BusKey(peer)
			if err != nil {
				return err
			}
			s.printf("%x\n", busKey)
			return nil
		},
	},
	"keypair": &Command{
		help: "Generate a random host key pair without saving it",
		handler: func(s *session, args map[string]string) error {
			privateKey, publicPoint, err := protocol.CreateHostKeyPair()
			if err != nil {
				return err
			}
			s.printf("private: %x\npublic:  %x\n", privateKey, publicPoint)
			return nil
		},
	},
	"public-key": &Command{
		help:        "Print the host public point",
		requiresKey: true,
		handler: func(s *session, args map[string]string) error {
			skey, err := s.privateKey()
			if err != nil {
				return err
			}
			s.printf("%x\n", skey.PublicBytes())
			return nil
		},
	},
	"jws-sign": &Command{
		help:        "Sign JWT claims addressed to host application APP",
		requiresKey: true,
		args: []Argument{
			Argument{name: "APP", help: "application name used in the audience claim"},
		},
		optional: []Argument{
			Argument{name: "JSON_FILE", help: "file containing JSON claims"},
		},
		handler: func(s *session, args map[string]string) error {
			claims, err := readClaims(args)
			if err != nil {
				return err
			}
			skey, err := s.privateKey()
			if err != nil {
				return err
			}
			token, err := sign.ClaimsForHost(skey, args["APP"], claims)
			if err != nil {
				return err
			}
			s.printf("%s\n", token)
			return nil
		},
	},
	"jws-sign-drive": &Command{
		help:        "Sign JWT claims addressed to application APP on a single drive",
		requiresKey: true,
		args: []Argument{
			Argument{name: "DRIVE_ID", help: "hex-encoded 6-byte certificate ID of the drive"},
			Argument{name: "APP", help: "application name used in the audience claim"},
		},
		optional: []Argument{
			Argument{name: "JSON_FILE", help: "file containing JSON claims"},
		},
		handler: func(s *session, args map[string]string) error {
			driveID, err := decodeHex("DRIVE_ID", args["DRIVE_ID"], 6)
			if err != nil {
				return err
			}
			claims, err := readClaims(args)
			if err != nil {
				return err
			}
			skey, err := s.privateKey()
			if err != nil {
				return err
			}
			token, err := sign.ClaimsForDrive(skey, driveID, args["APP"], claims)
			if err != nil {
				return err
			}
			s.printf("%s\n", token)
			return nil
		},
	},
	"jws-verify": &Command{
		help: "Verify a JWT signed by a host key and print its claims. Does not check that the issuer is trusted.",
		args: []Argument{
			Argument{name: "TOKEN", help: "the JWT"},
		},
		handler: func(s *session, args map[string]string) error {
			token, err := jwt.ParseWithClaims(args["TOKEN"], jwt.MapClaims{}, extractIssuerPublicKey)
			if err != nil {
				return rejected("token", err)
			}
			claims, err := json.Marshal(token.Claims)
			if err != nil {
				return err
			}
			s.printf("%s\n", claims)
			return nil
		},
	},
}
