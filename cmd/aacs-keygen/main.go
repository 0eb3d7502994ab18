// Utility for generating, saving, and migrating AACS host keys

package main

import (
	"encoding/pem"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aacskit/aacs/internal/authentication"
	"github.com/aacskit/aacs/internal/log"
	"github.com/aacskit/aacs/pkg/cli"
	"github.com/aacskit/aacs/pkg/protocol"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usageText = `
Creates or deletes a host private key and saves it in the system keyring, or migrates a key from a
plaintext file into the system keyring.

The program writes the public point to stdout (except when deleting a key). When using the create
option, the program will not overwrite an existing key unless invoked with -f.

The type of keyring and name of the key inside that keyring are controlled by the command-line
options below, or through the corresponding environment variables.`

func cliUsage() {
	usage(flag.CommandLine.Output())
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "usage: %s [OPTION...] create|delete|export|migrate\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(w, usageText)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "OPTIONS:")
	flag.PrintDefaults()
}

func printPublicKey(skey protocol.HostPrivateKey) bool {
	point := skey.PublicBytes()
	if len(point) != protocol.PublicPointLength {
		return false
	}
	os.Stdout.Write(protocol.EncodePublicPoint(point))
	return true
}

func printPrivateKey(skey protocol.HostPrivateKey) error {
	native, ok := skey.(*authentication.NativeHostKey)
	if !ok {
		return fmt.Errorf("private key is not exportable")
	}
	return pem.Encode(os.Stdout, &pem.Block{Type: protocol.PEMPrivateKey, Bytes: native.Bytes()})
}

func main() {
	// Command-line variables
	var (
		overwrite bool
		skey      protocol.HostPrivateKey
		err       error
	)
	status := 1
	defer func() {
		os.Exit(status)
	}()

	config, err := cli.NewConfig(cli.FlagPrivateKey | cli.FlagConfigFile)
	config.RegisterCommandLineFlags()
	flag.Usage = cliUsage
	flag.BoolVar(&overwrite, "f", false, "Overwrite existing key if it exists")
	flag.Parse()
	if config.Debug {
		log.SetLevel(log.LevelDebug)
	}
	if err != nil {
		writeErr("Failed to load credential configuration: %s", err)
		return
	}
	config.ReadFromEnvironment()
	if err := config.LoadConfigFile(); err != nil {
		writeErr("Failed to load configuration file: %s", err)
		return
	}

	if flag.NArg() != 1 {
		usage(os.Stderr)
		return
	}

	if err := protocol.Init(); err != nil {
		writeErr("%s", err)
		return
	}

	switch flag.Arg(0) {
	case "migrate":
		if config.KeyFilename == "" || config.KeyringKeyName == "" {
			writeErr("Must provide path of existing key (-key-file) and name of new key (-key-name)")
			return
		}

		skey, err = protocol.LoadPrivateKey(config.KeyFilename)
		if err != nil {
			writeErr("Unable to read key: %s", err)
			return
		}
		config.KeyFilename = "" // Prevent key from being re-written to a file
	case "delete":
		if err := config.DeletePrivateKey(); err != nil {
			writeErr("Failed to delete key: %s", err)
		} else {
			status = 0
		}
		return
	case "create":
		if !overwrite {
			// Print key and exit if it already exists
			skey, err = config.PrivateKey()
			if err == nil {
				if ok := printPublicKey(skey); !ok {
					writeErr("Failed to parse key. The keyring may be corrupted. Run with -f to generate new key.")
					return
				}
				status = 0
				return
			}
		}
		privateKey, _, err := protocol.CreateHostKeyPair()
		if err != nil {
			writeErr("Failed to generate private key: %s", err)
			return
		}
		if skey, err = protocol.UnmarshalHostKey(privateKey); err != nil {
			writeErr("Failed to generate private key: %s", err)
			return
		}
	case "export":
		skey, err = config.PrivateKey()
		if err == nil {
			err = printPrivateKey(skey)
		}
		if err != nil {
			writeErr("Failed to export private key: %s", err)
		}
		return
	default:
		writeErr("Unrecognized command-line argument.")
		writeErr("")
		usage(os.Stderr)
		return
	}

	if err = config.SavePrivateKey(skey); err != nil {
		writeErr("Failed to save key: %s", err)
		return
	}

	if ok := printPublicKey(skey); !ok {
		writeErr("Failed to extract public key. Run with -f to generate new key pair.")
		return
	}
	status = 0
}
