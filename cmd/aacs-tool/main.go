package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/shlex"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aacskit/aacs/internal/log"
	"github.com/aacskit/aacs/pkg/cli"
	"github.com/aacskit/aacs/pkg/protocol"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usage = `
 * Byte-string arguments are hex-encoded.
 * Signing and bus key commands require a host private key.
 * Signing also requires the host certificate.`

func Usage() {
	fmt.Printf("Usage: %s [OPTION...] COMMAND [ARG...]\n", os.Args[0])
	fmt.Printf("\nRun %s help COMMAND for more information. Valid COMMANDs are listed below.", os.Args[0])
	fmt.Println("")
	fmt.Println(usage)
	fmt.Println("")

	fmt.Printf("Available OPTIONs:\n")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Printf("Available COMMANDs:\n")
	maxLength := 0
	var labels []string
	for command := range commands {
		labels = append(labels, command)
		if len(command) > maxLength {
			maxLength = len(command)
		}
	}
	sort.Strings(labels)
	for _, command := range labels {
		info := commands[command]
		fmt.Printf("  %s%s %s\n", command, strings.Repeat(" ", maxLength-len(command)), info.help)
	}
}

func runCommand(s *session, args []string) int {
	if err := execute(s, args); err != nil {
		switch {
		case errors.Is(err, ErrRequiresPrivateKey):
			writeErr("You must provide a private key with -key-name or -key-file to execute this command (%s)", err)
		case errors.Is(err, ErrRequiresCert):
			writeErr("You must provide a host certificate with -cert-file to execute this command (%s)", err)
		case errors.Is(err, ErrRejected):
			writeErr("Invalid: %s", err)
		default:
			writeErr("Failed to execute command: %s", err)
		}
		return 1
	}
	return 0
}

func runInteractiveShell(s *session, in io.Reader) int {
	scanner := bufio.NewScanner(in)
	for fmt.Printf("> "); scanner.Scan(); fmt.Printf("> ") {
		args, err := shlex.Split(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return 0
		}
		if err != nil {
			writeErr("Invalid command: %s", err)
			continue
		}
		if args[0] == "help" {
			if len(args) > 1 {
				if info, ok := commands[args[1]]; ok {
					info.Usage(args[1])
					continue
				}
			}
			Usage()
			continue
		}
		runCommand(s, args)
	}
	if err := scanner.Err(); err != nil {
		writeErr("Error reading command: %s", err)
		return 1
	}
	return 0
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	var (
		debug       bool
		logLevel    string
		metricsFile string
	)
	config, err := cli.NewConfig(cli.FlagAll)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load credential configuration: %s\n", err)
		os.Exit(1)
	}
	flag.Usage = Usage
	flag.BoolVar(&debug, "debug", false, "Enable verbose debugging messages")
	flag.StringVar(&logLevel, "log-level", "", "Log `level` (none|error|warning|info|debug)")
	flag.StringVar(&metricsFile, "metrics-file", "", "Write operation counters to `file` in Prometheus text format on exit")

	config.RegisterCommandLineFlags()
	flag.Parse()
	if !debug {
		if debugEnv, ok := os.LookupEnv("AACS_VERBOSE"); ok {
			debug = debugEnv != "false" && debugEnv != "0"
		}
	}
	if debug && logLevel == "" {
		logLevel = "debug"
	}
	config.LogLevel = logLevel
	config.ReadFromEnvironment()

	args := flag.Args()
	if len(args) > 0 {
		if args[0] == "help" {
			if len(args) == 1 {
				Usage()
				status = 0
				return
			}
			info, ok := commands[args[1]]
			if !ok {
				writeErr("Unrecognized command: %s", args[1])
				return
			}
			info.Usage(args[1])
			status = 0
			return
		}
		if err := configureFlags(config, args[0]); err != nil {
			writeErr("%s: %s", err, args[0])
			return
		}
	}

	if err := config.LoadConfigFile(); err != nil {
		writeErr("Error loading configuration file: %s", err)
		return
	}
	if config.LogLevel != "" && config.ConfigFilename == "" {
		level, err := log.ParseLevel(config.LogLevel)
		if err != nil {
			writeErr("%s", err)
			return
		}
		log.SetLevel(level)
	}

	if err := protocol.Init(); err != nil {
		writeErr("Error: %s", err)
		return
	}
	if err := config.LoadCredentials(); err != nil {
		writeErr("Error loading credentials: %s", err)
		return
	}

	s := &session{config: config, out: os.Stdout}
	if flag.NArg() > 0 {
		status = runCommand(s, flag.Args())
	} else {
		status = runInteractiveShell(s, os.Stdin)
	}
	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, protocol.Metrics()); err != nil {
			writeErr("Failed to write metrics: %s", err)
			status = 1
		}
	}
}
