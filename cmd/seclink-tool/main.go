// seclink-tool: encrypted record-matrix multiplication CLI
//
// The party holding the key pair encrypts its records as the left matrix;
// the other party's records are encrypted as the right matrix. multiply
// computes the encrypted product and only the key holder can decrypt it.
//
// Usage:
//   seclink-tool <command> < input.json > output.json
//
// Commands:
//   keygen           Generate public, secret and rotation keys
//   encrypt-left     Encrypt a row-major record matrix as the left operand
//   encrypt-right    Encrypt a record matrix as the right operand
//   multiply         Multiply an encrypted left by an encrypted right matrix
//   multiply-plain   Multiply an encrypted left by a plain right matrix
//   decrypt          Decrypt a product or right matrix
//   shape            Print the shape of an encrypted matrix
//   gen-clks         Generate a deterministic random binary record matrix
//   transport-keygen Generate an X25519 transport key pair
//   seal             Seal a blob to a peer's transport key
//   open             Open a sealed blob
//   version          Print version information

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const VERSION = "0.1.0"

// LogLevelEnv selects the stderr log level: debug, info, warn or error.
const LogLevelEnv = "SECLINK_LOG_LEVEL"

type ErrorOutput struct {
	Error string `json:"error"`
}

type VersionOutput struct {
	Version string `json:"version"`
}

var commands = map[string]func(context.Context, []byte) (any, error){
	"keygen":           decodeAndRun(runKeyGen),
	"encrypt-left":     decodeAndRun(runEncryptLeft),
	"encrypt-right":    decodeAndRun(runEncryptRight),
	"multiply":         decodeAndRun(runMultiply),
	"multiply-plain":   decodeAndRun(runMultiplyPlain),
	"decrypt":          decodeAndRun(runDecrypt),
	"shape":            decodeAndRun(runShape),
	"gen-clks":         decodeAndRun(runGenCLKs),
	"transport-keygen": func(context.Context, []byte) (any, error) { return runTransportKeygen() },
	"seal":             decodeAndRun(runSeal),
	"open":             decodeAndRun(runOpen),
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Getenv(LogLevelEnv)))

	command := os.Args[1]
	switch command {
	case "version":
		outputJSON(VersionOutput{Version: VERSION})
		return
	case "help", "-h", "--help":
		printUsage()
		return
	}

	run, ok := commands[command]
	if !ok {
		outputError(fmt.Sprintf("Unknown command: %s", command))
		os.Exit(1)
	}

	inputBytes, err := readInput()
	if err != nil {
		outputError(fmt.Sprintf("Failed to read input: %v", err))
		os.Exit(1)
	}
	output, err := run(context.Background(), inputBytes)
	if err != nil {
		slog.Error("command failed", "command", command, "err", err)
		outputError(fmt.Sprintf("%s failed: %v", command, err))
		os.Exit(1)
	}
	outputJSON(output)
}

// decodeAndRun parses the JSON input into In before calling fn.
func decodeAndRun[In any](fn func(context.Context, *In) (any, error)) func(context.Context, []byte) (any, error) {
	return func(ctx context.Context, inputBytes []byte) (any, error) {
		var input In
		if len(inputBytes) > 0 {
			if err := json.Unmarshal(inputBytes, &input); err != nil {
				return nil, fmt.Errorf("failed to parse input: %v", err)
			}
		}
		return fn(ctx, &input)
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `seclink-tool: encrypted record-matrix multiplication

Usage:
  seclink-tool <command> < input.json > output.json

Commands:
  keygen           Generate public, secret and rotation keys
  encrypt-left     Encrypt a row-major record matrix as the left operand
  encrypt-right    Encrypt a record matrix as the right operand
  multiply         Multiply an encrypted left by an encrypted right matrix
  multiply-plain   Multiply an encrypted left by a plain right matrix
  decrypt          Decrypt a product or right matrix
  shape            Print the shape of an encrypted matrix
  gen-clks         Generate a deterministic random binary record matrix
  transport-keygen Generate an X25519 transport key pair
  seal             Seal a blob to a peer's transport key
  open             Open a sealed blob
  version          Print version information
  help             Print this help message

All commands read JSON from stdin and write JSON to stdout. Binary values
are base64. Logs go to stderr; set SECLINK_LOG_LEVEL=debug for per-shard
timings.`)
}

func readInput() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		outputError(fmt.Sprintf("Failed to encode output: %v", err))
		os.Exit(1)
	}
}

func outputError(msg string) {
	enc := json.NewEncoder(os.Stdout)
	enc.Encode(ErrorOutput{Error: msg})
}
