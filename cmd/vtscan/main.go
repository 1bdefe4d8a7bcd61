package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes reported to the shell
const (
	exitOK      = 0
	exitFailure = 1 // service, transport or workflow failure
	exitConfig  = 2 // usage or configuration error, nothing was sent
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitConfig
	}

	return runScan(ctx, opts, stdout, stderr)
}

func printUsage(w io.Writer) {
	_, _ = io.WriteString(w, `vtscan - Look up a file's VirusTotal report by SHA-256

Usage:
  vtscan [options] <file>

Looks up the report for the file's SHA-256 digest, optionally uploading the
file first, and waits while the analysis is queued.

Options:
`)
}

var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
