package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ochairo/vtscan/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/vtscan/internal/domain-orchestrators"
	"github.com/ochairo/vtscan/internal/domain/entities"
	"github.com/ochairo/vtscan/internal/domain/interfaces"
	ports "github.com/ochairo/vtscan/internal/domain/interfaces/gateways"
	"github.com/ochairo/vtscan/internal/domain/services"
	"github.com/ochairo/vtscan/internal/external-adapters/config"
	"github.com/ochairo/vtscan/internal/external-adapters/gpg"
	"github.com/ochairo/vtscan/internal/external-adapters/terminal"
)

type scanOptions struct {
	filePath    string
	verbose     bool
	submit      bool
	engines     bool
	noColor     bool
	configPath  string
	sigPath     string
	keyringPath string
	interval    time.Duration
	maxAttempts int
	maxWait     time.Duration

	set map[string]bool
}

func parseArgs(args []string, stderr io.Writer) (*scanOptions, error) {
	fs := flag.NewFlagSet("vtscan", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &scanOptions{set: make(map[string]bool)}
	fs.BoolVar(&opts.verbose, "v", false, "Shorthand for --verbose")
	fs.BoolVar(&opts.verbose, "verbose", false, "Print the full report as JSON")
	fs.BoolVar(&opts.submit, "s", false, "Shorthand for --scan")
	fs.BoolVar(&opts.submit, "scan", false, "Upload the file for fresh analysis before the lookup")
	fs.BoolVar(&opts.engines, "engines", false, "Print a per-engine detection table")
	fs.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	fs.StringVar(&opts.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/vtscan/config.yaml)")
	fs.StringVar(&opts.sigPath, "sig", "", "Detached OpenPGP signature to verify the file against")
	fs.StringVar(&opts.keyringPath, "keyring", "", "Public key file used with --sig")
	fs.DurationVar(&opts.interval, "interval", 0, "Poll interval while the analysis is queued (default 17s)")
	fs.IntVar(&opts.maxAttempts, "max-attempts", 0, "Give up after this many lookups (0 = no limit)")
	fs.DurationVar(&opts.maxWait, "max-wait", 0, "Give up after waiting this long (0 = no limit)")

	fs.Usage = func() {
		printUsage(fs.Output())
		fs.PrintDefaults()
		fmt.Fprintf(fs.Output(), `
Environment:
  VT_API_KEY            API key (required unless set in the config file)
  VTSCAN_API_URL        API base URL
  VTSCAN_POLL_INTERVAL  Poll interval, e.g. 30s

Examples:
  vtscan ./suspicious.exe
  vtscan -v ./suspicious.exe
  vtscan --scan --engines ./suspicious.exe
  vtscan --sig release.tar.gz.asc --keyring maintainer.asc release.tar.gz
`)
	}

	// Flags may appear on either side of the file path
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	switch len(positional) {
	case 0:
		fmt.Fprintf(fs.Output(), "Error: file path is required\n\n")
		fs.Usage()
		return nil, errors.New("file path is required")
	case 1:
		opts.filePath = positional[0]
	default:
		fmt.Fprintf(fs.Output(), "Error: exactly one file path is accepted, got %d\n\n", len(positional))
		fs.Usage()
		return nil, errors.New("too many arguments")
	}

	return opts, nil
}

// apply layers command line flags over the loaded configuration
func (o *scanOptions) apply(cfg *entities.RunConfig) {
	cfg.Submit = o.submit
	cfg.SignaturePath = o.sigPath
	if o.verbose {
		cfg.Verbose = true
	}
	if o.engines {
		cfg.ShowEngines = true
	}
	if o.noColor {
		cfg.NoColor = true
	}
	if o.set["keyring"] {
		cfg.KeyringPath = o.keyringPath
	}
	if o.set["interval"] {
		cfg.Poll.Interval = o.interval
	}
	if o.set["max-attempts"] {
		cfg.Poll.MaxAttempts = o.maxAttempts
	}
	if o.set["max-wait"] {
		cfg.Poll.MaxWait = o.maxWait
	}
}

func runScan(ctx context.Context, opts *scanOptions, stdout, stderr io.Writer) int {
	logColor, _ := colorModes(opts.noColor, stdout, stderr)
	if !logColor {
		terminal.DisableColor()
	}
	logger := terminal.NewLogger(stderr, opts.verbose)

	// Validate inputs before anything touches the network
	file, err := entities.NewFileReference(opts.filePath)
	if err != nil {
		logger.Error(fmt.Sprintf("Invalid file: %v", err))
		return exitConfig
	}

	cfg, err := config.NewLoader(opts.configPath).Load(opts.apply)
	if err != nil {
		logger.Error(fmt.Sprintf("Configuration error: %v", err))
		return exitConfig
	}
	logColor, reportColor := colorModes(cfg.NoColor, stdout, stderr)
	if !logColor {
		terminal.DisableColor()
	}
	logger = terminal.NewLogger(stderr, cfg.Verbose)

	signatures, err := newSignatureVerifier(cfg, logger)
	if err != nil {
		logger.Error(fmt.Sprintf("Configuration error: %v", err))
		return exitConfig
	}

	orch := newOrchestrator(cfg, signatures, stderr, logger)

	logger.Info("Analyzing file",
		interfaces.F("file", file.Name),
		interfaces.F("size", humanize.Bytes(uint64(file.Size))))

	result, err := orch.PerformScanWorkflow(ctx, file, cfg)
	if err != nil {
		logger.Error(describeError(err))
		logger.Debug("Workflow failed", interfaces.F("error", err))
		return exitFailure
	}

	logger.Debug("Workflow finished",
		interfaces.F("sha256", result.Digest),
		interfaces.F("lookups", result.Attempts),
		interfaces.F("duration", result.WorkflowDuration.Round(time.Millisecond)))
	if result.Report.Permalink != "" {
		logger.Info("Report available", interfaces.F("permalink", result.Report.Permalink))
	}

	renderer := terminal.NewRenderer(stdout, stderr)
	renderer.SetColor(reportColor)
	if err := renderer.Render(result.Report, cfg.Verbose, cfg.ShowEngines); err != nil {
		logger.Error(describeError(err))
		return exitFailure
	}

	return exitOK
}

// colorModes decides color for the log stream (stderr) and the report stream
// (stdout) independently
func colorModes(noColor bool, stdout, stderr io.Writer) (logs, report bool) {
	if noColor {
		return false, false
	}
	return isTerminal(stderr), isTerminal(stdout)
}

// newOrchestrator wires the infrastructure into the workflow
func newOrchestrator(cfg entities.RunConfig, signatures ports.SignatureVerifier, stderr io.Writer, logger interfaces.Logger) *orchestrators.ScanOrchestrator {
	// Layer 1: Gateways (Infrastructure)
	vt := gateways.NewVirusTotalGateway(gateways.VirusTotalConfig{
		APIURL:    cfg.APIURL,
		APIKey:    cfg.APIKey,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.HTTPTimeout,
	})

	// Layer 2: Service (Business Logic)
	lookup := services.NewLookupService(vt, logger)

	var progress interfaces.ProgressIndicator = interfaces.NoOpProgress{}
	if isTerminal(stderr) && !cfg.NoColor {
		progress = terminal.NewSpinner(stderr, 100*time.Millisecond)
	}

	// Layer 3: Orchestrator (Use Case)
	return orchestrators.NewScanOrchestrator(lookup, gateways.NewDigestCalculator(), signatures, progress, logger)
}

// newSignatureVerifier loads the keyring when a signature check was requested.
// It returns a nil interface otherwise.
func newSignatureVerifier(cfg entities.RunConfig, logger interfaces.Logger) (ports.SignatureVerifier, error) {
	if !cfg.VerifySignature() {
		return nil, nil
	}
	if cfg.KeyringPath == "" {
		return nil, errors.New("--sig requires --keyring (or keyring in the config file)")
	}

	verifier := gpg.NewVerifier()
	if err := verifier.ImportKeyFromFile(cfg.KeyringPath); err != nil {
		return nil, fmt.Errorf("failed to import keyring: %w", err)
	}
	logger.Debug("Loaded keyring",
		interfaces.F("path", cfg.KeyringPath),
		interfaces.F("keys", verifier.GetKeyringSize()))
	return verifier, nil
}

// describeError turns workflow errors into the message shown to the user
func describeError(err error) string {
	var subErr *entities.SubmissionError

	switch {
	case errors.Is(err, entities.ErrUnknownResource):
		return "Unknown resource: the service has no report for this file (use --scan to upload it)"
	case errors.Is(err, entities.ErrRateLimited):
		return "Rate limit exceeded (HTTP 204): wait a minute before the next request"
	case errors.Is(err, entities.ErrForbidden):
		return "Access denied (HTTP 403): check the API key"
	case errors.Is(err, entities.ErrEmptyResponse):
		return "Empty response"
	case errors.As(err, &subErr):
		return fmt.Sprintf("Submission failed with response code %d: %s", subErr.Code, subErr.Message)
	case errors.Is(err, entities.ErrMalformedResponse):
		return fmt.Sprintf("Could not parse the service response: %v", err)
	case errors.Is(err, entities.ErrDigestMismatch):
		return fmt.Sprintf("The service reports a different digest for the upload: %v", err)
	case errors.Is(err, orchestrators.ErrSignatureCheck):
		return err.Error()
	case errors.Is(err, context.Canceled):
		return "Interrupted"
	default:
		return err.Error()
	}
}
