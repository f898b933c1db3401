package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/handiism/xivextract/internal/config"
	"github.com/handiism/xivextract/internal/extract"
	xhttp "github.com/handiism/xivextract/internal/http"
	ioutils "github.com/handiism/xivextract/internal/io"
	"github.com/handiism/xivextract/internal/manifest"
	"github.com/handiism/xivextract/internal/sqpack"
	"github.com/schollz/progressbar/v3"
)

var Version = "dev"

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitFetch       = 3
	exitInterrupted = 130
)

// CLI is the command line of xivextract.
type CLI struct {
	Install string `arg:"" name:"install-path" help:"Game install directory (containing game/sqpack)" type:"path"`
	Output  string `arg:"" name:"output-path" help:"Directory to extract files into" type:"path"`
	Threads int    `arg:"" optional:"" name:"threads" help:"Number of extraction workers (default from config, 1)"`

	Config      string           `help:"Path to YAML settings file" type:"path" placeholder:"FILE"`
	ManifestURL string           `name:"manifest-url" help:"Manifest location (overrides config)" placeholder:"URL"`
	Format      string           `help:"Manifest format: pathlist or csv (overrides config)"`
	Verbose     bool             `short:"v" help:"Show verbose output"`
	DryRun      bool             `name:"dry-run" help:"Fetch and partition the manifest without extracting"`
	Bar         bool             `help:"Show a progress bar on stderr instead of progress lines"`
	Version     kong.VersionFlag `help:"Print version and exit"`
}

func main() {
	// Handle interrupts
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, cancelling...")
		cancel()
	}()

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var cli CLI
	exited, exitCode := false, exitOK
	parser, err := kong.New(&cli,
		kong.Name("xivextract"),
		kong.Description("Bulk-extract game files listed in a remote manifest."),
		kong.Vars{"version": Version},
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) {
			exited, exitCode = true, code
		}),
	)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	_, err = parser.Parse(args)
	if exited {
		// --help and --version
		return exitCode
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	settings, err := loadSettings(&cli)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return exitUsage
	}

	level := slog.LevelWarn
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	sqOpts := []sqpack.Option{sqpack.WithLogger(logger)}

	// Check the install once before fetching.
	probe, err := sqpack.Open(cli.Install, sqOpts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening game install: %v\n", err)
		return exitUsage
	}
	probe.Close()

	source, err := manifest.New(xhttp.NewClient(settings.UserAgent, settings.HTTPTimeout), settings.ToManifestOptions())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	opts := extract.Options{Workers: settings.Workers, ProgressInterval: settings.ProgressInterval}
	if cli.Bar {
		opts.ProgressInterval = -1
	}

	printer := newPrinter(stdout, cli.Verbose)
	writer := ioutils.NewWriter(cli.Output)
	coord := extract.NewCoordinator(
		source,
		extract.SQPackOpener(cli.Install, sqOpts...),
		writer,
		opts,
		printer.print,
	)

	fmt.Fprintln(stdout, "📦 xivextract "+Version)
	fmt.Fprintln(stdout, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintln(stdout)

	if _, err := coord.Fetch(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(stdout, "\nCancelled.")
			return exitInterrupted
		}
		fmt.Fprintf(stderr, "Error fetching manifest: %v\n", err)
		return exitFetch
	}

	if cli.DryRun {
		fmt.Fprintln(stdout, "\n[Dry run - not extracting]")
		for _, chunk := range coord.Plan() {
			fmt.Fprintf(stdout, "   worker %d: %d paths (%d..%d)\n", chunk.Index, chunk.Len(), chunk.Start, chunk.End())
		}
		return exitOK
	}

	fmt.Fprintf(stdout, "\n📤 Extracting to %s...\n\n", writer.Root())

	stopBar := func() {}
	if cli.Bar {
		stopBar = startBar(coord, coord.Manifest().Len(), stderr)
	}
	summary, err := coord.Extract(ctx)
	stopBar()
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			fmt.Fprintln(stdout, "\nExtraction cancelled.")
			return exitInterrupted
		}
		fmt.Fprintf(stderr, "Error during extraction: %v\n", err)
		return exitFailure
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintf(stdout, "✨ Complete! Extracted %d/%d files (%.2f MB) in %s\n",
		summary.Extracted, summary.Total, float64(summary.Bytes)/1024/1024, summary.Duration.Round(time.Millisecond))
	if skipped := summary.NotFound + summary.ReadFailed + summary.Rejected; skipped > 0 {
		fmt.Fprintf(stdout, "   (%d missing, %d unreadable, %d refused)\n", summary.NotFound, summary.ReadFailed, summary.Rejected)
	}
	return exitOK
}

// loadSettings reads the config file, then the environment, then flags.
func loadSettings(cli *CLI) (*config.Settings, error) {
	settings := config.DefaultSettings()
	if cli.Config != "" {
		var err error
		settings, err = config.Load(cli.Config)
		if err != nil {
			return nil, err
		}
	}
	if err := settings.LoadFromEnv(); err != nil {
		return nil, err
	}

	// Apply flags
	if cli.ManifestURL != "" {
		settings.ManifestURL = cli.ManifestURL
	}
	if cli.Format != "" {
		settings.ManifestFormat = cli.Format
	}
	if cli.Threads < 0 {
		return nil, fmt.Errorf("threads must be positive, got %d", cli.Threads)
	}
	if cli.Threads > 0 {
		settings.Workers = cli.Threads
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// startBar renders the exact extraction count as a progress bar until the
// returned func is called.
func startBar(coord *extract.Coordinator, total int, w io.Writer) (stop func()) {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("extracting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			completed, _ := coord.GetProgress()
			_ = bar.Set64(completed)
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
		completed, _ := coord.GetProgress()
		_ = bar.Set64(completed)
		fmt.Fprintln(w)
	}
}

// printer writes progress events as prefixed lines. Workers call it
// concurrently.
type printer struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

func newPrinter(w io.Writer, verbose bool) *printer {
	return &printer{w: w, verbose: verbose}
}

func (p *printer) print(event extract.ProgressEvent) {
	if event.Level == extract.LevelVerbose && !p.verbose {
		return
	}

	prefix := ""
	switch event.Level {
	case extract.LevelError:
		prefix = "❌ "
	case extract.LevelWarning:
		prefix = "⚠️  "
	case extract.LevelSuccess:
		prefix = "✅ "
	case extract.LevelInfo:
		prefix = "ℹ️  "
	default:
		prefix = "   "
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, prefix+event.Message)
}
