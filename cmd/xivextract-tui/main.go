package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/handiism/xivextract/internal/config"
	"github.com/handiism/xivextract/internal/tui"
)

var Version = "dev"

// CLI is the command line of xivextract-tui.
type CLI struct {
	Config  string           `help:"Path to YAML settings file" type:"path" placeholder:"FILE"`
	Version kong.VersionFlag `help:"Print version and exit"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("xivextract-tui"),
		kong.Description("Interactive front-end for xivextract."),
		kong.Vars{"version": Version},
	)

	settings := config.DefaultSettings()
	if cli.Config != "" {
		var err error
		settings, err = config.Load(cli.Config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(2)
		}
	}
	if err := settings.LoadFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(2)
	}
	if err := settings.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(2)
	}

	if err := tui.Run(settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
