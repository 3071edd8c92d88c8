// Command wolfstatec compiles states-language sources into binary state
// images and offers small operational helpers around that pipeline.
package main

import (
	"flag"
	"fmt"
	"os"

	env "github.com/xyproto/env/v2"
)

const versionString = "wolfstatec 0.1.0"

// config holds every environment-overridable setting (SPEC §"Configuration":
// flags/env only, no config file).
type config struct {
	color      bool
	maxErrors  int
	instrLimit int
}

func loadConfig() config {
	return config{
		color:      env.Bool("WOLFSTATE_COLOR", true),
		maxErrors:  env.Int("WOLFSTATE_MAX_ERRORS", 10),
		instrLimit: env.Int("WOLFSTATE_INSTR_LIMIT", 1024),
	}
}

func main() {
	var outputFlag = flag.String("o", "", "output image filename")
	var verbose = flag.Bool("v", false, "verbose mode")
	flag.Parse()

	cfg := loadConfig()
	// Flags may also follow the subcommand and its arguments
	// ("build <file.st> -o out.img"), so parsing resumes after each
	// positional argument.
	var args []string
	for rest := flag.Args(); len(rest) > 0; rest = flag.Args() {
		args = append(args, rest[0])
		flag.CommandLine.Parse(rest[1:])
	}

	if err := RunCLI(args, cfg, *verbose, *outputFlag); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
