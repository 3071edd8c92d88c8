package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xyproto/wolfstate/bytecode"
	"github.com/xyproto/wolfstate/compiler"
	"github.com/xyproto/wolfstate/image"
	"github.com/xyproto/wolfstate/runtime"
)

// RunCLI dispatches the top-level subcommand (adapted from the teacher's
// CommandContext/RunCLI pattern, reduced to this compiler's subcommands).
func RunCLI(args []string, cfg config, verbose bool, output string) error {
	if len(args) == 0 {
		return cmdHelp()
	}

	switch args[0] {
	case "build":
		if len(args) < 2 {
			return fmt.Errorf("usage: wolfstatec build <file.st|dir> [-o out.img]")
		}
		return cmdBuild(cfg, verbose, output, args[1])

	case "watch":
		if len(args) < 2 {
			return fmt.Errorf("usage: wolfstatec watch <file.st> [-o out.img]")
		}
		return cmdWatch(cfg, verbose, output, args[1])

	case "dump":
		if len(args) < 2 {
			return fmt.Errorf("usage: wolfstatec dump <image>")
		}
		return cmdDump(cfg, args[1])

	case "version", "--version", "-V":
		fmt.Println(versionString)
		return nil

	case "help", "--help", "-h":
		return cmdHelp()

	default:
		return fmt.Errorf("unknown command: %s\n\nRun 'wolfstatec help' for usage information", args[0])
	}
}

func outputPathFor(srcPath, explicit string) string {
	if explicit != "" {
		return explicit
	}
	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	return base + ".img"
}

// cmdBuild compiles one source file, or every .st/.st2 file in a directory
// (teacher's cmdBuildDir), to an image (SPEC_FULL.md "wolfstatec build").
func cmdBuild(cfg config, verbose bool, output, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if info.IsDir() {
		return cmdBuildDir(cfg, verbose, path)
	}
	return buildOne(cfg, verbose, path, outputPathFor(path, output))
}

func cmdBuildDir(cfg config, verbose bool, dir string) error {
	var sources []string
	for _, pattern := range []string{"*.st", "*.st2"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return fmt.Errorf("scanning %s: %w", dir, err)
		}
		sources = append(sources, matches...)
	}
	sort.Strings(sources)
	if len(sources) == 0 {
		return fmt.Errorf("no .st or .st2 sources found in %s", dir)
	}
	for _, src := range sources {
		if err := buildOne(cfg, verbose, src, outputPathFor(src, "")); err != nil {
			return err
		}
	}
	return nil
}

func buildOne(cfg config, verbose bool, srcPath, outPath string) error {
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", srcPath, err)
	}

	if verbose {
		fmt.Fprintf(os.Stdout, "compiling %s -> %s\n", srcPath, outPath)
	}

	result, compileErr := compiler.Compile(string(src), compiler.Options{
		Filename:  srcPath,
		MaxErrors: cfg.maxErrors,
	})
	if result != nil && result.Diagnostics != nil {
		report := result.Diagnostics.Report(cfg.color)
		if report != "" {
			fmt.Fprint(os.Stderr, report)
		}
	}
	if compileErr != nil {
		return fmt.Errorf("compilation of %s failed: %w", srcPath, compileErr)
	}

	if err := result.Assembled.WriteFile(outPath); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	if verbose {
		fmt.Fprintf(os.Stdout, "wrote %s\n", outPath)
	}
	return nil
}

// cmdWatch recompiles srcPath every time it changes on disk (SPEC_FULL.md
// "wolfstatec watch"), debounced the way the teacher's file watchers are.
func cmdWatch(cfg config, verbose bool, output, srcPath string) error {
	outPath := outputPathFor(srcPath, output)

	rebuild := func(path string) {
		if err := buildOne(cfg, verbose, path, outPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		fmt.Fprintf(os.Stdout, "rebuilt %s\n", outPath)
	}

	watcher, err := NewFileWatcher(rebuild)
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.AddFile(srcPath); err != nil {
		return fmt.Errorf("watching %s: %w", srcPath, err)
	}

	rebuild(srcPath) // compile once immediately, then watch for changes
	watcher.Watch()
	return nil
}

// cmdDump prints an image's label table, spawn table, and enum table
// (SPEC_FULL.md "wolfstatec dump"), then dry-runs one tick per spawn's
// initial state under cfg.instrLimit to flag runaway think/action programs
// before an actor ever touches them.
func cmdDump(cfg config, path string) error {
	mapped, err := image.LoadFile(path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	defer mapped.Close()

	fmt.Printf("labels (%d):\n", len(mapped.Labels()))
	names := make([]string, 0, len(mapped.Labels()))
	for name := range mapped.Labels() {
		names = append(names, name)
	}
	sort.Strings(names)
	labels := mapped.Labels()
	for _, name := range names {
		fmt.Printf("  %-30s @%d\n", name, labels[name])
	}

	spawns := mapped.Spawns()
	fmt.Printf("spawns (%d):\n", len(spawns))
	for _, s := range spawns {
		death := "None"
		if s.HasSpawnOnDeath() {
			death = fmt.Sprintf("Some(%d)", s.SpawnOnDeath)
		}
		fmt.Printf("  id=%d direction=%s state=%s spawn_on_death=%s\n", s.ID, s.Direction, s.StateLabel, death)
	}

	enumsPath := path + ".enums"
	if data, err := os.ReadFile(enumsPath); err == nil {
		fmt.Printf("enums (%s):\n", enumsPath)
		fmt.Print(string(data))
	}

	traceSpawns(cfg, mapped.Image, spawns)
	return nil
}

// traceSpawns dry-runs one tick of every spawn's initial state, each
// capped at cfg.instrLimit opcodes, surfacing a runaway think/action
// program at dump time instead of leaving it to be discovered live.
func traceSpawns(cfg config, mapped *image.Image, spawns []image.SpawnInfo) {
	host := &dryRunHost{}
	for _, s := range spawns {
		ctx, err := runtime.New(mapped, s.StateLabel)
		if err != nil {
			fmt.Printf("  trace %s: %v\n", s.StateLabel, err)
			continue
		}
		ctx.InstrLimit = cfg.instrLimit
		if err := ctx.Tick(host); err != nil {
			fmt.Printf("  trace %s: %v\n", s.StateLabel, err)
		}
	}
}

// dryRunHost discards every event; it exists only so cmdDump can exercise
// a think/action program's instruction count without a real actor.
type dryRunHost struct{}

func (h *dryRunHost) OnCall(fnID uint8, ctx *runtime.ExecCtx) {}

func (h *dryRunHost) OnTrap(top bytecode.Value, ctx *runtime.ExecCtx) bytecode.Value {
	return top
}

func (h *dryRunHost) OnGoState(top bytecode.Value, ctx *runtime.ExecCtx) {}

func cmdHelp() error {
	fmt.Printf(`wolfstatec - states-language compiler (%s)

USAGE:
    wolfstatec <command> [arguments]

COMMANDS:
    build <file.st|dir>   Compile one source, or every .st/.st2 file in a directory
    watch <file.st>       Recompile on every save
    dump <image>          Print an image's label, spawn, and enum tables, then
                          dry-run one tick per spawn under WOLFSTATE_INSTR_LIMIT
    help                  Show this help message
    version               Show version information

FLAGS:
    -o <file>   Output image filename (default: input name with .img)
    -v          Verbose mode

ENVIRONMENT:
    WOLFSTATE_COLOR         Toggle ANSI diagnostic coloring (default true)
    WOLFSTATE_MAX_ERRORS    Cap diagnostics collected before abort (default 10)
    WOLFSTATE_INSTR_LIMIT   Instruction ceiling per bytecode run between events (default 1024)
`, versionString)
	return nil
}
