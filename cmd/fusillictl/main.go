// Command fusillictl is a small CLI front-end over the graph/emit/cache/
// runtime library: it reads a JSON graph descriptor, builds the
// corresponding graph.Graph, and drives it through validate and compile
// (there is no execute subcommand), rendering reports the way gomlx_checkpoints renders checkpoint
// reports. It is not the MIOpen-flag benchmark CLI the design notes place
// out of scope; it is an in-repo smoke-test entry point over this module's
// own API.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"

	"github.com/iree-org/fusilli-go/internal/must"
	"github.com/iree-org/fusilli-go/runtime"
)

var (
	flagBackend    = flag.String("backend", "cpu", "Target backend: cpu or gfx942.")
	flagCompiler   = flag.String("compiler", defaultCompilerPath(), "Path to the compiler binary invoked on emitted MLIR.")
	flagCacheDir   = flag.String("cache_dir", defaultCacheDir(), "Compilation cache root directory.")
	flagAutoRemove = flag.Bool("auto_remove_cache", false, "Remove this run's cache entry once the graph is released.")
)

func defaultCompilerPath() string {
	if p := os.Getenv("FUSILLI_COMPILER_PATH"); p != "" {
		return p
	}
	return "iree-compile"
}

func defaultCacheDir() string {
	if d := os.Getenv("FUSILLI_CACHE_DIR"); d != "" {
		return d
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".fusilli-cache"
	}
	return filepath.Join(dir, "fusilli-go")
}

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: fusillictl [flags] <validate|compile|compile-all> <path> [...]")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		klog.Errorf("Missing subcommand and/or path. See 'fusillictl -help'.")
		os.Exit(1)
	}

	backend, err := parseBackend(*flagBackend)
	if err != nil {
		klog.Errorf("%v", err)
		os.Exit(1)
	}

	switch cmd := args[0]; cmd {
	case "validate":
		validateCmd(args[1])
	case "compile":
		compileCmd(backend, args[1])
	case "compile-all":
		compileAllCmd(backend, args[1])
	default:
		klog.Errorf("Unrecognized subcommand %q. See 'fusillictl -help'.", cmd)
		os.Exit(1)
	}
}

func parseBackend(s string) (runtime.Backend, error) {
	switch strings.ToLower(s) {
	case "cpu":
		return runtime.CPU, nil
	case "gfx942":
		return runtime.GFX942, nil
	default:
		return 0, fmt.Errorf("unrecognized backend %q (want cpu or gfx942)", s)
	}
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	headerRowStyle = lipgloss.NewStyle().Reverse(true).Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).PaddingLeft(1).PaddingRight(1)
	evenRowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).PaddingLeft(1).PaddingRight(1)
)

func newReportTable() *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row == 1 {
				return headerRowStyle
			}
			if row%2 == 0 {
				s = oddRowStyle
			} else {
				s = evenRowStyle
			}
			if col == 0 {
				return s.Align(lipgloss.Right)
			}
			return s.Align(lipgloss.Left)
		})
}

// validateCmd loads a descriptor, builds the graph, and renders a
// graph-validation error report (or a success summary) the way
// gomlx_checkpoints renders its Summary table.
func validateCmd(path string) {
	desc := must.M1(loadDescriptor(path))
	g := must.M1(buildGraph(desc))

	fmt.Println(titleStyle.Render("Validate: " + desc.Name))
	table := newReportTable()
	table.Row("Field", "Value")
	table.Row("descriptor", path)
	table.Row("tensors", humanize.Comma(int64(len(desc.Tensors))))
	table.Row("ops", humanize.Comma(int64(len(desc.Ops))))

	if err := g.Validate(); err != nil {
		table.Row("status", failStyle.Render("INVALID"))
		table.Row("error", err.Error())
		fmt.Println(table.Render())
		os.Exit(1)
	}
	table.Row("status", okStyle.Render("VALID"))
	fmt.Println(table.Render())
}

// compileCmd validates, emits, and compiles a single graph descriptor
// against a freshly created handle, reporting cache hit/miss and artifact
// size the way gomlx_checkpoints reports checkpoint variable sizes.
func compileCmd(backend runtime.Backend, path string) {
	desc := must.M1(loadDescriptor(path))
	g := must.M1(buildGraph(desc))
	must.M(g.Validate())

	handle := must.M1(runtime.CreateHandle(backend))
	defer func() { must.M(handle.Release()) }()

	start := time.Now()
	err := g.Compile(handle, *flagCompiler, *flagCacheDir, *flagAutoRemove)
	elapsed := time.Since(start)

	fmt.Println(titleStyle.Render("Compile: " + desc.Name))
	table := newReportTable()
	table.Row("Field", "Value")
	table.Row("backend", backend.String())
	table.Row("elapsed", elapsed.Round(time.Millisecond).String())
	if err != nil {
		table.Row("status", failStyle.Render("FAILED"))
		table.Row("error", err.Error())
		fmt.Println(table.Render())
		os.Exit(1)
	}
	defer func() { must.M(g.Release()) }()

	info, statErr := os.Stat(g.CompiledArtifactPath())
	if statErr == nil {
		table.Row("artifact bytes", humanize.Bytes(uint64(info.Size())))
	}
	table.Row("status", okStyle.Render("OK"))
	fmt.Println(table.Render())
}

// compileAllCmd batch-compiles every *.json descriptor in dir, rendering a
// progress bar across graphs (the direct analogue of gomlx's dataset
// download/training progress bars) and a final pass/fail summary table.
func compileAllCmd(backend runtime.Backend, dir string) {
	entries := must.M1(os.ReadDir(dir))
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		klog.Errorf("No .json graph descriptors found in %q", dir)
		os.Exit(1)
	}

	handle := must.M1(runtime.CreateHandle(backend))
	defer func() { must.M(handle.Release()) }()

	bar := progressbar.Default(int64(len(paths)), "compiling graphs")

	type result struct {
		name       string
		recompiled bool
		err        error
	}
	results := make([]result, 0, len(paths))

	for _, p := range paths {
		desc, err := loadDescriptor(p)
		if err != nil {
			results = append(results, result{name: p, err: err})
			_ = bar.Add(1)
			continue
		}
		g, err := buildGraph(desc)
		if err == nil {
			err = g.Validate()
		}
		var recompiled bool
		if err == nil {
			err = g.Compile(handle, *flagCompiler, *flagCacheDir, *flagAutoRemove)
			recompiled = err == nil && g.LastCompileWasFresh()
		}
		results = append(results, result{name: desc.Name, recompiled: recompiled, err: err})
		if err == nil {
			_ = g.Release()
		}
		_ = bar.Add(1)
	}

	fmt.Println()
	fmt.Println(titleStyle.Render("compile-all: " + dir))
	table := newReportTable()
	table.Row("Graph", "Status", "Cache")
	var failures int
	for _, r := range results {
		status := okStyle.Render("OK")
		cacheCol := "hit"
		if r.recompiled {
			cacheCol = "miss"
		}
		if r.err != nil {
			status = failStyle.Render("FAILED: " + r.err.Error())
			cacheCol = "-"
			failures++
		}
		table.Row(r.name, status, cacheCol)
	}
	fmt.Println(table.Render())
	fmt.Printf("%d/%d graphs compiled successfully\n", len(results)-failures, len(results))
	if failures > 0 {
		os.Exit(1)
	}
}
