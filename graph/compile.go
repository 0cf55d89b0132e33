package graph

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"k8s.io/klog/v2"

	"github.com/iree-org/fusilli-go/cache"
	"github.com/iree-org/fusilli-go/ferrors"
	"github.com/iree-org/fusilli-go/runtime"
)

// Compile emits the graph's MLIR, resolves it against the on-disk
// compilation cache (spec §4.4), and loads the resulting artifact into a
// session bound to handle's device (spec §4.5). A new Graph always runs the
// compiler at least once even if a matching cache directory already exists
// on disk, per spec §4.4's "safety rule" — cache reuse only ever happens
// within Compile's own Resolve call against this Graph's own prior attempt.
func (g *Graph) Compile(handle *runtime.Handle, compilerPath, cacheRoot string, autoRemoveCache bool) error {
	if g.state < stateValidated {
		return ferrors.New(ferrors.NotValidated, "graph %q: Compile called before Validate succeeded", g.name)
	}

	asm, err := g.EmitAsm()
	if err != nil {
		return err
	}

	g.compilerPath = compilerPath
	if g.cache == nil {
		g.cache = cache.New(cacheRoot)
	}

	res, err := cache.Resolve(g.cache, g.name, asm, g.buildCompileCommand(handle.Backend()), runCompileCommand, autoRemoveCache)
	if err != nil {
		return err
	}
	g.assets = res.Assets
	g.lastCompileFresh = res.Recompiled
	if res.Recompiled {
		klog.V(1).Infof("graph %q: compiled a fresh artifact", g.name)
	} else {
		klog.V(1).Infof("graph %q: reused a cached artifact", g.name)
	}

	moduleBytes, err := os.ReadFile(res.Assets.Output.Path)
	if err != nil {
		return ferrors.Wrap(ferrors.CompileFailure, err, "read compiled artifact for %q", g.name)
	}

	session, err := runtime.CreateSession(handle, moduleBytes, "main")
	if err != nil {
		return err
	}

	g.handle = handle
	g.session = session
	g.state = stateCompiled
	return nil
}

// buildCompileCommand implements spec §6's fixed invocation shape:
// `<compiler> <input.mlir> <backend-flags…> -o <output.vmfb>`, joined with
// single spaces and terminated with a trailing newline (matching the
// original's interleave-based buildCompileCommand so a byte-identical
// rebuild is possible for the cache's validity check).
func (g *Graph) buildCompileCommand(backend runtime.Backend) func(input, output cache.CacheFile) string {
	return func(input, output cache.CacheFile) string {
		flags, _ := backend.CompileFlags()
		parts := make([]string, 0, len(flags)+4)
		parts = append(parts, g.compilerPath, input.Path)
		parts = append(parts, flags...)
		parts = append(parts, "-o", output.Path)
		return strings.Join(parts, " ") + "\n"
	}
}

// runCompileCommand invokes the compiler as a child process (spec §4.4
// "invoke the compiler as a child process"). cmd is the exact
// newline-terminated string written to the command cache file; it is
// re-tokenized here rather than re-derived from structured arguments so the
// executed command always matches byte-for-byte what was cached.
func runCompileCommand(cmd string) error {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return ferrors.New(ferrors.CompileFailure, "empty compile command")
	}
	out, err := exec.Command(fields[0], fields[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Execute runs the compiled graph once (spec §4.5): pushes pack's buffers
// for every sorted graph input, invokes the loaded entrypoint, and pops
// results into pack's sorted output slots, inserting a fresh entry or
// releasing and replacing an existing one (see runtime.Session.Execute).
func (g *Graph) Execute(pack map[string]*runtime.Buffer) error {
	if g.state < stateCompiled {
		return ferrors.New(ferrors.NotValidated, "graph %q: Execute called before Compile succeeded", g.name)
	}

	inputNames := make([]string, len(g.sortedInputs))
	for i, t := range g.sortedInputs {
		inputNames[i] = t.Name
	}
	outputNames := make([]string, len(g.sortedOutputs))
	for i, t := range g.sortedOutputs {
		outputNames[i] = t.Name
	}

	return g.session.Execute(runtime.VariantPack(pack), inputNames, outputNames)
}

// Release tears down the graph's session (if compiled) and removes any
// cache files created in auto-remove mode (spec §4.4, §4.6). Idempotent.
func (g *Graph) Release() error {
	var err error
	if g.session != nil {
		err = g.session.Release()
		g.session = nil
	}
	g.assets.Remove()
	return err
}
