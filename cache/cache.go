// Package cache implements the on-disk compilation cache described in
// spec §4.4: a graph-name-keyed directory holding the emitted MLIR input,
// the compiled artifact, and the exact compiler invocation used to produce
// it, plus the byte-identical cache-hit rule a fresh compile must satisfy
// to be skipped.
//
// Like emit and runtime, this package never imports graph: callers pass
// plain strings (graph name, emitted assembly text) and get back a
// Resolution describing what happened.
package cache

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/iree-org/fusilli-go/ferrors"
)

const (
	inputFileName   = "input.mlir"
	outputFileName  = "output.vmfb"
	commandFileName = "command.txt"
	statsFileName   = "stats.json"
)

// CacheFile is one file belonging to a CachedAssets triple: its resolved
// path plus whether it should be removed when the owning Graph is
// destroyed (spec §4.4's "remembers whether files should be auto-removed").
type CacheFile struct {
	Path   string
	remove bool
}

// Write overwrites the file's contents.
func (f CacheFile) Write(contents string) error {
	if err := os.WriteFile(f.Path, []byte(contents), 0o644); err != nil {
		return ferrors.Wrap(ferrors.CompileFailure, err, "write cache file %s", f.Path)
	}
	return nil
}

// Read returns the file's contents.
func (f CacheFile) Read() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", ferrors.Wrap(ferrors.CompileFailure, err, "read cache file %s", f.Path)
	}
	return string(data), nil
}

// removeIfRequested deletes the file if it was created with remove=true,
// logging (not failing) on error, matching the teacher's style of treating
// best-effort cleanup as a warning rather than a terminal condition.
func (f CacheFile) removeIfRequested() {
	if !f.remove {
		return
	}
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		klog.Warningf("cache: failed to remove %s: %v", f.Path, err)
	}
}

// CachedAssets is the triple of files one successful compile produces
// (spec §4.4), plus an optional fourth statistics file.
type CachedAssets struct {
	Input          CacheFile
	Output         CacheFile
	CompileCommand CacheFile
	Statistics     CacheFile
}

func cacheFilePath(root, graphName, fileName string) string {
	return filepath.Join(root, graphName, fileName)
}

func newAssets(root, graphName string, remove bool) CachedAssets {
	return CachedAssets{
		Input:          CacheFile{Path: cacheFilePath(root, graphName, inputFileName), remove: remove},
		Output:         CacheFile{Path: cacheFilePath(root, graphName, outputFileName), remove: remove},
		CompileCommand: CacheFile{Path: cacheFilePath(root, graphName, commandFileName), remove: remove},
		Statistics:     CacheFile{Path: cacheFilePath(root, graphName, statsFileName), remove: remove},
	}
}

// Remove deletes every file in the triple that was created with
// remove=true, for use at Graph-destruction time (spec §4.4, §4.6).
func (a CachedAssets) Remove() {
	a.Input.removeIfRequested()
	a.Output.removeIfRequested()
	a.CompileCommand.removeIfRequested()
	a.Statistics.removeIfRequested()
}

// Cache holds the single cache record a Graph instance accumulates across
// its lifetime (spec §4.4 "the cache optimizes within the lifetime of one
// Graph, not across processes" — a new Graph/Cache always recompiles even
// if a disk artifact already exists under the same name).
type Cache struct {
	root   string
	assets *CachedAssets
}

// New returns a Cache rooted at root. Resolving root from configuration is
// left to the caller.
func New(root string) *Cache {
	return &Cache{root: root}
}

// Resolution describes the outcome of a Resolve call.
type Resolution struct {
	Assets     CachedAssets
	Recompiled bool
}

// Resolve is the Go realization of getCompiledArtifact: it validates any
// existing cache record against graphName/asm/cmd, and on a miss
// (re)generates it by invoking the compiler as a child process (spec
// §4.4). compile is called only on a miss, with the command buildCommand
// produced for the staged input and output files; it must actually invoke
// the compiler and return a non-nil error on non-zero exit.
func Resolve(c *Cache, graphName, asm string, buildCommand func(input, output CacheFile) string, compile func(cmd string) error, remove bool) (Resolution, error) {
	if hit, err := validate(c, graphName, asm, buildCommand); err != nil {
		return Resolution{}, err
	} else if hit {
		return Resolution{Assets: *c.assets, Recompiled: false}, nil
	}

	assets, err := generate(c.root, graphName, asm, buildCommand, compile, remove)
	if err != nil {
		return Resolution{}, err
	}
	c.assets = &assets
	return Resolution{Assets: assets, Recompiled: true}, nil
}

// validate implements spec §4.4's three-part cache-hit rule: the graph's
// current name must still yield the cache record's stored paths, and the
// stored input/command files must read back byte-identical to what a fresh
// emit/build would produce.
func validate(c *Cache, graphName, asm string, buildCommand func(input, output CacheFile) string) (bool, error) {
	if c.assets == nil {
		klog.V(1).Infof("cache: no prior record for %q", graphName)
		return false, nil
	}
	want := newAssets(c.root, graphName, false)
	if c.assets.Input.Path != want.Input.Path || c.assets.Output.Path != want.Output.Path || c.assets.CompileCommand.Path != want.CompileCommand.Path {
		klog.V(1).Infof("cache: paths for %q no longer match stored record", graphName)
		return false, nil
	}

	storedAsm, err := c.assets.Input.Read()
	if err != nil {
		return false, err
	}
	if storedAsm != asm {
		klog.V(1).Infof("cache: emitted assembly for %q changed", graphName)
		return false, nil
	}

	cmd := buildCommand(c.assets.Input, c.assets.Output)
	storedCmd, err := c.assets.CompileCommand.Read()
	if err != nil {
		return false, err
	}
	if storedCmd != cmd {
		klog.V(1).Infof("cache: compile command for %q changed", graphName)
		return false, nil
	}

	klog.Infof("cache: hit for %q", graphName)
	return true, nil
}

// generate stages a fresh compile attempt in a UUID-suffixed scratch
// directory and atomically renames it into place on success, so a crashed
// compiler child process can never leave a half-written entry visible to a
// later validate() call (SPEC_FULL "crash-safe staging" supplement).
func generate(root, graphName, asm string, buildCommand func(input, output CacheFile) string, compile func(cmd string) error, remove bool) (CachedAssets, error) {
	klog.Infof("cache: (re)generating artifacts for %q", graphName)

	stagingDir := filepath.Join(root, graphName+".staging-"+uuid.NewString())
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return CachedAssets{}, ferrors.Wrap(ferrors.CompileFailure, err, "create staging dir for %q", graphName)
	}
	defer os.RemoveAll(stagingDir)

	staged := CachedAssets{
		Input:          CacheFile{Path: filepath.Join(stagingDir, inputFileName), remove: remove},
		Output:         CacheFile{Path: filepath.Join(stagingDir, outputFileName), remove: remove},
		CompileCommand: CacheFile{Path: filepath.Join(stagingDir, commandFileName), remove: remove},
		Statistics:     CacheFile{Path: filepath.Join(stagingDir, statsFileName), remove: remove},
	}

	if err := staged.Input.Write(asm); err != nil {
		return CachedAssets{}, err
	}

	cmd := buildCommand(staged.Input, staged.Output)
	if err := staged.CompileCommand.Write(cmd); err != nil {
		return CachedAssets{}, err
	}

	klog.V(1).Infof("cache: compile command for %q:\n%s", graphName, cmd)
	start := time.Now()
	if err := compile(cmd); err != nil {
		return CachedAssets{}, ferrors.Wrap(ferrors.CompileFailure, err, "compile %q", graphName)
	}
	elapsed := time.Since(start)

	finalDir := filepath.Join(root, graphName)
	if err := os.RemoveAll(finalDir); err != nil {
		return CachedAssets{}, ferrors.Wrap(ferrors.CompileFailure, err, "clear previous cache entry for %q", graphName)
	}
	if err := os.Rename(stagingDir, finalDir); err != nil {
		return CachedAssets{}, ferrors.Wrap(ferrors.CompileFailure, err, "promote staged cache entry for %q", graphName)
	}

	final := newAssets(root, graphName, remove)

	// The command just compiled against staged.Input/staged.Output — the
	// staging directory had to appear in the command so compile() could
	// find real files at invocation time. validate()'s cache-hit rebuild
	// always derives the command from the final, graph-name-keyed paths, so
	// the stored command.txt is rewritten against final now that the
	// promotion rename above has made those paths real.
	finalCmd := buildCommand(final.Input, final.Output)
	if err := final.CompileCommand.Write(finalCmd); err != nil {
		return CachedAssets{}, err
	}

	if size, err := os.Stat(final.Output.Path); err == nil {
		klog.V(1).Infof("cache: %q compiled to %s in %s", graphName, humanize.Bytes(uint64(size.Size())), elapsed.Round(time.Millisecond))
	}
	return final, nil
}
