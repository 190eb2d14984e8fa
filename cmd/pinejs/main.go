// Command pinejs transpiles Pine Script indicators to JavaScript.
//
//	pinejs [flags] file.pine|dir ...
//	pinejs [flags] -          read stdin, write the script to stdout
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"pinejs/pkg/compiler"
	"pinejs/pkg/config"
	"pinejs/pkg/mappings"
	"pinejs/pkg/utils"
)

// job holds everything a batch run needs; it is read-only once the run starts.
type job struct {
	cfg          config.Config
	opts         []compiler.Option
	outDir       string
	validateOnly bool
	writeMeta    bool
	concurrency  int
}

// fileResult is what one source produced. Err is set when the source itself
// failed to transpile; I/O failures abort the whole run instead.
type fileResult struct {
	Path     string
	Output   string
	Warnings []compiler.Warning
	Err      string

	metadata *compiler.Metadata
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("pinejs: ")

	configPath := flag.String("config", "", "path to a settings file (default: ./"+config.FileName+" when present)")
	outDir := flag.String("out", "", "directory for generated files (default: next to each source)")
	jobs := flag.Int("j", runtime.NumCPU(), "number of files transpiled concurrently")
	validateOnly := flag.Bool("validate", false, "check syntax only and write nothing")
	writeMeta := flag.Bool("metadata", false, "also write the indicator metadata as JSON next to each output")
	loopLimit := flag.Int("loop-limit", 0, "override limits.loop_limit")
	funcName := flag.String("function", "", "override output.function_name")
	noPrune := flag.Bool("no-prune", false, "keep functions that are never called")
	noBuiltins := flag.Bool("no-builtins", false, "pass builtin calls through unmapped")
	flag.Parse()

	var (
		cfg config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.Find(".")
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *loopLimit > 0 {
		cfg.Limits.LoopLimit = *loopLimit
	}
	if *funcName != "" {
		cfg.Output.FunctionName = *funcName
	}
	if *noPrune {
		cfg.Output.PruneUnused = false
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	opts := cfg.Options()
	if !*noBuiltins {
		opts = append(opts, compiler.WithRegistry(mappings.Default()))
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "nothing to do: provide .pine files, directories, or - for stdin")
		flag.Usage()
		os.Exit(2)
	}

	color := term.IsTerminal(int(os.Stderr.Fd()))

	if flag.NArg() == 1 && flag.Arg(0) == "-" {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("reading stdin: %v", err)
		}
		res := transpileOne("<stdin>", string(src), *validateOnly, opts)
		report(os.Stderr, []fileResult{res}, color)
		if res.Err != "" {
			os.Exit(1)
		}
		fmt.Print(res.Output)
		return
	}

	sources, err := utils.ExpandSources(flag.Args())
	if err != nil {
		log.Fatalf("%v", err)
	}
	if len(sources) == 0 {
		log.Fatalf("no %s files found", utils.SourceExt)
	}

	j := job{
		cfg:          cfg,
		opts:         opts,
		outDir:       *outDir,
		validateOnly: *validateOnly,
		writeMeta:    *writeMeta,
		concurrency:  *jobs,
	}
	results, err := j.run(context.Background(), sources)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if failed := report(os.Stderr, results, color); failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files failed\n", failed, len(results))
		os.Exit(1)
	}
	if !*validateOnly {
		fmt.Printf("transpiled %d files\n", len(results))
	}
}

// run transpiles sources concurrently. Results keep the order of sources.
func (j job) run(ctx context.Context, sources []string) ([]fileResult, error) {
	if j.outDir != "" {
		if err := os.MkdirAll(j.outDir, 0o755); err != nil {
			return nil, err
		}
	}

	results := make([]fileResult, len(sources))
	var written atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	if j.concurrency > 0 {
		g.SetLimit(j.concurrency)
	}
	for i, path := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read input file %q: %w", path, err)
			}
			res := transpileOne(path, string(src), j.validateOnly, j.opts)
			results[i] = res
			if res.Err != "" || j.validateOnly {
				return nil
			}
			if err := j.write(path, res); err != nil {
				return err
			}
			written.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w (%d files written before the failure)", err, written.Load())
	}
	return results, nil
}

func transpileOne(path, src string, validateOnly bool, opts []compiler.Option) fileResult {
	out := fileResult{Path: path}
	if validateOnly {
		v := compiler.Validate(src, opts...)
		if !v.Valid {
			out.Err = v.Reason
		}
		return out
	}
	res := compiler.Transpile(src, opts...)
	out.Warnings = res.Warnings
	if !res.Success {
		out.Err = res.Error
		return out
	}
	out.Output = res.Output
	out.metadata = res.Metadata
	return out
}

func (j job) write(path string, res fileResult) error {
	target := utils.Relocate(j.cfg.OutputPath(path), j.outDir)
	if err := os.WriteFile(target, []byte(res.Output), 0o644); err != nil {
		return fmt.Errorf("failed to write output file %q: %w", target, err)
	}
	if !j.writeMeta || res.metadata == nil {
		return nil
	}
	data, err := json.MarshalIndent(res.metadata, "", "  ")
	if err != nil {
		return err
	}
	metaPath := target + ".json"
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata file %q: %w", metaPath, err)
	}
	return nil
}

const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiReset  = "\x1b[0m"
)

// report prints warnings and errors per file and returns the failure count.
func report(w io.Writer, results []fileResult, color bool) int {
	paint := func(code, s string) string {
		if !color {
			return s
		}
		return code + s + ansiReset
	}
	failed := 0
	for _, r := range results {
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "%s: %s\n", r.Path, paint(ansiYellow, warn.String()))
		}
		if r.Err != "" {
			failed++
			fmt.Fprintf(w, "%s: %s\n", r.Path, paint(ansiRed, r.Err))
		}
	}
	return failed
}
