// Command pinec prints every stage of the pipeline for one source file,
// from the token stream to the generated script. Use pinejs for builds.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"pinejs/pkg/compiler"
	"pinejs/pkg/mappings"
)

const testSource = `//@version=5
indicator("Demo", overlay=true)
len = input.int(14, "Length")
avg = ta.sma(close, len)
plot(avg, "SMA", color.orange)
`

func main() {
	showTokens := flag.Bool("tokens", true, "print the token stream")
	flag.Parse()

	src := testSource
	if flag.NArg() > 0 {
		data, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
	}
	src = compiler.NormalizeSource(src)

	fmt.Printf("Source:\n%s\n", src)
	if v, ok := compiler.DetectVersion(src); ok {
		fmt.Printf("Version: %d\n\n", v)
	}

	// Lex
	tokens, err := compiler.Lex(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lex error:", err)
		os.Exit(1)
	}

	if *showTokens {
		fmt.Printf("Tokens (%d)\n", len(tokens))
		for _, tok := range tokens {
			fmt.Println(" ", tok)
		}
		fmt.Println()
	}

	// Parse
	prog, errs := compiler.Parse(tokens)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, "parse error:", e)
		}
		os.Exit(1)
	}

	fmt.Println("AST")
	for _, s := range prog.Stmts {
		fmt.Println(" ", s)
	}
	fmt.Println()

	// Metadata
	diag := compiler.NewDiagnostics()
	meta := compiler.Visit(prog, diag)
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "metadata error:", err)
		os.Exit(1)
	}
	fmt.Printf("Metadata\n%s\n\n", data)

	// code Generation
	opts := compiler.DefaultOptions()
	opts.Registry = mappings.Default()
	js, err := compiler.Generate(prog, meta, opts, diag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "codegen error:", err)
		os.Exit(1)
	}

	fmt.Println("Generated JavaScript")
	fmt.Print(js)
	fmt.Println()

	if w := diag.Warnings(); len(w) > 0 {
		fmt.Println("Warnings")
		for _, warn := range w {
			fmt.Println(" ", warn)
		}
	}
}
