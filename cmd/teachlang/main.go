//go:build !js

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"teachlang/pkg/analyzer"
	"teachlang/pkg/interp"
	"teachlang/pkg/lang"
)

func main() {
	showTokens := flag.Bool("tokens", false, "print the token stream to stderr before parsing")
	showAST := flag.Bool("ast", false, "print a textual AST dump to stderr before analysis")
	seed := flag.Uint64("seed", 1, "seed for random_number")
	flag.Parse()

	source, err := readSource(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to read source:", err)
		os.Exit(1)
	}

	os.Exit(run(source, *showTokens, *showAST, *seed))
}

// readSource resolves the positional source-file argument, if any, to its
// absolute path and reads it; with no argument it reads stdin, per
// spec.md §6.
func readSource(args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	fullPath, err := filepath.Abs(args[0])
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(fullPath)
	return string(data), err
}

func run(source string, showTokens, showAST bool, seed uint64) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, "fatal:", r)
			code = 2
		}
	}()

	tokens, lexErrs := lang.Lex(source)
	if showTokens {
		for _, t := range tokens {
			fmt.Fprintln(os.Stderr, t)
		}
	}
	if !lexErrs.Empty() {
		fmt.Fprintln(os.Stderr, lexErrs.Error())
		return 1
	}

	prog, parseErrs := lang.Parse(tokens)
	if showAST {
		fmt.Fprintf(os.Stderr, "%+v\n", prog)
	}
	if !parseErrs.Empty() {
		fmt.Fprintln(os.Stderr, parseErrs.Error())
		return 1
	}

	syms, semErrs := analyzer.Analyze(prog)
	if !semErrs.Empty() {
		fmt.Fprintln(os.Stderr, semErrs.Error())
		return 1
	}

	ev := interp.New(prog, syms, os.Stdout, os.Stdin, seed)
	if err := ev.Run(prog); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	return 0
}
