package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-configpage/pkg/overrides"
	"github.com/goliatone/go-configpage/pkg/renderers/html"
)

func main() {
	overridesDir := flag.String("overrides", "", "directory of scenario override files to cross-check")
	types := flag.String("types", strings.Join(defaultTypes(), ","), "comma separated component types considered renderable (empty disables the check)")
	flag.Usage = func() {
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [documents...]\n", filepath.Base(os.Args[0])); err != nil {
			panic(err)
		}
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "\nLint Protocol Documents for broken hierarchies and operations.\n\n"); err != nil {
			panic(err)
		}
		flag.PrintDefaults()
	}
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	linter := newLinter(splitTypes(*types))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lint %s: %v\n", path, err)
			os.Exit(1)
		}
		linter.lintDocument(path, raw)
	}

	if *overridesDir != "" {
		store, err := overrides.LoadFS(os.DirFS(*overridesDir))
		if err != nil {
			fmt.Fprintf(os.Stderr, "lint %s: %v\n", *overridesDir, err)
			os.Exit(1)
		}
		linter.lintOverrides(*overridesDir, store)
	}

	violations := linter.sorted()
	for _, v := range violations {
		fmt.Fprintf(os.Stderr, "%s: %s -> %s\n", v.file, v.location, v.message)
	}
	if len(violations) > 0 {
		os.Exit(1)
	}
}

func defaultTypes() []string {
	return []string{html.TypeContainer, html.TypeText, html.TypeList, html.TypeActions}
}

func splitTypes(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
