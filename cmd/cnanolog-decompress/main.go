// cnanolog-decompress: CLI tool for decoding CNanoLog binary logs to JSON
//
// Grounded on the teacher's cmd/iris-export/main.go (flag-based CLI,
// stdout-by-default single-file conversion).
//
// Copyright (c) 2026 CNanoLog Authors
// SPDX-License-Identifier: MPL-2.0
package main

import (
	"flag"
	"fmt"
	"os"
)

const (
	version = "1.0.0"
	usage   = `cnanolog-decompress - Decode CNanoLog binary logs to JSON

USAGE:
    cnanolog-decompress -i app.cnlog [-o app.json] [-p]

OPTIONS:
`
)

type cliConfig struct {
	Input   string
	Output  string
	Pretty  bool
	Version bool
}

func main() {
	cfg := parseFlags()

	if cfg.Version {
		fmt.Printf("cnanolog-decompress version %s\n", version)
		os.Exit(0)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() *cliConfig {
	cfg := &cliConfig{}

	flag.StringVar(&cfg.Input, "i", "", "Input CNanoLog binary file (required)")
	flag.StringVar(&cfg.Input, "input", "", "Input CNanoLog binary file (required)")
	flag.StringVar(&cfg.Output, "o", "", "Output file (use '-' or empty for stdout)")
	flag.StringVar(&cfg.Output, "output", "", "Output file (use '-' or empty for stdout)")
	flag.BoolVar(&cfg.Pretty, "p", false, "Pretty-print JSON output")
	flag.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print JSON output")
	flag.BoolVar(&cfg.Version, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}

	flag.Parse()
	return cfg
}

func run(cfg *cliConfig) error {
	if cfg.Input == "" {
		flag.Usage()
		return fmt.Errorf("input file is required")
	}

	out := os.Stdout
	if cfg.Output != "" && cfg.Output != "-" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	converter := NewConverter(cfg.Pretty)
	return converter.ConvertFile(cfg.Input, out)
}
