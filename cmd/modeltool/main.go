// modeltool is a CLI utility for inspecting and rewriting model descriptors.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/Faultbox/modelgl/internal/assets"
	"github.com/Faultbox/modelgl/internal/engine/model"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		return cmdInfo(args, stdout, stderr)
	case "normalize", "expand":
		return cmdNormalize(command, args, stdout, stderr)
	case "validate", "check":
		return cmdValidate(args, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `modeltool - model descriptor utility

Usage:
  modeltool <command> [options]

Commands:
  info <file>                           Show buffers, streams, parts and bounds
  normalize [-f format] [-o out] <file> Write the normalized descriptor
  expand [-f format] [-o out] <file>    Same as normalize, for shorthand files
  validate <file>...                    Report dangling references

Files may be descriptors (.yaml, .yml, .json, .toml) or Wavefront meshes (.obj).

Examples:
  modeltool info models/cube.yaml
  modeltool normalize -f json models/cube.yaml
  modeltool expand -o cube.toml models/cube-short.yaml
  modeltool validate models/*.yaml`)
}

// open loads a descriptor from the local file system. Buffer sources are
// resolved relative to the file.
func open(file string) (*model.Descriptor, error) {
	mgr := assets.NewManager()
	defer mgr.Close()
	if err := mgr.AddDir(filepath.Dir(file)); err != nil {
		return nil, err
	}
	return model.Open(mgr, filepath.Base(file))
}

func cmdInfo(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "Usage: modeltool info <file>")
		return 1
	}

	d, err := open(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Model:     %s\n", args[0])
	fmt.Fprintf(stdout, "Version:   %s\n", d.Version)
	if d.Meta.Description != "" {
		fmt.Fprintf(stdout, "About:     %s\n", d.Meta.Description)
	}
	fmt.Fprintf(stdout, "Buffers:   %d vertex, %d index\n", len(d.Data.VertexBuffers), len(d.Data.IndexBuffers))
	fmt.Fprintf(stdout, "Streams:   %d vertex, %d primitive\n", len(d.Access.VertexStreams), len(d.Access.PrimitiveStreams))
	fmt.Fprintf(stdout, "Bindings:  %d\n", len(d.Semantic.Bindings))
	fmt.Fprintf(stdout, "Chunks:    %d\n", len(d.Semantic.Chunks))

	if b, ok := model.ComputeBounds(d); ok {
		fmt.Fprintf(stdout, "Bounds:    %v .. %v\n", b.Min, b.Max)
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Parts:")
	for _, name := range sortedKeys(d.Logic.Parts) {
		p := d.Logic.Parts[name]
		if p == nil {
			continue
		}
		fmt.Fprintf(stdout, "  %-12s %v\n", name, []string(p.Chunks))
	}

	if _, err := model.Compile(d); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(stdout, "\n%d dangling references (run validate for details)\n", len(verr.References))
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func cmdNormalize(command string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("f", "", "Output format: yaml, json or toml (default: from -o, else yaml)")
	output := fs.String("o", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(stderr, "Usage: modeltool %s [-f format] [-o out] <file>\n", command)
		return 1
	}

	outFormat := model.FormatYAML
	switch {
	case *format != "":
		f, err := model.ParseFormat(*format)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		outFormat = f
	case *output != "":
		outFormat = model.FormatFromPath(*output)
	}

	d, err := open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	inlineArrays(d)
	data, err := model.Marshal(d, outFormat)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if *output == "" {
		stdout.Write(data)
		return 0
	}
	if err := os.WriteFile(*output, data, 0644); err != nil {
		fmt.Fprintf(stderr, "Error writing file: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Wrote: %s (%d bytes)\n", *output, len(data))
	return 0
}

func cmdValidate(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "Usage: modeltool validate <file>...")
		return 1
	}

	failed := 0
	for _, file := range args {
		d, err := open(file)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", file, err)
			failed++
			continue
		}

		err = model.Validate(d)
		var verr *model.ValidationError
		switch {
		case err == nil:
			fmt.Fprintf(stdout, "%s: ok\n", file)
		case errors.As(err, &verr):
			for _, ref := range verr.References {
				fmt.Fprintf(stdout, "%s: %s\n", file, ref.Error())
			}
			failed++
		default:
			fmt.Fprintf(stderr, "%s: %v\n", file, err)
			failed++
		}
	}

	if failed > 0 {
		fmt.Fprintf(stderr, "\n(%d of %d files failed)\n", failed, len(args))
		return 1
	}
	return 0
}

// inlineArrays copies decoded payloads without a source file into
// UntypedArray so they survive marshaling.
func inlineArrays(d *model.Descriptor) {
	for _, buffers := range []map[string]*model.Buffer{d.Data.VertexBuffers, d.Data.IndexBuffers} {
		for _, b := range buffers {
			if b != nil && b.Source == "" && b.TypedArray != nil {
				b.UntypedArray = b.TypedArray.Values()
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
