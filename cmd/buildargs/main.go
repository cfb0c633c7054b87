// Copyright 2024 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main is a small demonstration frontend over the cmdline builder:
// it assembles a sample deferred command line exercising a map-each, a
// nested set, and several vector modifiers, then either prints its
// evaluated argv or its stable fingerprint.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.starlark.net/starlark"

	"github.com/rulebuild/cmdline/artifact"
	"github.com/rulebuild/cmdline/cmdline"
	"github.com/rulebuild/cmdline/lazyset"
	"github.com/rulebuild/cmdline/response"
	"github.com/rulebuild/cmdline/script"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr *os.File) *cobra.Command {
	var flagPerLine bool
	var rspThreshold int

	root := &cobra.Command{
		Use:   "buildargs",
		Short: "Assemble and evaluate a sample deferred command line",
		Long: headingStyle.Render("buildargs") + "\n" +
			dimStyle.Render("a demonstration of the cmdline deferred command-line builder"),
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&flagPerLine, "flag-per-line", false, "group recorded arguments as flag=value pairs")
	root.PersistentFlags().IntVar(&rspThreshold, "rspfile-threshold", 0, "write argv to a response file if it has at least this many tokens (0 disables)")

	root.AddCommand(newBuildCmd(&flagPerLine, &rspThreshold, stdout))
	root.AddCommand(newFingerprintCmd(stdout))

	return root
}

func newBuildCmd(flagPerLine *bool, rspThreshold *int, stdout *os.File) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Evaluate the sample command line and print its argv",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl := sampleCommandLine(*flagPerLine)

			args, err := cl.Arguments(context.Background())
			if err != nil {
				return err
			}

			if *rspThreshold > 0 && len(args) >= *rspThreshold {
				rsp, err := os.CreateTemp("", "buildargs-*.rsp")
				if err != nil {
					return err
				}
				defer rsp.Close()
				if err := response.WriteRspFile(rsp, args); err != nil {
					return err
				}
				fmt.Fprintf(stdout, "@%s\n", rsp.Name())
				return nil
			}

			for _, a := range args {
				fmt.Fprintln(stdout, a)
			}
			return nil
		},
	}
}

func newFingerprintCmd(stdout *os.File) *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the stable fingerprint of the sample command line",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl := sampleCommandLine(false)

			sink := cmdline.NewFingerprintSink()
			cache := lazyset.NewFingerprintCache()
			if err := cl.AddToFingerprint(context.Background(), nil, sink, cache); err != nil {
				return err
			}

			fmt.Fprintf(stdout, "%016x\n", sink.Sum64())
			return nil
		},
	}
}

// sampleCommandLine assembles a representative command line: a leading
// "-o" flag, a nested set of source files mapped through a Starlark
// map-each to "-I<dir>" include flags, and a join-with group of defines.
func sampleCommandLine(flagPerLine bool) *cmdline.CommandLine {
	b := cmdline.NewBuilder()

	b.RecordArgStart()
	b.Add("-o")
	b.Add(artifact.NewDerivedFile("out/bin/app"))

	mapEach := script.NewCallable(starlarkBuiltin("include_each", func(execPath string) (script.Result, error) {
		return script.Result{Strings: []string{"-I" + execPath}}, nil
	}))

	set := lazyset.NewBuilder[any](lazyset.Preorder).
		Direct(artifact.NewSourceFile("src/a"), artifact.NewSourceFile("src/b")).
		Build()

	b.RecordArgStart()
	b.AddVector(cmdline.NewVectorBuilderFromSet(set).
		WithMapEach(mapEach, script.Location{File: "BUILD", Line: 12, Col: 1}, script.Semantics{Name: "default"}).
		WithUniquify())

	b.RecordArgStart()
	b.AddVector(cmdline.NewVectorBuilder("DEBUG=1", "VERSION=2").
		WithArgName("-D").
		WithJoinWith(","))

	return b.Build(flagPerLine)
}

// starlarkBuiltin adapts a typed per-path Go func into a starlark.Callable
// taking a single file-like value, for use as a map-each without
// hand-writing Starlark source for the sample command line. Values arrive
// wrapped by package script's own starlark.Value adaptor, which exposes
// ExecPath() only through fmt.Stringer; that's all this demo needs.
func starlarkBuiltin(name string, fn func(execPath string) (script.Result, error)) starlark.Callable {
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: expected 1 argument, got %d", name, len(args))
		}
		path, ok := args[0].(fmt.Stringer)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected argument type %s", name, args[0].Type())
		}
		result, err := fn(path.String())
		if err != nil {
			return nil, err
		}
		if len(result.Strings) == 1 {
			return starlark.String(result.Strings[0]), nil
		}
		elems := make([]starlark.Value, len(result.Strings))
		for i, s := range result.Strings {
			elems[i] = starlark.String(s)
		}
		return starlark.NewList(elems), nil
	})
}
