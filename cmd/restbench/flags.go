package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sadopc/restbench/internal/core/environment"
	"github.com/sadopc/restbench/internal/core/request"
)

// headerFlag collects repeated -H "Name: Value" flags.
type headerFlag []request.Header

// type check
var _ flag.Value = (*headerFlag)(nil)

// String implements the flag.Value interface for *headerFlag.
func (f *headerFlag) String() string {
	return strings.TrimSuffix(request.PackHeaders(*f), "\n")
}

// Set implements the flag.Value interface for *headerFlag.
func (f *headerFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, ":")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("header %q: want \"Name: Value\"", s)
	}

	*f = append(*f, request.Header{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})

	return nil
}

// paramFlag collects repeated -F key=value flags. A value starting with '@'
// names a file to upload.
type paramFlag []request.Param

// type check
var _ flag.Value = (*paramFlag)(nil)

// String implements the flag.Value interface for *paramFlag.
func (f *paramFlag) String() string {
	parts := make([]string, 0, len(*f))
	for _, p := range *f {
		parts = append(parts, p.Key+"="+p.Value)
	}

	return strings.Join(parts, "&")
}

// Set implements the flag.Value interface for *paramFlag.
func (f *paramFlag) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return fmt.Errorf("field %q: want key=value", s)
	}

	p := request.Param{Key: key, Value: value}
	if path, isFile := strings.CutPrefix(value, "@"); isFile {
		p.Value, p.File = path, true
	}
	*f = append(*f, p)

	return nil
}

// parseVariables parses key=value arguments in order.
func parseVariables(args []string) ([]environment.Variable, error) {
	vars := make([]environment.Variable, 0, len(args))
	for _, a := range args {
		key, value, ok := strings.Cut(a, "=")
		if !ok || key == "" {
			return nil, usageErrorf("variable %q: want key=value", a)
		}
		vars = append(vars, environment.Variable{Key: key, Value: value})
	}

	return vars, nil
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: restbench %s\n\n", usage)
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	return fs
}

// parseFlags parses args, turning flag errors other than -help into usage
// errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || err == flag.ErrHelp {
		return err
	}

	return usageErrorf("%s", err)
}

// subcommand splits args into the action and its arguments, defaulting the
// action to def.
func subcommand(args []string, def string) (action string, rest []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return def, args
	}

	return args[0], args[1:]
}

// needArgs returns a usage error unless exactly n arguments are given.
func needArgs(args []string, n int, what string) error {
	if len(args) != n {
		return usageErrorf("expected %s", what)
	}

	return nil
}
