package main

import (
	"context"
	"os"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/sadopc/restbench/internal/core/environment"
)

const envUsage = "env <list|create|set|rename|delete|select|deselect|show|export|import> [args]"

func envCmd(ctx context.Context, rt *runtime, args []string) error {
	action, rest := subcommand(args, "list")

	fs := newFlagSet("env", envUsage)
	output := fs.String("o", "", "Export to this file instead of stdout")
	if err := parseFlags(fs, rest); err != nil {
		return err
	}
	rest = fs.Args()

	reg := rt.environments
	switch action {
	case "list":
		return listEnvironments(ctx, rt)
	case "create":
		if len(rest) < 1 {
			return usageErrorf("expected a name and key=value pairs")
		}
		vars, err := parseVariables(rest[1:])
		if err != nil {
			return err
		}
		env, err := reg.Create(ctx, rest[0], vars)
		if err != nil {
			return err
		}
		rt.printf("%s\n", env.ID)
	case "set":
		if len(rest) < 1 {
			return usageErrorf("expected an environment id and key=value pairs")
		}
		vars, err := parseVariables(rest[1:])
		if err != nil {
			return err
		}
		_, err = reg.Update(ctx, rest[0], environment.Patch{Values: vars})

		return err
	case "rename":
		if err := needArgs(rest, 2, "an environment id and a new name"); err != nil {
			return err
		}
		_, err := reg.Update(ctx, rest[0], environment.Patch{Name: &rest[1]})

		return err
	case "delete":
		if err := needArgs(rest, 1, "an environment id"); err != nil {
			return err
		}

		return reg.Delete(ctx, rest[0])
	case "select":
		if err := needArgs(rest, 1, "an environment id"); err != nil {
			return err
		}
		env, err := reg.Select(ctx, rest[0])
		if err != nil {
			return err
		}
		rt.printf("selected %s\n", env.Name)
	case "deselect":
		return reg.Deselect()
	case "show":
		return showEnvironment(ctx, rt, rest)
	case "export":
		if err := needArgs(rest, 1, "an environment id"); err != nil {
			return err
		}
		env, err := reg.Export(ctx, rest[0])
		if err != nil {
			return err
		}

		return exportEnvironment(rt, env, *output)
	case "import":
		if err := needArgs(rest, 1, "a file path"); err != nil {
			return err
		}
		env, err := importEnvironment(ctx, reg, rest[0])
		if err != nil {
			return err
		}
		rt.printf("imported %s as %s\n", env.Name, env.ID)
	default:
		return usageErrorf("unknown env action %q", action)
	}

	return nil
}

func listEnvironments(ctx context.Context, rt *runtime) error {
	envs, err := rt.environments.List(ctx)
	if err != nil {
		return err
	}

	sel, err := rt.environments.Selected(ctx)
	if err != nil {
		return err
	}

	if len(envs) == 0 {
		rt.printf("No environments.\n")
	}
	for _, e := range envs {
		mark := " "
		if sel != nil && sel.ID == e.ID {
			mark = "*"
		}
		rt.printf("%s %s  %s (%d variables)\n", mark, e.ID, e.Name, len(e.Values))
	}

	return nil
}

// showEnvironment prints the environment named by args, or the selected one.
func showEnvironment(ctx context.Context, rt *runtime, args []string) error {
	var env *environment.Environment
	if len(args) > 0 {
		e, err := rt.environments.Get(ctx, args[0])
		if err != nil {
			return err
		}
		env = &e
	} else {
		var err error
		if env, err = rt.environments.Selected(ctx); err != nil {
			return err
		}
	}

	if env == nil {
		rt.printf("No environment selected.\n")

		return nil
	}

	rt.printf("%s (%s)\n", env.Name, env.ID)
	printVariables(rt, env.Values)

	return nil
}

func exportEnvironment(rt *runtime, env environment.Environment, path string) (err error) {
	if path == "" {
		return env.WriteJSON(rt.out)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	return env.WriteJSON(f)
}

func importEnvironment(
	ctx context.Context,
	reg *environment.Registry,
	path string,
) (env environment.Environment, err error) {
	f, err := os.Open(path)
	if err != nil {
		return environment.Environment{}, err
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	return reg.ImportJSON(ctx, f)
}

func printVariables(rt *runtime, vars []environment.Variable) {
	for _, v := range vars {
		rt.printf("  %s = %s\n", v.Key, v.Value)
	}
}

const globalsUsage = "globals [show|set key=value...|clear]"

func globalsCmd(_ context.Context, rt *runtime, args []string) error {
	action, rest := subcommand(args, "show")

	switch action {
	case "show":
		globals, err := rt.environments.Globals()
		if err != nil {
			return err
		}
		if len(globals) == 0 {
			rt.printf("No globals.\n")
		}
		printVariables(rt, globals)
	case "set":
		vars, err := parseVariables(rest)
		if err != nil {
			return err
		}

		return rt.environments.SetGlobals(vars)
	case "clear":
		return rt.environments.SetGlobals(nil)
	default:
		return usageErrorf("unknown globals action %q; usage: restbench %s", action, globalsUsage)
	}

	return nil
}
