package main

import (
	"context"
	"maps"
	"slices"
	"strconv"

	"github.com/sadopc/restbench/internal/settings"
)

func settingsCmd(_ context.Context, rt *runtime, args []string) error {
	action, rest := subcommand(args, "list")

	switch action {
	case "list":
		for _, k := range slices.Sorted(maps.Keys(settings.Defaults())) {
			rt.printf("%s = %s\n", k, rt.settings.String(k, ""))
		}
	case "get":
		if err := needArgs(rest, 1, "a key"); err != nil {
			return err
		}
		v, ok := rt.settings.Get(rest[0])
		if !ok {
			return usageErrorf("setting %q is not set", rest[0])
		}
		rt.printf("%s\n", v)
	case "set":
		if err := needArgs(rest, 2, "a key and a value"); err != nil {
			return err
		}
		if _, known := settings.Defaults()[rest[0]]; !known {
			return usageErrorf("unknown setting %q", rest[0])
		}
		if err := validateSetting(rest[0], rest[1]); err != nil {
			return err
		}

		return rt.settings.Set(rest[0], rest[1])
	default:
		return usageErrorf("unknown settings action %q", action)
	}

	return nil
}

func validateSetting(key, value string) error {
	switch key {
	case settings.KeyHistoryCount:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return usageErrorf("%s must be a positive integer", key)
		}
	case settings.KeyAutoSaveRequest, settings.KeyRetainLinkHeaders, settings.KeyUseProxy:
		if _, err := strconv.ParseBool(value); err != nil {
			return usageErrorf("%s must be true or false", key)
		}
	}

	return nil
}
