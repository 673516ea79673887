package main

import (
	"context"
	"flag"
	"io"
	"os"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/dustin/go-humanize"
	"github.com/sadopc/restbench/internal/core/collection"
)

const collectionUsage = "collection <list|create|rename|delete|requests|show-request|edit-request|delete-request|export|import|purge> [args]"

func collectionCmd(ctx context.Context, rt *runtime, args []string) error {
	action, rest := subcommand(args, "list")

	fs := newFlagSet("collection", collectionUsage)
	format := fs.String("format", "json", "Output format: json or yaml, or curl for show-request")
	output := fs.String("o", "", "Export to this file instead of stdout")
	name := fs.String("name", "", "New request name for edit-request")
	description := fs.String("description", "", "New request description for edit-request")
	if err := parseFlags(fs, rest); err != nil {
		return err
	}
	rest = fs.Args()

	cm := rt.collections
	switch action {
	case "list":
		cols, err := cm.List(ctx)
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			rt.printf("No collections.\n")
		}
		for _, c := range cols {
			rt.printf("%s  %s  (%s)\n", c.ID, c.Name, humanize.Time(time.UnixMilli(c.Timestamp)))
		}
	case "create":
		if err := needArgs(rest, 1, "a collection name"); err != nil {
			return err
		}
		c, err := cm.Create(ctx, rest[0])
		if err != nil {
			return err
		}
		rt.printf("%s\n", c.ID)
	case "rename":
		if err := needArgs(rest, 2, "a collection id and a new name"); err != nil {
			return err
		}
		_, err := cm.Update(ctx, rest[0], collection.Patch{Name: &rest[1]})

		return err
	case "delete":
		if err := needArgs(rest, 1, "a collection id"); err != nil {
			return err
		}

		return cm.Delete(ctx, rest[0])
	case "requests":
		if err := needArgs(rest, 1, "a collection id"); err != nil {
			return err
		}
		reqs, err := cm.Requests(ctx, rest[0])
		if err != nil {
			return err
		}
		for _, r := range reqs {
			rt.printf("%s  %-7s %s  %s\n", r.ID, r.Method, r.Name, r.URL)
		}
	case "show-request":
		if err := needArgs(rest, 1, "a request id"); err != nil {
			return err
		}
		r, err := cm.GetRequest(ctx, rest[0])
		if err != nil {
			return err
		}
		if *format == "curl" {
			tmpl, tmplErr := r.Template()
			if tmplErr != nil {
				return tmplErr
			}
			rt.printf("%s\n", tmpl.Curl())

			return nil
		}
		doc := &collection.Document{Requests: []collection.Request{r}}

		return writeDocument(rt.out, doc, *format)
	case "edit-request":
		if err := needArgs(rest, 1, "a request id"); err != nil {
			return err
		}

		var p collection.RequestPatch
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "name":
				p.Name = name
			case "description":
				p.Description = description
			}
		})
		if p == (collection.RequestPatch{}) {
			return usageErrorf("edit-request needs -name or -description")
		}

		_, err := rt.engine.UpdateRequest(ctx, rest[0], p)

		return err
	case "delete-request":
		if err := needArgs(rest, 1, "a request id"); err != nil {
			return err
		}

		return cm.DeleteRequest(ctx, rest[0])
	case "export":
		if err := needArgs(rest, 1, "a collection id"); err != nil {
			return err
		}
		doc, err := cm.Export(ctx, rest[0])
		if err != nil {
			return err
		}

		return exportDocument(rt, doc, *format, *output)
	case "import":
		if err := needArgs(rest, 1, "a file path or URL"); err != nil {
			return err
		}
		c, err := importCollection(ctx, cm, rest[0])
		if err != nil {
			return err
		}
		rt.printf("imported %s as %s\n", c.Name, c.ID)
	case "purge":
		n, err := cm.PurgeOrphans(ctx)
		rt.printf("removed %d orphaned requests\n", n)

		return err
	default:
		return usageErrorf("unknown collection action %q", action)
	}

	return nil
}

func writeDocument(w io.Writer, doc *collection.Document, format string) error {
	switch format {
	case "json":
		return doc.WriteJSON(w)
	case "yaml", "yml":
		return doc.WriteYAML(w)
	default:
		return usageErrorf("unknown format %q", format)
	}
}

func exportDocument(rt *runtime, doc *collection.Document, format, path string) (err error) {
	if path == "" {
		return writeDocument(rt.out, doc, format)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	return writeDocument(f, doc, format)
}

func importCollection(ctx context.Context, cm *collection.Manager, src string) (c collection.Collection, err error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return cm.ImportURL(ctx, src)
	}

	f, err := os.Open(src)
	if err != nil {
		return collection.Collection{}, err
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	return cm.ImportJSON(ctx, f)
}
