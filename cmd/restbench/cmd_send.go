package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/dustin/go-humanize"
	"github.com/sadopc/restbench/internal/app"
	"github.com/sadopc/restbench/internal/core/collection"
	"github.com/sadopc/restbench/internal/core/request"
	"github.com/sadopc/restbench/internal/protocol"
	"github.com/tidwall/pretty"
)

func sendCmd(ctx context.Context, rt *runtime, args []string) error {
	fs := newFlagSet("send", "send [flags] [url]")
	methodFlag := fs.String("X", "", "Request method (default GET)")
	var headers headerFlag
	fs.Var(&headers, "H", "Header as \"Name: Value\", repeatable")
	var fields paramFlag
	fs.Var(&fields, "F", "Body field as key=value or key=@file, repeatable")
	dataFlag := fs.String("d", "", "Request body data")
	modeFlag := fs.String("mode", "", "Body data mode: params, urlencoded, raw")
	historyFlag := fs.String("history", "", "Start from the history entry with this id")
	requestFlag := fs.String("request", "", "Start from the saved request with this id")
	draftFlag := fs.Bool("draft", false, "Start from the last edited request")
	linkFlag := fs.String("link", "", "Follow a link from the base request, keeping headers if retainLinkHeaders is set")
	saveFlag := fs.String("save", "", "Also save the request to the collection with this id")
	newColFlag := fs.String("new-collection", "", "Also save the request to a new collection with this name")
	resaveFlag := fs.Bool("resave", false, "Write the edited request back to the saved request given by -request")
	nameFlag := fs.String("name", "", "Name of the saved request (default: the URL)")
	verboseFlag := fs.Bool("v", false, "Show response headers")
	colorFlag := fs.Bool("color", false, "Colorize JSON response bodies")

	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return usageErrorf("expected at most one url")
	}
	if *resaveFlag && *requestFlag == "" {
		return usageErrorf("-resave needs -request")
	}

	tmpl, err := baseTemplate(ctx, rt, *historyFlag, *requestFlag, *draftFlag)
	if err != nil {
		return err
	}

	if *linkFlag != "" {
		tmpl = rt.engine.OpenLink(*linkFlag, tmpl)
	}
	if fs.NArg() == 1 {
		tmpl.URL = fs.Arg(0)
	}
	if *methodFlag != "" {
		if tmpl.Method, err = request.ParseMethod(*methodFlag); err != nil {
			return errors.Join(errUsage, err)
		}
	}
	tmpl.Headers = append(tmpl.Headers, headers...)

	if tmpl.Body, err = buildBody(tmpl.Body, fields, *dataFlag, *modeFlag); err != nil {
		return err
	}

	if err = rt.engine.SaveDraft(tmpl); err != nil {
		rt.logger.WarnContext(ctx, "saving draft", slogutil.KeyError, err)
	}

	res, sendErr := rt.engine.Send(ctx, tmpl)
	if errors.Is(sendErr, app.ErrEmptyURL) {
		return errors.Join(errUsage, sendErr)
	}
	if res != nil && res.Response != nil && res.Response.Status != 0 {
		printResponse(rt, res.Response, *verboseFlag, *colorFlag)
	}

	target := collection.Target{CollectionID: *saveFlag, NewCollection: *newColFlag}
	switch {
	case *resaveFlag:
		err = resaveRequest(ctx, rt, *requestFlag, tmpl, *nameFlag)
	case target != (collection.Target{}):
		err = saveRequest(ctx, rt, target, tmpl, *nameFlag)
	default:
		return sendErr
	}

	return errors.Join(sendErr, err)
}

func saveRequest(ctx context.Context, rt *runtime, t collection.Target, tmpl request.Request, name string) error {
	saved, err := rt.engine.SaveRequest(ctx, t, tmpl, name, "")
	if err != nil {
		return err
	}
	rt.printf("saved as %s in collection %s\n", saved.ID, saved.CollectionID)
	discardDraft(ctx, rt)

	return nil
}

func resaveRequest(ctx context.Context, rt *runtime, id string, tmpl request.Request, name string) error {
	p := collection.RequestPatch{Template: &tmpl}
	if name != "" {
		p.Name = &name
	}

	saved, err := rt.engine.UpdateRequest(ctx, id, p)
	if err != nil {
		return err
	}
	rt.printf("updated %s\n", saved.ID)
	discardDraft(ctx, rt)

	return nil
}

// discardDraft drops the draft once it is saved in a collection.
func discardDraft(ctx context.Context, rt *runtime) {
	if err := rt.engine.DiscardDraft(); err != nil {
		rt.logger.WarnContext(ctx, "discarding draft", slogutil.KeyError, err)
	}
}

// baseTemplate returns the request the flags are applied to.
func baseTemplate(ctx context.Context, rt *runtime, historyID, requestID string, draft bool) (request.Request, error) {
	switch {
	case historyID != "":
		e, err := rt.history.Get(ctx, historyID)
		if err != nil {
			return request.Request{}, err
		}

		return e.Request()
	case requestID != "":
		r, err := rt.collections.GetRequest(ctx, requestID)
		if err != nil {
			return request.Request{}, err
		}

		return r.Template()
	case draft:
		return rt.engine.RestoreDraft(), nil
	default:
		return request.New(), nil
	}
}

// buildBody applies the body flags to body. -F wins over -d.
func buildBody(body request.Body, fields paramFlag, data, mode string) (request.Body, error) {
	dm, err := request.ParseDataMode(mode)
	if err != nil {
		return nil, errors.Join(errUsage, err)
	}

	switch {
	case len(fields) > 0:
		if dm == request.ModeURLEncoded {
			return request.URLEncodedBody{Params: fields}, nil
		}

		return request.FormBody{Params: fields}, nil
	case data != "":
		if mode == "" {
			dm = request.ModeRaw
		}

		return request.ParseBody(dm, data)
	default:
		return body, nil
	}
}

func printResponse(rt *runtime, resp *protocol.Response, verbose, color bool) {
	rt.printf("%s %s  %s  %s\n",
		resp.Proto,
		resp.StatusText,
		resp.Elapsed.Round(time.Millisecond),
		humanize.Bytes(uint64(len(resp.Body))),
	)

	if verbose {
		rt.printf("%s\n", resp.Headers)
	}

	body := resp.Body
	if json.Valid(body) {
		body = pretty.Pretty(body)
		if color {
			body = pretty.Color(body, nil)
		}
	}

	_, _ = rt.out.Write(body)
	if len(body) > 0 && body[len(body)-1] != '\n' {
		rt.printf("\n")
	}
}
