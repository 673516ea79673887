package state

import (
	"reflect"
	"testing"

	"github.com/sadopc/restbench/internal/core/request"
	"github.com/sadopc/restbench/internal/settings"
)

func TestRestoreWithoutDraft(t *testing.T) {
	d := NewDrafts(settings.NewMemory())

	_, ok, err := d.Restore()
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if ok {
		t.Fatal("Restore() reported a draft in empty settings")
	}
}

func TestSaveRestore(t *testing.T) {
	s := settings.NewMemory()
	d := NewDrafts(s)

	want := request.Request{
		Method:  request.MethodPatch,
		URL:     "{{host}}/users/1",
		Headers: []request.Header{{Name: "Content-Type", Value: "text/plain"}},
		Body:    request.RawBody{Text: "hello"},
	}
	if err := d.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok, err := NewDrafts(s).Restore()
	if err != nil || !ok {
		t.Fatalf("Restore() = _, %v, %v", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Restore() = %#v, want %#v", got, want)
	}

	if err = d.Discard(); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	if _, ok, _ = d.Restore(); ok {
		t.Fatal("draft survived Discard()")
	}
}

func TestRestoreCorruptDraft(t *testing.T) {
	s := settings.NewMemory()
	if err := s.Set(settings.KeyLastRequest, `{"method":"BREW"}`); err != nil {
		t.Fatal(err)
	}

	if _, _, err := NewDrafts(s).Restore(); err == nil {
		t.Fatal("expected an error for an unknown method")
	}
}
