package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/signadot/paperplane/docfs"
)

func TestNotifier(t *testing.T) {
	n := NewNotifier(Default())
	var autosave []bool
	var all int
	n.Listen(Autosave, func(s Settings) { autosave = append(autosave, s.Autosave) }, true)
	n.ListenAll(func(Settings) { all++ })

	n.SetAutosave(true)
	n.SetAutosave(true)
	n.SetHistorySize(5)
	if err := n.Set(Autosave, "false"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]bool{false, true, false}, autosave); diff != "" {
		t.Errorf("autosave listener (-want +got):\n%s", diff)
	}
	if all != 3 {
		t.Errorf("all listener called %d times", all)
	}
	if n.Get().HistorySize != 5 {
		t.Errorf("history size %d", n.Get().HistorySize)
	}
}

func TestSetErrors(t *testing.T) {
	n := NewNotifier(Default())
	if err := n.Set("color", "red"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("got %v want ErrUnknownField", err)
	}
	if err := n.Set(HistorySize, "lots"); !errors.Is(err, ErrBadValue) {
		t.Errorf("got %v want ErrBadValue", err)
	}
}

func TestThrottle(t *testing.T) {
	s := Default()
	if _, ok := s.Throttle(); ok {
		t.Errorf("autosave on by default")
	}
	s.Autosave = true
	s.AutosaveInterval = 250
	if d, ok := s.Throttle(); !ok || d != 250*time.Millisecond {
		t.Errorf("got %v %v", d, ok)
	}
}

func TestLoadSave(t *testing.T) {
	ctx := context.Background()
	mem := docfs.NewMemory(nil)
	n, err := Load(ctx, mem)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), n.Get()); diff != "" {
		t.Errorf("defaults (-want +got):\n%s", diff)
	}
	n.SetAutosave(true)
	n.SetAutosaveInterval(500)
	if err := n.Save(ctx, mem); err != nil {
		t.Fatal(err)
	}
	files, err := mem.Files(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Errorf("settings listed as documents: %v", files)
	}
	m, err := Load(ctx, mem)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(n.Get(), m.Get()); diff != "" {
		t.Errorf("reloaded (-want +got):\n%s", diff)
	}
}
