package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/archivist/internal/core"
)

type mockNotifier struct {
	name       string
	sendCalled int
	last       *core.RunSummary
	shouldFail bool
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Send(ctx context.Context, summary *core.RunSummary) error {
	m.sendCalled++
	m.last = summary
	if m.shouldFail {
		return errors.New("send failed")
	}
	return nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	mock := &mockNotifier{name: "test"}
	err := r.Register(mock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Duplicate registration should fail
	err = r.Register(mock)
	if err == nil {
		t.Error("expected error for duplicate registration")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 notifier, got %d", r.Len())
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "test"})

	n, err := r.Get("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Name() != "test" {
		t.Errorf("expected 'test', got '%s'", n.Name())
	}

	if _, err := r.Get("nonexistent"); err == nil {
		t.Error("expected error for non-existent notifier")
	}
}

func TestRegistry_GetAll(t *testing.T) {
	r := NewRegistry()

	r.Register(&mockNotifier{name: "b"})
	r.Register(&mockNotifier{name: "a"})

	all := r.GetAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 notifiers, got %d", len(all))
	}
	if all[0].Name() != "a" || all[1].Name() != "b" {
		t.Errorf("expected notifiers sorted by name, got %s, %s", all[0].Name(), all[1].Name())
	}
}

func TestRegistry_NotifyAll(t *testing.T) {
	r := NewRegistry()

	mock1 := &mockNotifier{name: "n1"}
	mock2 := &mockNotifier{name: "n2"}
	r.Register(mock1)
	r.Register(mock2)

	summary := core.NewRunSummary(core.PhaseArchive, "run")
	errs := r.NotifyAll(context.Background(), summary)

	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
	if mock1.sendCalled != 1 || mock2.sendCalled != 1 {
		t.Errorf("expected one send each, got %d and %d", mock1.sendCalled, mock2.sendCalled)
	}
	if mock1.last != summary {
		t.Error("expected summary to be passed through")
	}
}

func TestRegistry_NotifyAll_WithFailure(t *testing.T) {
	r := NewRegistry()

	r.Register(&mockNotifier{name: "n1"})
	r.Register(&mockNotifier{name: "n2", shouldFail: true})

	errs := r.NotifyAll(context.Background(), core.NewRunSummary(core.PhaseClean, "run"))

	if len(errs) != 1 {
		t.Errorf("expected 1 error, got %d", len(errs))
	}
	err, ok := errs["n2"]
	if !ok {
		t.Fatal("expected error from n2")
	}
	if !errors.Is(err, core.ErrNotifierFailed) {
		t.Errorf("expected notifier failed error, got %v", err)
	}
}

func TestHeadline(t *testing.T) {
	s := core.NewRunSummary(core.PhaseArchive, "9f1c2d3e-aaaa-bbbb-cccc-000000000000")
	s.Succeed(4_200_000)
	s.Skip()
	s.Fail("/data/x", errors.New("boom"))
	s.Finished = s.Started.Add(3 * time.Second)

	got := Headline(s)
	want := "archive run 9f1c2d3e: 1 succeeded, 1 skipped, 1 failed, 4.2 MB in 3s"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if Status(s) != "partial" {
		t.Errorf("expected partial status, got %s", Status(s))
	}
}

func TestHeadline_ShortRunID(t *testing.T) {
	s := core.NewRunSummary(core.PhaseVerify, "abc")
	s.Finish()

	if !strings.HasPrefix(Headline(s), "verify run abc: 0 succeeded") {
		t.Errorf("unexpected headline %q", Headline(s))
	}
	if Status(s) != "ok" {
		t.Errorf("expected ok status, got %s", Status(s))
	}
}
