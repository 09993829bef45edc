package session

import (
	"context"
	"testing"

	"sermon-translate-service/internal/clock"
	"sermon-translate-service/internal/events"
)

func testDeps(ff *fakeFactory) Deps {
	return Deps{
		Clock:      clock.System(),
		NewAdapter: ff.new,
		Publisher:  events.New(&events.Config{Enabled: false}),
		Template: Config{
			STTProvider: "fake",
			Transcript:  fastTranscriptConfig(),
		},
	}
}

func TestManager_CreateGetRemove(t *testing.T) {
	m := NewManager(testDeps(&fakeFactory{}))

	s, err := m.Create(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if s.ID() == "" {
		t.Fatal("expected a session id")
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 session, got %d", m.Len())
	}

	got, ok := m.Get(s.ID())
	if !ok || got != s {
		t.Errorf("expected to get the created session back")
	}

	m.Remove(s.ID())
	if m.Len() != 0 {
		t.Errorf("expected 0 sessions, got %d", m.Len())
	}
	if _, ok := m.Get(s.ID()); ok {
		t.Error("expected the session to be gone")
	}
	select {
	case <-s.Done():
	default:
		t.Error("expected the removed session to be shut down")
	}
}

func TestManager_SessionIDsAreUnique(t *testing.T) {
	m := NewManager(testDeps(&fakeFactory{}))
	defer m.Shutdown()

	first, err := m.Create(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	second, err := m.Create(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if first.ID() == second.ID() {
		t.Errorf("expected distinct ids, both are %q", first.ID())
	}
}

func TestManager_CreateFailureLeavesNoEntry(t *testing.T) {
	m := NewManager(testDeps(&fakeFactory{createErr: context.DeadlineExceeded}))

	if _, err := m.Create(context.Background(), nil); err == nil {
		t.Fatal("expected create to fail")
	}
	if m.Len() != 0 {
		t.Errorf("expected no registered sessions, got %d", m.Len())
	}
}

func TestManager_RemoveUnknownIsNoOp(t *testing.T) {
	m := NewManager(testDeps(&fakeFactory{}))
	m.Remove("not-there")
	if m.Len() != 0 {
		t.Errorf("expected 0 sessions, got %d", m.Len())
	}
}

func TestManager_ListReportsSessions(t *testing.T) {
	m := NewManager(testDeps(&fakeFactory{}))
	defer m.Shutdown()

	first, err := m.Create(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if _, err := m.Create(context.Background(), nil); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if _, err := first.Subscribe(); err != nil {
		t.Fatalf("unexpected subscribe error: %v", err)
	}

	list := m.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}
	var found bool
	for _, st := range list {
		if st.ID == first.ID() {
			found = true
			if st.Listeners != 1 {
				t.Errorf("expected 1 listener, got %d", st.Listeners)
			}
		}
	}
	if !found {
		t.Errorf("expected stats for session %s", first.ID())
	}
}

func TestManager_ShutdownClosesEverything(t *testing.T) {
	m := NewManager(testDeps(&fakeFactory{}))

	sessions := make([]*Session, 0, 3)
	for i := 0; i < 3; i++ {
		s, err := m.Create(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected create error: %v", err)
		}
		sessions = append(sessions, s)
	}

	m.Shutdown()

	if m.Len() != 0 {
		t.Errorf("expected 0 sessions after shutdown, got %d", m.Len())
	}
	for _, s := range sessions {
		select {
		case <-s.Done():
		default:
			t.Errorf("expected session %s to be shut down", s.ID())
		}
	}
}
