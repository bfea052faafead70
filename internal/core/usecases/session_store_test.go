package usecases_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Aoli/gravel-biking/internal/core/domain"
	"github.com/Aoli/gravel-biking/internal/core/usecases"
)

func TestSessionStore_CreateAndDo(t *testing.T) {
	store := usecases.NewSessionStore(time.Hour)
	st := store.Create()
	if st.ID == "" {
		t.Fatal("expected a session ID")
	}

	err := store.Do(st.ID, func(s *usecases.EditorSession) error {
		s.AddPoint(pt(59, 18))
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var n int
	_ = store.Do(st.ID, func(s *usecases.EditorSession) error {
		n = len(s.CurrentPoints())
		return nil
	})
	if n != 1 {
		t.Errorf("expected 1 point, got %d", n)
	}
}

func TestSessionStore_UnknownSession(t *testing.T) {
	store := usecases.NewSessionStore(time.Hour)
	err := store.Do("missing", func(*usecases.EditorSession) error { return nil })
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if err := store.Delete("missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound on delete, got %v", err)
	}
}

func TestSessionStore_DoPropagatesError(t *testing.T) {
	store := usecases.NewSessionStore(0)
	st := store.Create()
	err := store.Do(st.ID, func(s *usecases.EditorSession) error {
		return s.DeletePoint(0)
	})
	if !errors.Is(err, domain.ErrInvalidIndex) {
		t.Errorf("expected ErrInvalidIndex, got %v", err)
	}
}

func TestSessionStore_ConcurrentEditsAreSerialized(t *testing.T) {
	store := usecases.NewSessionStore(time.Hour)
	st := store.Create()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Do(st.ID, func(s *usecases.EditorSession) error {
				s.AddPoint(pt(59+float64(i)*0.001, 18))
				return nil
			})
		}(i)
	}
	wg.Wait()

	_ = store.Do(st.ID, func(s *usecases.EditorSession) error {
		if n := len(s.CurrentPoints()); n != 40 {
			t.Errorf("expected 40 points, got %d", n)
		}
		return nil
	})
}

func TestSessionStore_Sweep(t *testing.T) {
	store := usecases.NewSessionStore(time.Minute)
	store.Create()
	store.Create()

	if n := store.Sweep(time.Now()); n != 0 {
		t.Errorf("expected no fresh session swept, got %d", n)
	}
	if n := store.Sweep(time.Now().Add(2 * time.Minute)); n != 2 {
		t.Errorf("expected 2 idle sessions swept, got %d", n)
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d", store.Len())
	}
}

func TestSessionStore_SweepDoesNotWaitOnBusySession(t *testing.T) {
	store := usecases.NewSessionStore(time.Minute)
	busy := store.Create()
	idle := store.Create()

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = store.Do(busy.ID, func(*usecases.EditorSession) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	swept := make(chan int, 1)
	go func() { swept <- store.Sweep(time.Now().Add(2 * time.Minute)) }()

	select {
	case n := <-swept:
		if n != 1 {
			t.Errorf("expected only the idle session swept, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweep blocked on a busy session")
	}
	close(release)
	<-done

	if err := store.Do(idle.ID, func(*usecases.EditorSession) error { return nil }); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected idle session gone, got %v", err)
	}
	if err := store.Do(busy.ID, func(*usecases.EditorSession) error { return nil }); err != nil {
		t.Errorf("expected busy session kept, got %v", err)
	}
}

func TestSessionStore_SweepDisabled(t *testing.T) {
	store := usecases.NewSessionStore(0)
	store.Create()
	if n := store.Sweep(time.Now().Add(24 * time.Hour)); n != 0 {
		t.Errorf("expected sweep to be disabled, got %d", n)
	}
}
