package realtime

import (
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/ecovalle/recolecta/core/model"
	"github.com/ecovalle/recolecta/infra/logger"
)

type fakeHandle struct {
	mu     sync.Mutex
	sent   [][]byte
	fail   bool
	closed bool
}

func (f *fakeHandle) Send(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.sent = append(f.sent, p)
	return nil
}

func (f *fakeHandle) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeHandle) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestRegistryMultiDevice(t *testing.T) {
	r := NewRegistry(logger.NopLogger{})
	phone, laptop := &fakeHandle{}, &fakeHandle{}
	r.Connect("u1", model.RoleCiudadano, phone)
	r.Connect("u1", model.RoleCiudadano, laptop)

	if n := r.SendTo("u1", []byte("hola")); n != 2 {
		t.Fatalf("accepted %d, want 2", n)
	}
	if phone.count() != 1 || laptop.count() != 1 {
		t.Fatal("both devices should receive the message")
	}
}

func TestRegistryOfflineDropsMessage(t *testing.T) {
	r := NewRegistry(logger.NopLogger{})
	if n := r.SendTo("nobody", []byte("x")); n != 0 {
		t.Fatalf("accepted %d for offline identity, want 0", n)
	}
}

func TestRegistryFailedSendSelfHeals(t *testing.T) {
	r := NewRegistry(logger.NopLogger{})
	dead := &fakeHandle{fail: true}
	alive := &fakeHandle{}
	r.Connect("u1", model.RoleReciclador, dead)
	r.Connect("u1", model.RoleReciclador, alive)

	if n := r.SendTo("u1", []byte("m1")); n != 1 {
		t.Fatalf("accepted %d, want 1", n)
	}
	if !dead.closed {
		t.Fatal("failed handle should be closed")
	}
	// The dead handle is gone; the next send reaches only the survivor.
	if n := r.SendTo("u1", []byte("m2")); n != 1 {
		t.Fatalf("accepted %d after self-heal, want 1", n)
	}
	if alive.count() != 2 {
		t.Fatalf("survivor got %d messages, want 2", alive.count())
	}
}

func TestRegistryDisconnectLastHandleClearsRole(t *testing.T) {
	r := NewRegistry(logger.NopLogger{})
	h1, h2 := &fakeHandle{}, &fakeHandle{}
	r.Connect("u1", model.RoleReciclador, h1)
	r.Connect("u1", model.RoleReciclador, h2)

	r.Disconnect("u1", h1)
	if got := r.SnapshotByRole(model.RoleReciclador); len(got) != 1 {
		t.Fatalf("role tag should survive while a handle remains: %v", got)
	}
	r.Disconnect("u1", h2)
	if got := r.SnapshotByRole(model.RoleReciclador); len(got) != 0 {
		t.Fatalf("role tag should be cleared with the last handle: %v", got)
	}
}

func TestRegistryRoleLastWriterWins(t *testing.T) {
	r := NewRegistry(logger.NopLogger{})
	r.Connect("u1", model.RoleCiudadano, &fakeHandle{})
	r.Connect("u1", model.RoleReciclador, &fakeHandle{})
	if got := r.SnapshotByRole(model.RoleReciclador); len(got) != 1 || got[0] != "u1" {
		t.Fatalf("last-declared role should win: %v", got)
	}
}

func TestRegistrySnapshots(t *testing.T) {
	r := NewRegistry(logger.NopLogger{})
	r.Connect("c1", model.RoleReciclador, &fakeHandle{})
	r.Connect("c2", model.RoleReciclador, &fakeHandle{})
	r.Connect("u1", model.RoleCiudadano, &fakeHandle{})

	got := r.SnapshotByRole(model.RoleReciclador)
	sort.Strings(got)
	if len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
		t.Fatalf("role snapshot: %v", got)
	}
	if all := r.SnapshotAll(); len(all) != 3 {
		t.Fatalf("all snapshot: %v", all)
	}
}

func TestRegistryConcurrentChurn(t *testing.T) {
	r := NewRegistry(logger.NopLogger{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := &fakeHandle{}
			r.Connect("u1", model.RoleReciclador, h)
			r.SendTo("u1", []byte("x"))
			r.Disconnect("u1", h)
		}()
	}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.SnapshotByRole(model.RoleReciclador)
			r.SendTo("u1", []byte("y"))
		}()
	}
	wg.Wait()
}
