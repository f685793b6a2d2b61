package manager

import (
	"errors"
	"sync"
	"testing"

	"mercator-hq/tabula/pkg/decision/engine"
)

func TestRegistry_PutAndAcquire(t *testing.T) {
	r := NewRegistry(nil)
	tbl := register(t, r, "grade", "v1")

	lease, err := r.Acquire("grade")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer lease.Release()

	if lease.Table() != tbl {
		t.Error("lease.Table() returned a different table")
	}
	if lease.Info().Version != "v1" {
		t.Errorf("lease.Info().Version = %q, want v1", lease.Info().Version)
	}
	if lease.Info().Rules != 2 {
		t.Errorf("lease.Info().Rules = %d, want 2", lease.Info().Rules)
	}
}

func TestRegistry_Acquire_NotFound(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Acquire("missing")
	if !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("Acquire() error = %v, want ErrTableNotFound", err)
	}
	var rerr *RegistryError
	if !errors.As(err, &rerr) || rerr.Operation != "acquire" {
		t.Errorf("Acquire() error = %#v, want RegistryError{Operation: acquire}", err)
	}
}

func TestRegistry_Put_Nil(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Put(nil, TableInfo{Name: "x"}); !errors.Is(err, engine.ErrNilTable) {
		t.Errorf("Put(nil) error = %v, want ErrNilTable", err)
	}
}

func TestRegistry_ReplaceKeepsLeasedVersion(t *testing.T) {
	r := NewRegistry(nil)
	old := register(t, r, "grade", "v1")

	lease, err := r.Acquire("grade")
	if err != nil {
		t.Fatal(err)
	}

	next := register(t, r, "grade", "v2")
	if old.Released() {
		t.Fatal("old table released while a lease is held")
	}
	if _, err := engine.EvaluateOne(lease.Table(), engine.Record{"x": 3}); err != nil {
		t.Errorf("EvaluateOne() on leased table error = %v", err)
	}

	lease.Release()
	if !old.Released() {
		t.Error("old table not released after its last lease ended")
	}
	if next.Released() {
		t.Error("current table released")
	}

	info, ok := r.Get("grade")
	if !ok || info.Version != "v2" {
		t.Errorf("Get() = %+v, %v, want version v2", info, ok)
	}
}

func TestRegistry_ReplaceUnleasedReleasesImmediately(t *testing.T) {
	r := NewRegistry(nil)
	old := register(t, r, "grade", "v1")
	register(t, r, "grade", "v2")

	if !old.Released() {
		t.Error("unleased old table not released on replace")
	}
}

func TestRegistry_LeaseReleaseIdempotent(t *testing.T) {
	r := NewRegistry(nil)
	tbl := register(t, r, "grade", "v1")

	l1, _ := r.Acquire("grade")
	l2, _ := r.Acquire("grade")
	if err := r.Remove("grade"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	l1.Release()
	l1.Release()
	if tbl.Released() {
		t.Fatal("table released while second lease is held")
	}
	l2.Release()
	if !tbl.Released() {
		t.Error("table not released after all leases ended")
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry(nil)
	register(t, r, "a", "v1")

	if err := r.Remove("a"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if err := r.Remove("a"); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("second Remove() error = %v, want ErrTableNotFound", err)
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry(nil)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		register(t, r, name, "v1")
	}

	names := r.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	infos := r.List()
	if len(infos) != 3 || infos[0].Name != "alpha" {
		t.Errorf("List() = %+v, want alpha first", infos)
	}
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry(nil)
	a := register(t, r, "a", "v1")
	b := register(t, r, "b", "v1")

	lease, err := r.Acquire("b")
	if err != nil {
		t.Fatal(err)
	}

	r.Close()
	if !a.Released() {
		t.Error("unleased table not released on Close")
	}
	if b.Released() {
		t.Error("leased table released on Close")
	}
	lease.Release()
	if !b.Released() {
		t.Error("leased table not released after Close and lease end")
	}

	if _, err := r.Acquire("a"); !errors.Is(err, ErrRegistryClosed) {
		t.Errorf("Acquire() after Close error = %v, want ErrRegistryClosed", err)
	}
	late := compileTable(t, "late")
	if err := r.Put(late, NewTableInfo(late, "v1", "")); !errors.Is(err, ErrRegistryClosed) {
		t.Errorf("Put() after Close error = %v, want ErrRegistryClosed", err)
	}
	if !late.Released() {
		t.Error("table rejected by closed registry not released")
	}
}

func TestRegistry_ConcurrentAcquireAndReplace(t *testing.T) {
	r := NewRegistry(nil)
	register(t, r, "grade", "v0")

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				lease, err := r.Acquire("grade")
				if err != nil {
					errs <- err
					return
				}
				res, err := engine.EvaluateOne(lease.Table(), engine.Record{"x": i % 20})
				lease.Release()
				if err != nil {
					errs <- err
					return
				}
				if !res.Matched() {
					errs <- errors.New("no rule matched")
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		tbl := compileTable(t, "grade")
		if err := r.Put(tbl, NewTableInfo(tbl, "v", "")); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent evaluation error = %v", err)
	}
}
