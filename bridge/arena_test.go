package bridge

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chazu/trellis/vm"
)

func TestArenaBoundsLiveHeap(t *testing.T) {
	i := newTestInterp(t)
	baseline := i.LiveObjects()
	payload := bytes.Repeat([]byte("x"), 1<<20)

	for n := 0; n < 100; n++ {
		err := i.WithArena(func(*Arena) error {
			s := i.ConvertMutBytes(payload)
			size, err := i.Funcall(s, "bytesize")
			if err != nil {
				return err
			}
			if got, _ := i.TryConvertInt(size); got != 1<<20 {
				t.Errorf("bytesize = %d", got)
			}
			i.IncrementalGC()
			return nil
		})
		if err != nil {
			t.Fatalf("iteration %d: %v", n, err)
		}
	}
	stats := i.FullGC()
	if stats.Live > baseline {
		t.Errorf("live objects after loop = %d, baseline %d", stats.Live, baseline)
	}
	if stats.ArenaDepth != i.VM().ArenaLen() || i.OpenArenas() != 0 {
		t.Errorf("arena not unwound: depth %d, open %d", stats.ArenaDepth, i.OpenArenas())
	}
}

func TestArenaRootsSurviveCollection(t *testing.T) {
	i := newTestInterp(t)

	a := i.CreateArenaSavepoint()
	defer a.Restore()
	s := i.ConvertMutString("kept")
	arr := i.ConvertMutValues([]vm.Value{i.ConvertMutString("child")})

	i.FullGC()
	for n := 0; n < 10; n++ {
		i.IncrementalGC()
	}
	if got, err := i.TryConvertMutString(s); err != nil || got != "kept" {
		t.Errorf("rooted string = %q, %v", got, err)
	}
	strs, err := i.TryConvertMutStrings(arr)
	if err != nil || len(strs) != 1 || strs[0] != "child" {
		t.Errorf("rooted array = %v, %v", strs, err)
	}
}

func TestArenaRestoreUnroots(t *testing.T) {
	i := newTestInterp(t)

	a := i.CreateArenaSavepoint()
	s := i.ConvertMutString("temporary")
	a.Restore()
	i.FullGC()

	if i.VM().IsLive(s) {
		t.Fatal("value outlived its checkpoint")
	}
	defer func() {
		r := recover()
		if _, ok := r.(*vm.StaleValueError); !ok {
			t.Errorf("got %v, want *vm.StaleValueError", r)
		}
	}()
	i.TryConvertMutString(s)
}

func TestArenaProtectEscapes(t *testing.T) {
	i := newTestInterp(t)

	outer := i.CreateArenaSavepoint()
	defer outer.Restore()

	var kept, dropped vm.Value
	i.WithArena(func(a *Arena) error {
		kept = a.Protect(i.ConvertMutString("kept"))
		dropped = i.ConvertMutString("dropped")
		return nil
	})
	i.FullGC()
	if !i.VM().IsLive(kept) {
		t.Error("protected value was collected")
	}
	if i.VM().IsLive(dropped) {
		t.Error("unprotected value survived")
	}
}

func TestNestedArenas(t *testing.T) {
	i := newTestInterp(t)

	outer := i.CreateArenaSavepoint()
	s := i.ConvertMutString("outer")
	inner := i.CreateArenaSavepoint()
	i.ConvertMutString("inner")
	if i.OpenArenas() != 2 {
		t.Fatalf("open = %d", i.OpenArenas())
	}
	inner.Restore()
	i.FullGC()
	if !i.VM().IsLive(s) {
		t.Error("outer value collected after inner restore")
	}
	outer.Restore()
	if i.OpenArenas() != 0 {
		t.Errorf("open = %d", i.OpenArenas())
	}
}

func expectArenaMisuse(t *testing.T, op string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		err, ok := r.(*ArenaMisuseError)
		if !ok {
			t.Fatalf("got %v, want *ArenaMisuseError", r)
		}
		if err.Op != op {
			t.Errorf("op = %q, want %q", err.Op, op)
		}
	}()
	fn()
}

func TestArenaMisuse(t *testing.T) {
	i := newTestInterp(t)

	t.Run("out of order", func(t *testing.T) {
		outer := i.CreateArenaSavepoint()
		inner := i.CreateArenaSavepoint()
		expectArenaMisuse(t, "restored out of order", outer.Restore)
		inner.Restore()
		outer.Restore()
	})
	t.Run("twice", func(t *testing.T) {
		a := i.CreateArenaSavepoint()
		a.Restore()
		expectArenaMisuse(t, "restored twice", a.Restore)
	})
	t.Run("closed", func(t *testing.T) {
		j := NewInterpreter()
		a := j.CreateArenaSavepoint()
		j.Close()
		a.Restore()
		expectArenaMisuse(t, "create on closed interpreter", func() { j.CreateArenaSavepoint() })
		if err := j.WithArena(func(*Arena) error { return nil }); !errors.Is(err, ErrClosed) {
			t.Errorf("WithArena on closed = %v", err)
		}
	})
}

func TestWithArenaRestoresOnError(t *testing.T) {
	i := newTestInterp(t)
	depth := i.VM().ArenaLen()
	boom := errors.New("boom")

	err := i.WithArena(func(a *Arena) error {
		i.ConvertMutString("garbage")
		if a.Interp() != i {
			t.Error("Interp() mismatch")
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if got := i.VM().ArenaLen(); got != depth {
		t.Errorf("arena depth = %d, want %d", got, depth)
	}
}
