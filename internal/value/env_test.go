package value

import "testing"

func TestEnvSlotsStartNull(t *testing.T) {
	env := NewEnv(3)
	defer env.Release()

	for i := 0; i < 3; i++ {
		v, err := env.Get(i)
		if err != nil {
			t.Fatalf("Get(%d) failed: %v", i, err)
		}
		if !v.IsNull() {
			t.Errorf("slot %d = %s, want nil", i, v.Inspect())
		}
	}
}

func TestEnvSetReleasesPrevious(t *testing.T) {
	env := NewEnv(1)

	first := NewString("first")
	firstObj, _ := first.AsString()
	if err := env.Set(0, first); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	Release(first)

	if err := env.Set(0, I64(2)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !firstObj.Freed() {
		t.Errorf("overwriting a slot did not release the previous occupant")
	}

	env.Release()
}

func TestEnvGetReturnsRetainedCopy(t *testing.T) {
	env := NewEnv(1)

	s := NewString("captured")
	obj, _ := s.AsString()
	env.Set(0, s)
	Release(s)
	if obj.RefCount() != 1 {
		t.Fatalf("captured count = %d, want 1", obj.RefCount())
	}

	got, err := env.Get(0)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if obj.RefCount() != 2 {
		t.Errorf("Get did not retain: count = %d, want 2", obj.RefCount())
	}
	Release(got)

	env.Release()
	if !obj.Freed() {
		t.Errorf("env release did not release captured slot")
	}
}

func TestEnvOutOfRange(t *testing.T) {
	env := NewEnv(2)
	defer env.Release()

	if _, err := env.Get(2); err == nil || err.Kind != OutOfRangeError {
		t.Errorf("Get(2) error = %v, want OutOfRangeError", err)
	}
	if _, err := env.Get(-1); err == nil || err.Kind != OutOfRangeError {
		t.Errorf("Get(-1) error = %v, want OutOfRangeError", err)
	}
	if err := env.Set(5, I64(1)); err == nil || err.Kind != OutOfRangeError {
		t.Errorf("Set(5) error = %v, want OutOfRangeError", err)
	}
}

func TestEnvSharedLifetime(t *testing.T) {
	env := NewEnv(1)
	s := NewString("shared capture")
	obj, _ := s.AsString()
	env.Set(0, s)
	Release(s)

	// A second owner (e.g. a spawned task) keeps the environment alive
	// after the first owner lets go.
	shared := env.Retain()
	env.Release()
	if obj.Freed() {
		t.Fatalf("slot released while the environment still has an owner")
	}

	shared.Release()
	if !obj.Freed() {
		t.Errorf("slot not released when the last owner let go")
	}
}
