package planstore

import (
	"testing"

	"github.com/lcgerke/lattice/internal/plan"
)

func TestWriteRead_RoundTrips(t *testing.T) {
	s := NewStore(t.TempDir())

	pl := plan.New("restack")
	pl.Append(plan.Checkpoint("start"))

	if err := s.Write(pl); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, ok, err := s.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !ok {
		t.Fatal("Read() ok = false, want true")
	}
	if got.OpID != pl.OpID || got.CommandName != pl.CommandName || len(got.Steps) != len(pl.Steps) {
		t.Errorf("Read() = %+v, want %+v", got, pl)
	}
}

func TestRead_NoPlanIsNotAnError(t *testing.T) {
	s := NewStore(t.TempDir())

	_, ok, err := s.Read()
	if err != nil {
		t.Fatalf("Read() error = %v, want nil", err)
	}
	if ok {
		t.Error("Read() ok = true, want false when no plan is stored")
	}
}

func TestClear_RemovesPlan(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Write(plan.New("track")); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	_, ok, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Read() ok = true after Clear(), want false")
	}
}
