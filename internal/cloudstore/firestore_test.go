package cloudstore

import (
	"context"
	"os"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

// Runs against the Firestore emulator when FIRESTORE_EMULATOR_HOST is set.
func newEmulatorStore(t *testing.T) *FirestoreTreeStore {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	s, err := NewFirestoreTreeStore(context.Background(), "embody-test")
	if err != nil {
		t.Fatalf("NewFirestoreTreeStore failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFirestoreTreeStore_RoundTrip(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()
	collection := "test-" + uuid.NewString()
	uid := "u1"
	base := collection + "/" + uid

	if err := s.Write(ctx, base, map[string]any{"name": "Ada", "pointsGoal": 10}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Update(ctx, base, map[string]any{"todos/t1/points": 5, "todos/t1/checked": true}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := s.Read(ctx, base+"/todos/t1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	want := map[string]any{"points": float64(5), "checked": true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Read = %#v, want %#v", got, want)
	}

	ids, err := s.Keys(ctx, collection)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{uid}) {
		t.Errorf("Keys = %v, want [%s]", ids, uid)
	}

	if err := s.Write(ctx, base, nil); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	gone, err := s.Read(ctx, base)
	if err != nil {
		t.Fatalf("Read after delete failed: %v", err)
	}
	if gone != nil {
		t.Errorf("expected deleted document, got %#v", gone)
	}
}
