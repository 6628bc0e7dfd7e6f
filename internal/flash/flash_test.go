package flash

import (
	"context"
	"reflect"
	"testing"

	"github.com/geocoder89/givehub/internal/actorctx"
)

func TestMoveKeepsOrderAndEmptiesSource(t *testing.T) {
	n := NewNotifier(NewMemoryStore())
	ctx := actorctx.WithSessionID(context.Background(), "old")

	n.Notify(ctx, Error("first"))
	n.Notify(ctx, Info("second"))
	n.Notify(actorctx.WithSessionID(ctx, "new"), Success("already there"))

	n.Move(ctx, "old", "new")

	if got := n.Drain(ctx, "old"); len(got) != 0 {
		t.Fatalf("old still holds %v", got)
	}
	want := []Notice{Success("already there"), Error("first"), Info("second")}
	if got := n.Drain(ctx, "new"); !reflect.DeepEqual(got, want) {
		t.Fatalf("new = %v, want %v", got, want)
	}
}

func TestNotifyWithoutSessionIsDropped(t *testing.T) {
	store := NewMemoryStore()
	NewNotifier(store).Notify(context.Background(), Error("lost"))

	if len(store.items) != 0 {
		t.Fatalf("notice stored without a session: %v", store.items)
	}
}
