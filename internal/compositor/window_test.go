package compositor

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestZOrder_JSON(t *testing.T) {
	var v struct {
		Z ZOrder `json:"z"`
	}
	if err := json.Unmarshal([]byte(`{}`), &v); err != nil || v.Z != ZNormal {
		t.Fatalf("zero value = %v (%v), want normal", v.Z, err)
	}
	if err := json.Unmarshal([]byte(`{"z":"front"}`), &v); err != nil || v.Z != ZFront {
		t.Fatalf("front = %v (%v)", v.Z, err)
	}
	if err := json.Unmarshal([]byte(`{"z":"sideways"}`), &v); err == nil {
		t.Fatalf("expected error for unknown zorder")
	}

	v.Z = ZBack
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"z":"back"}` {
		t.Fatalf("marshal = %s", data)
	}
}

func TestWindow_EventsFIFOAndDrainedOnce(t *testing.T) {
	w := NewWindow(1, 0, 0, 1, 1)
	w.PushEvent(Event{Type: EventKey, Code: 1})
	w.PushEvent(Event{Type: EventKey, Code: 2})

	got := w.DrainEvents()
	want := []Event{{Type: EventKey, Code: 1}, {Type: EventKey, Code: 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events (-want +got):\n%s", diff)
	}
	if again := w.DrainEvents(); again != nil {
		t.Fatalf("expected second drain to be empty, got %v", again)
	}
}
