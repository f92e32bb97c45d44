package stitch

import (
	"testing"
	"time"
)

func TestParseSwap(t *testing.T) {
	cases := map[string]SwapStrategy{
		"":            SwapReplaceInner,
		"innerHTML":   SwapReplaceInner,
		"outerHTML":   SwapReplaceOuter,
		"beforebegin": SwapInsertBefore,
		"afterend":    SwapInsertAfter,
		"afterbegin":  SwapPrependInside,
		"beforeend":   SwapAppendInside,
	}
	for input, want := range cases {
		got, err := ParseSwap(input)
		if err != nil {
			t.Fatalf("ParseSwap(%q) failed: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseSwap(%q) = %v, want %v", input, got, want)
		}
	}

	if _, err := ParseSwap("sideways"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func TestParseTriggerDebounce(t *testing.T) {
	trigger, err := ParseTrigger("input debounce:500ms")
	if err != nil {
		t.Fatalf("ParseTrigger failed: %v", err)
	}
	if trigger.Event != EventInput {
		t.Fatalf("expected input event, got %s", trigger.Event)
	}
	if trigger.Debounce != 500*time.Millisecond {
		t.Fatalf("expected 500ms debounce, got %v", trigger.Debounce)
	}
}

func TestParseTriggerRejectsUnknown(t *testing.T) {
	if _, err := ParseTrigger("hover"); err == nil {
		t.Fatalf("expected error for unknown event")
	}
	if _, err := ParseTrigger("click throttle:1s"); err == nil {
		t.Fatalf("expected error for unknown modifier")
	}
}

func TestParseTarget(t *testing.T) {
	id, self, err := ParseTarget("#card-list")
	if err != nil || self || id != "card-list" {
		t.Fatalf("ParseTarget(#card-list) = %q, %v, %v", id, self, err)
	}

	_, self, err = ParseTarget("self")
	if err != nil || !self {
		t.Fatalf("ParseTarget(self) should target self")
	}

	_, self, err = ParseTarget("")
	if err != nil || !self {
		t.Fatalf("empty target should default to self")
	}

	if _, _, err := ParseTarget("div.card"); err == nil {
		t.Fatalf("expected error for non-id selector")
	}
}
