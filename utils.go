package stitch

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ParseSwap maps an st-swap attribute value to its strategy.
// An empty value defaults to innerHTML.
func ParseSwap(s string) (SwapStrategy, error) {
	switch strings.TrimSpace(s) {
	case "", "innerHTML":
		return SwapReplaceInner, nil
	case "outerHTML":
		return SwapReplaceOuter, nil
	case "beforebegin":
		return SwapInsertBefore, nil
	case "afterend":
		return SwapInsertAfter, nil
	case "afterbegin":
		return SwapPrependInside, nil
	case "beforeend":
		return SwapAppendInside, nil
	default:
		return SwapReplaceInner, fmt.Errorf("unknown swap strategy: %s", s)
	}
}

// ParseTrigger parses an st-trigger attribute value, e.g.
// "click", "input debounce:500ms", "revealed".
func ParseTrigger(s string) (Trigger, error) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return Trigger{}, fmt.Errorf("empty trigger")
	}

	trigger := Trigger{Event: parts[0]}
	switch trigger.Event {
	case EventClick, EventChange, EventSubmit, EventInput, EventLoad, EventRevealed:
	default:
		return Trigger{}, fmt.Errorf("unknown trigger event: %s", trigger.Event)
	}

	for _, mod := range parts[1:] {
		if after, ok := strings.CutPrefix(mod, "debounce:"); ok {
			d, err := time.ParseDuration(after)
			if err != nil {
				return Trigger{}, fmt.Errorf("invalid debounce interval: %s", after)
			}
			trigger.Debounce = d
			continue
		}
		return Trigger{}, fmt.Errorf("unknown trigger modifier: %s", mod)
	}

	return trigger, nil
}

// DefaultTrigger is the trigger used when an element carries no
// st-trigger attribute: forms submit, form fields fire on change,
// everything else on click.
func DefaultTrigger(tag string) Trigger {
	switch tag {
	case "form":
		return Trigger{Event: EventSubmit}
	case "input", "select", "textarea":
		return Trigger{Event: EventChange}
	default:
		return Trigger{Event: EventClick}
	}
}

// ParseTarget interprets an st-target attribute value. It returns the
// destination element id, or self=true when the triggering element is
// its own destination. An empty value targets self.
func ParseTarget(s string) (id string, self bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" || s == TargetSelf {
		return "", true, nil
	}
	if strings.HasPrefix(s, "#") && len(s) > 1 {
		return s[1:], false, nil
	}
	return "", false, fmt.Errorf("invalid target: %s", s)
}

// IsFragmentRequest reports whether a request was issued by the
// fragment runtime rather than a full navigation.
func IsFragmentRequest(h http.Header) bool {
	return h.Get(HeaderRequest) == "true"
}
