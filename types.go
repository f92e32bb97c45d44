package stitch

import (
	"time"
)

// Attributes interpreted by the fragment runtime.
const (
	AttrGet       = "st-get"
	AttrPost      = "st-post"
	AttrPut       = "st-put"
	AttrDelete    = "st-delete"
	AttrTarget    = "st-target"
	AttrSwap      = "st-swap"
	AttrTrigger   = "st-trigger"
	AttrIndicator = "st-indicator"
	AttrInclude   = "st-include"
)

// Attributes interpreted by the reactive scope engine.
const (
	AttrScope = "st-scope"
	AttrText  = "st-text"
	AttrShow  = "st-show"
	AttrModel = "st-model"

	PrefixBind = "st-bind-"
	PrefixOn   = "st-on-"
)

// Headers attached to every request issued by the runtime.
const (
	HeaderRequest = "St-Request"
	HeaderTrigger = "St-Trigger"
	HeaderTarget  = "St-Target"
)

// TargetSelf aims a swap at the triggering element itself.
const TargetSelf = "self"

// SwapStrategy is the rule combining a fragment with its destination.
type SwapStrategy int

const (
	SwapReplaceInner  SwapStrategy = iota // replace destination's children
	SwapReplaceOuter                      // replace destination itself
	SwapInsertBefore                      // previous sibling of destination
	SwapInsertAfter                       // next sibling of destination
	SwapPrependInside                     // first child of destination
	SwapAppendInside                      // last child of destination
)

func (s SwapStrategy) String() string {
	switch s {
	case SwapReplaceInner:
		return "innerHTML"
	case SwapReplaceOuter:
		return "outerHTML"
	case SwapInsertBefore:
		return "beforebegin"
	case SwapInsertAfter:
		return "afterend"
	case SwapPrependInside:
		return "afterbegin"
	case SwapAppendInside:
		return "beforeend"
	default:
		return "unknown"
	}
}

// Events the runtime can deliver to an element.
const (
	EventClick    = "click"
	EventChange   = "change"
	EventSubmit   = "submit"
	EventInput    = "input"
	EventLoad     = "load"
	EventRevealed = "revealed"
)

// Trigger is the condition under which an element fires its request.
type Trigger struct {
	Event    string
	Debounce time.Duration
}
