package dom

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/stitchweb/stitch"
)

// Swap combines fragment nodes with a destination element according to
// the strategy. The fragment nodes are detached from any previous
// parent first; the swap either applies fully or not at all.
func Swap(dst *html.Node, frag []*html.Node, strategy stitch.SwapStrategy) error {
	switch strategy {
	case stitch.SwapReplaceInner:
		removeChildren(dst)
		for _, f := range frag {
			detach(f)
			dst.AppendChild(f)
		}
	case stitch.SwapReplaceOuter:
		if dst.Parent == nil {
			return fmt.Errorf("outerHTML swap on detached node")
		}
		parent := dst.Parent
		for _, f := range frag {
			detach(f)
			parent.InsertBefore(f, dst)
		}
		parent.RemoveChild(dst)
	case stitch.SwapInsertBefore:
		if dst.Parent == nil {
			return fmt.Errorf("beforebegin swap on detached node")
		}
		for _, f := range frag {
			detach(f)
			dst.Parent.InsertBefore(f, dst)
		}
	case stitch.SwapInsertAfter:
		if dst.Parent == nil {
			return fmt.Errorf("afterend swap on detached node")
		}
		ref := dst.NextSibling
		for _, f := range frag {
			detach(f)
			if ref != nil {
				dst.Parent.InsertBefore(f, ref)
			} else {
				dst.Parent.AppendChild(f)
			}
		}
	case stitch.SwapPrependInside:
		ref := dst.FirstChild
		for _, f := range frag {
			detach(f)
			if ref != nil {
				dst.InsertBefore(f, ref)
			} else {
				dst.AppendChild(f)
			}
		}
	case stitch.SwapAppendInside:
		for _, f := range frag {
			detach(f)
			dst.AppendChild(f)
		}
	default:
		return fmt.Errorf("unknown swap strategy: %d", strategy)
	}
	return nil
}
