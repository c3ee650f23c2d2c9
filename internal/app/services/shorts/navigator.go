// Package shorts serves the swipe-through short video feed.
package shorts

// Navigator tracks the position inside a loaded shorts list.
type Navigator struct {
	Index int
	Total int
}

// Next advances one item. It reports whether the position moved.
func (n *Navigator) Next() bool {
	if n.Index < n.Total-1 {
		n.Index++
		return true
	}
	return false
}

// Prev goes back one item. It reports whether the position moved.
func (n *Navigator) Prev() bool {
	if n.Index > 0 {
		n.Index--
		return true
	}
	return false
}

// Key applies a keyboard key: ArrowUp and ArrowLeft go back, ArrowDown and
// ArrowRight go forward. Other keys are ignored.
func (n *Navigator) Key(name string) bool {
	switch name {
	case "ArrowUp", "ArrowLeft":
		return n.Prev()
	case "ArrowDown", "ArrowRight":
		return n.Next()
	}
	return false
}

// HasNext reports whether a later item is loaded.
func (n Navigator) HasNext() bool { return n.Index < n.Total-1 }

// HasPrev reports whether an earlier item is loaded.
func (n Navigator) HasPrev() bool { return n.Index > 0 }
