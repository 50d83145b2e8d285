// Package state holds per-panel cursor and viewport state for the UI.
package state

// List tracks a cursor over n rows and the first visible row.
type List struct {
	Cursor         int
	ViewportOffset int
	n              int
}

// Len returns the number of rows.
func (l *List) Len() int {
	return l.n
}

// SetLen updates the row count, keeping the cursor on a valid row.
func (l *List) SetLen(n int) {
	if n < 0 {
		n = 0
	}
	l.n = n
	if l.n == 0 {
		l.Cursor = 0
		l.ViewportOffset = 0
		return
	}
	if l.Cursor >= l.n {
		l.Cursor = l.n - 1
	}
	if l.Cursor < 0 {
		l.Cursor = 0
	}
}

// MoveCursorUp moves the cursor one row up.
func (l *List) MoveCursorUp() bool {
	return l.moveCursorBy(-1)
}

// MoveCursorDown moves the cursor one row down.
func (l *List) MoveCursorDown() bool {
	return l.moveCursorBy(1)
}

// MoveCursorHome moves the cursor to the first row.
func (l *List) MoveCursorHome() bool {
	if l.n == 0 {
		l.Cursor = 0
		return false
	}
	old := l.Cursor
	l.Cursor = 0
	return old != l.Cursor
}

// MoveCursorEnd moves the cursor to the last row.
func (l *List) MoveCursorEnd() bool {
	if l.n == 0 {
		l.Cursor = 0
		return false
	}
	old := l.Cursor
	l.Cursor = l.n - 1
	return old != l.Cursor
}

// MoveCursorPageUp moves the cursor up by the given page size.
func (l *List) MoveCursorPageUp(maxVisible int) bool {
	return l.moveCursorBy(-l.pageSize(maxVisible))
}

// MoveCursorPageDown moves the cursor down by the given page size.
func (l *List) MoveCursorPageDown(maxVisible int) bool {
	return l.moveCursorBy(l.pageSize(maxVisible))
}

func (l *List) moveCursorBy(delta int) bool {
	if l.n == 0 {
		l.Cursor = 0
		return false
	}
	old := l.Cursor
	l.Cursor += delta
	if l.Cursor < 0 {
		l.Cursor = 0
	}
	if l.Cursor >= l.n {
		l.Cursor = l.n - 1
	}
	return l.Cursor != old
}

func (l *List) pageSize(maxVisible int) int {
	if l.n == 0 {
		return 0
	}
	size := maxVisible
	if size <= 0 || size > l.n {
		size = l.n
	}
	return size
}

// EnsureCursorVisible adjusts the viewport offset so the cursor stays visible.
func (l *List) EnsureCursorVisible(maxVisible int) {
	if l.n == 0 || maxVisible <= 0 {
		l.ViewportOffset = 0
		return
	}
	maxOffset := l.n - maxVisible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if l.ViewportOffset > maxOffset {
		l.ViewportOffset = maxOffset
	}
	if l.ViewportOffset < 0 {
		l.ViewportOffset = 0
	}
	if l.Cursor < l.ViewportOffset {
		l.ViewportOffset = l.Cursor
	}
	if upper := l.ViewportOffset + maxVisible - 1; l.Cursor > upper {
		l.ViewportOffset = l.Cursor - maxVisible + 1
	}
}

// Window returns the half-open range of rows to render.
func (l *List) Window(maxVisible int) (start, end int) {
	l.EnsureCursorVisible(maxVisible)
	if maxVisible <= 0 || maxVisible > l.n {
		return 0, l.n
	}
	return l.ViewportOffset, l.ViewportOffset + maxVisible
}
