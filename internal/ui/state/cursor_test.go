package state

import "testing"

func newTestList(n int) *List {
	l := &List{}
	l.SetLen(n)
	return l
}

func TestMoveCursorHome(t *testing.T) {
	l := newTestList(3)
	l.Cursor = 2
	if !l.MoveCursorHome() {
		t.Fatalf("expected move when rows exist")
	}
	if l.Cursor != 0 {
		t.Fatalf("expected cursor 0, got %d", l.Cursor)
	}

	empty := newTestList(0)
	empty.Cursor = 5
	if empty.MoveCursorHome() {
		t.Fatalf("expected no movement for empty list")
	}
	if empty.Cursor != 0 {
		t.Fatalf("expected cursor reset to 0, got %d", empty.Cursor)
	}
}

func TestMoveCursorEnd(t *testing.T) {
	l := newTestList(3)
	if !l.MoveCursorEnd() {
		t.Fatalf("expected move to end")
	}
	if l.Cursor != 2 {
		t.Fatalf("expected cursor 2, got %d", l.Cursor)
	}
	if l.MoveCursorEnd() {
		t.Fatalf("expected no movement when already at end")
	}
}

func TestMoveCursorClampsAtEdges(t *testing.T) {
	l := newTestList(2)
	if l.MoveCursorUp() {
		t.Fatalf("expected no movement above first row")
	}
	if !l.MoveCursorDown() || l.Cursor != 1 {
		t.Fatalf("expected cursor 1, got %d", l.Cursor)
	}
	if l.MoveCursorDown() {
		t.Fatalf("expected no movement below last row")
	}
}

func TestPageMovement(t *testing.T) {
	l := newTestList(10)
	l.MoveCursorPageDown(4)
	if l.Cursor != 4 {
		t.Fatalf("expected cursor 4 after page down, got %d", l.Cursor)
	}
	l.MoveCursorPageDown(4)
	l.MoveCursorPageDown(4)
	if l.Cursor != 9 {
		t.Fatalf("expected cursor clamped to 9, got %d", l.Cursor)
	}
	l.MoveCursorPageUp(0)
	if l.Cursor != 0 {
		t.Fatalf("expected full-page jump to 0, got %d", l.Cursor)
	}
}

func TestSetLenClampsCursor(t *testing.T) {
	l := newTestList(5)
	l.Cursor = 4
	l.SetLen(2)
	if l.Cursor != 1 {
		t.Fatalf("expected cursor clamped to 1, got %d", l.Cursor)
	}
	l.SetLen(0)
	if l.Cursor != 0 || l.ViewportOffset != 0 {
		t.Fatalf("expected reset for empty list, got cursor %d offset %d", l.Cursor, l.ViewportOffset)
	}
}

func TestWindowFollowsCursor(t *testing.T) {
	l := newTestList(10)
	l.Cursor = 7
	start, end := l.Window(3)
	if start != 5 || end != 8 {
		t.Fatalf("expected window [5,8), got [%d,%d)", start, end)
	}
	l.Cursor = 1
	start, end = l.Window(3)
	if start != 1 || end != 4 {
		t.Fatalf("expected window [1,4), got [%d,%d)", start, end)
	}
	start, end = l.Window(0)
	if start != 0 || end != 10 {
		t.Fatalf("expected unbounded window, got [%d,%d)", start, end)
	}
}
