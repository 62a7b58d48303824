package search

import "fmt"

// TruncationErr reports a window that collapsed to a single second while
// still exceeding the result cap. Only surfaced under TruncationError;
// under TruncationAccept the condition is logged and the first ResultCap
// entities are taken.
type TruncationErr struct {
	Window Window
	Count  int
}

func (e *TruncationErr) Error() string {
	return fmt.Sprintf("window %s holds %d results, over the %d cap, and cannot be split further", e.Window, e.Count, ResultCap)
}
