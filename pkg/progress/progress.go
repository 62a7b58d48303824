// Package progress reports run status to the terminal. The library API
// defaults to the silent reporter; the CLI swaps in the console one.
package progress

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Reporter receives run milestones. Implementations must tolerate being
// called with partial information (zero totals, empty logins).
type Reporter interface {
	RunStarted(description string)
	QuotaStatus(remaining, limit int)
	AccountStarted(login string, index, total int)
	AccountDone(login string, repos int)
	AccountFailed(login string, err error)
	Checkpoint(records int)
	RunDone(records, accounts, failures int)
}

// Nop discards all progress events.
type Nop struct{}

func (Nop) RunStarted(string)            {}
func (Nop) QuotaStatus(int, int)         {}
func (Nop) AccountStarted(string, int, int) {}
func (Nop) AccountDone(string, int)      {}
func (Nop) AccountFailed(string, error)  {}
func (Nop) Checkpoint(int)               {}
func (Nop) RunDone(int, int, int)        {}

// Console writes colored status lines to w.
type Console struct {
	w io.Writer

	header  *color.Color
	ok      *color.Color
	warn    *color.Color
	failure *color.Color
}

// NewConsole creates a console reporter writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{
		w:       w,
		header:  color.New(color.FgCyan, color.Bold),
		ok:      color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		failure: color.New(color.FgRed),
	}
}

func (c *Console) RunStarted(description string) {
	c.header.Fprintf(c.w, "==> %s\n", description)
}

func (c *Console) QuotaStatus(remaining, limit int) {
	line := fmt.Sprintf("    quota: %d/%d remaining", remaining, limit)
	if limit > 0 && remaining < limit/10 {
		c.warn.Fprintln(c.w, line)
		return
	}
	fmt.Fprintln(c.w, line)
}

func (c *Console) AccountStarted(login string, index, total int) {
	if total > 0 {
		fmt.Fprintf(c.w, "[%d/%d] %s\n", index, total, login)
		return
	}
	fmt.Fprintf(c.w, "[%d] %s\n", index, login)
}

func (c *Console) AccountDone(login string, repos int) {
	c.ok.Fprintf(c.w, "      %s: %d repositories\n", login, repos)
}

func (c *Console) AccountFailed(login string, err error) {
	c.failure.Fprintf(c.w, "      %s: skipped (%v)\n", login, err)
}

func (c *Console) Checkpoint(records int) {
	fmt.Fprintf(c.w, "    checkpoint: %d records\n", records)
}

func (c *Console) RunDone(records, accounts, failures int) {
	c.header.Fprintf(c.w, "==> done: %d records from %d accounts", records, accounts)
	if failures > 0 {
		c.warn.Fprintf(c.w, " (%d skipped)", failures)
	}
	fmt.Fprintln(c.w)
}
