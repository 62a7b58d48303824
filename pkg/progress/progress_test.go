package progress

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestConsole(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.RunStarted("fetching accounts in Peru")
	c.QuotaStatus(4800, 5000)
	c.AccountStarted("alice", 1, 3)
	c.AccountDone("alice", 12)
	c.AccountFailed("bob", errors.New("boom"))
	c.Checkpoint(100)
	c.RunDone(112, 3, 1)

	out := buf.String()
	for _, want := range []string{
		"==> fetching accounts in Peru",
		"quota: 4800/5000 remaining",
		"[1/3] alice",
		"alice: 12 repositories",
		"bob: skipped (boom)",
		"checkpoint: 100 records",
		"==> done: 112 records from 3 accounts (1 skipped)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConsole_UnknownTotal(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.AccountStarted("alice", 5, 0)

	if got := buf.String(); got != "[5] alice\n" {
		t.Errorf("output = %q", got)
	}
}

func TestNopIsReporter(t *testing.T) {
	var _ Reporter = Nop{}
	var _ Reporter = NewConsole(&bytes.Buffer{})
}
