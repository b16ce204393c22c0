// Package notify sends desktop notifications summarizing push runs.
package notify

import (
	"fmt"

	"github.com/gen2brain/beeep"
)

// Notifier sends a desktop notification.
type Notifier interface {
	Send(title, message string) error
}

// Desktop notifies through the OS notification center.
type Desktop struct{}

func (Desktop) Send(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Nop drops notifications.
type Nop struct{}

func (Nop) Send(string, string) error { return nil }

// New returns a desktop notifier when enabled, otherwise a no-op one.
func New(enabled bool) Notifier {
	if enabled {
		return Desktop{}
	}
	return Nop{}
}

// PushSummary formats the result of a push run.
func PushSummary(pushed, failed int) (string, string) {
	if failed == 0 {
		return "taxiclock", fmt.Sprintf("Pushed %d %s to Clockify", pushed, plural(pushed, "entry", "entries"))
	}
	return "taxiclock", fmt.Sprintf("Pushed %d, failed %d %s", pushed, failed, plural(failed, "entry", "entries"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
