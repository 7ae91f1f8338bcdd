// Package clipboard hands refined transcripts to the system clipboard.
package clipboard

import (
	"fmt"
	"strings"

	cb "github.com/atotto/clipboard"
)

func Read() (string, error) {
	return cb.ReadAll()
}

// Copy replaces the clipboard contents with text. Blank text is refused so a
// failed transcription never wipes what the user had copied.
func Copy(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("clipboard: nothing to copy")
	}
	if cb.Unsupported {
		return fmt.Errorf("clipboard: no clipboard utility available (install xclip, xsel or wl-clipboard)")
	}
	return cb.WriteAll(text)
}
