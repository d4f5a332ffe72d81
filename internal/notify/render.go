package notify

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/aiverify/aiv-upload/internal/constants"
)

// Heading is printed above every notification.
const Heading = "Upload Status"

// Render writes the notification as a framed text box.
func Render(w io.Writer, n *Notification) error {
	if n == nil {
		return nil
	}

	width := utf8.RuneCountInString(Heading)
	for _, line := range n.Lines {
		width = max(width, utf8.RuneCountInString(line))
	}
	rule := strings.Repeat("-", width+4)

	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "| %-*s |\n", width, Heading)
	fmt.Fprintln(&b, rule)
	for _, line := range n.Lines {
		fmt.Fprintf(&b, "| %s%s |\n", line, strings.Repeat(" ", width-utf8.RuneCountInString(line)))
	}
	fmt.Fprintln(&b, rule)

	_, err := io.WriteString(w, b.String())
	return err
}

// Height is the status box height in pixels for GUI front ends: a base height
// plus one line height per wrapped line, capped.
func Height(n *Notification) int {
	if n == nil {
		return constants.ModalBaseHeight
	}
	lines := 0
	for _, line := range n.Lines {
		wrapped := (utf8.RuneCountInString(line) + constants.ModalCharsPerLine - 1) / constants.ModalCharsPerLine
		lines += max(wrapped, constants.ModalMinLineBudget)
	}
	return min(constants.ModalBaseHeight+lines*constants.ModalLineHeight, constants.ModalMaxHeight)
}
