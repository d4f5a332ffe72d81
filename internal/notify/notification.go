// Package notify models the messages shown in the "Upload Status" box:
// validation errors, folder change notices and submission summaries.
package notify

import (
	"fmt"
	"strings"
)

// Kind distinguishes the three message sources.
type Kind int

const (
	ValidationError Kind = iota
	FolderChangeNotice
	SubmissionSummary
)

func (k Kind) String() string {
	switch k {
	case ValidationError:
		return "validation_error"
	case FolderChangeNotice:
		return "folder_change_notice"
	case SubmissionSummary:
		return "submission_summary"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Notification is one message for the status box.
type Notification struct {
	Kind  Kind
	Lines []string
}

// Text joins the lines with newlines.
func (n Notification) Text() string {
	return strings.Join(n.Lines, "\n")
}

// Validation wraps a pre-submission error message.
func Validation(msg string) *Notification {
	return &Notification{Kind: ValidationError, Lines: []string{msg}}
}

// Added reports folders inserted by one batch.
func Added(names []string) *Notification {
	if len(names) == 1 {
		return &Notification{Kind: FolderChangeNotice, Lines: []string{"Added folder: " + names[0]}}
	}
	return &Notification{
		Kind:  FolderChangeNotice,
		Lines: []string{fmt.Sprintf("Added %d folders: %s", len(names), strings.Join(names, ", "))},
	}
}

// Replaced reports folders whose file list a batch replaced.
func Replaced(names []string) *Notification {
	if len(names) == 1 {
		return &Notification{
			Kind:  FolderChangeNotice,
			Lines: []string{fmt.Sprintf("Replaced folder %q with new contents", names[0])},
		}
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return &Notification{
		Kind:  FolderChangeNotice,
		Lines: []string{fmt.Sprintf("Replaced %d folders with new contents: %s", len(names), strings.Join(quoted, ", "))},
	}
}

// Summary reports a finished submission round. The failed folders line is
// present only when something failed.
func Summary(successCount, failCount int, failedNames []string) *Notification {
	lines := []string{fmt.Sprintf("Upload completed: %d successful, %d failed", successCount, failCount)}
	if failCount > 0 {
		lines = append(lines, "Failed folders: "+strings.Join(failedNames, ", "))
	}
	return &Notification{Kind: SubmissionSummary, Lines: lines}
}
