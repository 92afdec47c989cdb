package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/docchat/internal/state"
	"github.com/user/docchat/internal/types"
)

var (
	labelStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	workingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	botStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("120")).Bold(true)
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

const slowUploadNotice = "This is taking longer than usual. Large documents can take a minute."

// Status renders a one-line summary of where the submission stands.
func Status(snap state.Snapshot) string {
	var b strings.Builder
	switch snap.Status {
	case state.StatusIdle:
		b.WriteString(mutedStyle.Render("idle"))
	case state.StatusUploading:
		b.WriteString(workingStyle.Render("uploading"))
	case state.StatusProcessing:
		b.WriteString(workingStyle.Render("processing"))
	case state.StatusComplete:
		b.WriteString(successStyle.Render("complete"))
	case state.StatusError:
		b.WriteString(errorStyle.Render("error"))
	}
	if snap.Progress != "" {
		b.WriteString(" ")
		b.WriteString(mutedStyle.Render(snap.Progress))
	}
	if snap.SlowUpload {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(slowUploadNotice))
	}
	return b.String()
}

// Error renders msg as an error line, or "" when msg is empty.
func Error(msg string) string {
	if msg == "" {
		return ""
	}
	return errorStyle.Render("Error: " + msg)
}

// Summary renders the document summary, the OCR counters and the suggested
// questions of a completed submission.
func Summary(snap state.Snapshot, width int) string {
	if snap.Status != state.StatusComplete {
		return ""
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render("Summary"))
	b.WriteString("\n")
	b.WriteString(Markdown(width, snap.Summary))

	total, hasTotal := snap.IntMeta("total_pages")
	ocr, hasOCR := snap.IntMeta("ocr_pages")
	if hasTotal && hasOCR && ocr > 0 {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("OCR used on %d of %d pages", ocr, total)))
	}

	if len(snap.SuggestedQuestions) > 0 {
		b.WriteString("\n\n")
		b.WriteString(labelStyle.Render("Suggested questions"))
		for i, q := range snap.SuggestedQuestions {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, q)
		}
	}
	return b.String()
}

// Message renders one conversation entry. Assistant answers are treated as
// markdown.
func Message(m types.Message, width int) string {
	if m.Role == types.RoleUser {
		return userStyle.Render("you") + "  " + m.Content
	}
	return botStyle.Render("docchat") + "\n" + Markdown(width, m.Content)
}

// Riddle renders the riddle box shown while the user waits.
func Riddle(r RiddleEntry) string {
	return boxStyle.Render(labelStyle.Render("Quick riddle break") + "\n" + r.Question + "\n" + mutedStyle.Render("Answer: "+r.Answer))
}
