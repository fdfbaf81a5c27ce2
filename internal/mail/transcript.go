package mail

import (
	"fmt"
	"strings"
	"time"

	"github.com/hopeforeverybody/chat-service/internal/models"
)

const TranscriptSubject = "Chat Transcript from Hope For Everybody Platform"

// TranscriptEntry is one message in chronological order.
type TranscriptEntry struct {
	SentAt      time.Time
	Sender      string
	Text        string
	Attachments []models.Attachment
}

// Transcript renders the plain-text chat summary mailed to both participants
// when a chat ends. A non-empty supportEmail adds a contact footer.
func Transcript(chatID uint, entries []TranscriptEntry, supportEmail string) string {
	divider := strings.Repeat("=", 28)
	lines := []string{
		divider,
		"  Chat Transcript Summary",
		fmt.Sprintf("  Chat ID: %d", chatID),
		divider,
		"",
	}

	for _, e := range entries {
		sender := strings.TrimSpace(e.Sender)
		if sender == "" {
			sender = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", e.SentAt.Format("2006-01-02 15:04:05"), sender, e.Text))

		if len(e.Attachments) > 0 {
			att := make([]string, 0, len(e.Attachments))
			for _, a := range e.Attachments {
				name := a.Name
				if name == "" {
					name = "unknown"
				}
				att = append(att, fmt.Sprintf(" - %s (%s)", name, a.URL))
			}
			lines = append(lines, "Attachments:\n"+strings.Join(att, "\n"))
		}
		lines = append(lines, "")
	}

	if supportEmail != "" {
		lines = append(lines, divider, "  Need help? Contact "+supportEmail, divider)
	}
	return strings.Join(lines, "\n")
}
