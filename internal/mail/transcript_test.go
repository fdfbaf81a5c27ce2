package mail

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hopeforeverybody/chat-service/internal/models"
)

func TestTranscriptRendersMessagesInOrder(t *testing.T) {
	sentAt := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	body := Transcript(42, []TranscriptEntry{
		{SentAt: sentAt, Sender: "Alice", Text: "hello"},
		{SentAt: sentAt.Add(time.Minute), Sender: "Bob", Text: "hi back"},
	}, "")

	assert.Contains(t, body, "Chat Transcript Summary")
	assert.Contains(t, body, "Chat ID: 42")
	assert.Contains(t, body, "[2025-03-14 09:30:00] Alice: hello")
	assert.Contains(t, body, "[2025-03-14 09:31:00] Bob: hi back")
	assert.Less(t, strings.Index(body, "Alice"), strings.Index(body, "Bob"))
}

func TestTranscriptUnknownSenderAndAttachments(t *testing.T) {
	body := Transcript(7, []TranscriptEntry{
		{
			SentAt: time.Now(),
			Sender: "  ",
			Text:   "see attached",
			Attachments: []models.Attachment{
				{Name: "report.pdf", URL: "http://x/api/a/abc_report.pdf"},
				{URL: "http://x/api/a/def"},
			},
		},
	}, "")

	assert.Contains(t, body, "Unknown: see attached")
	assert.Contains(t, body, " - report.pdf (http://x/api/a/abc_report.pdf)")
	assert.Contains(t, body, " - unknown (http://x/api/a/def)")
}

func TestTranscriptEmpty(t *testing.T) {
	body := Transcript(1, nil, "")
	assert.Contains(t, body, "Chat ID: 1")
	assert.NotContains(t, body, "Need help?")
}

func TestTranscriptSupportFooter(t *testing.T) {
	body := Transcript(2, []TranscriptEntry{
		{SentAt: time.Now(), Sender: "Alice", Text: "bye"},
	}, "support@example.com")
	assert.Contains(t, body, "Need help? Contact support@example.com")
}
