package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hopeforeverybody/chat-service/internal/apperr"
	"github.com/hopeforeverybody/chat-service/internal/mail"
	"github.com/hopeforeverybody/chat-service/internal/models"
)

// upgradePrompt replaces the notification text shown to a provider whose plan
// does not allow prospective-client chat. The message itself is stored and
// delivered untouched elsewhere in history.
const upgradePrompt = "Please Upgrade your Plan."

// Dispatcher orchestrates inbound frames: validation, attachment processing,
// session resolution, persistence and the delivery-path decision. One
// dispatcher serves every connection loop; it keeps no per-message state.
type Dispatcher struct {
	registry    *Registry
	store       SessionStore
	users       UserDirectory
	cache       PendingCache
	attachments *AttachmentProcessor
	resolver    *Resolver
	tasks       *TaskQueue
	mailer      TranscriptMailer
	// supportEmail is rendered into the transcript footer.
	supportEmail string
	log          *slog.Logger
}

func NewDispatcher(
	registry *Registry,
	store SessionStore,
	users UserDirectory,
	cache PendingCache,
	attachments *AttachmentProcessor,
	resolver *Resolver,
	tasks *TaskQueue,
	mailer TranscriptMailer,
	supportEmail string,
	log *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry:     registry,
		store:        store,
		users:        users,
		cache:        cache,
		attachments:  attachments,
		resolver:     resolver,
		tasks:        tasks,
		mailer:       mailer,
		supportEmail: supportEmail,
		log:          log,
	}
}

// HandleFrame processes one inbound frame and returns the in-band error to
// write back to the sender, or "" on success. Nothing in here may kill the
// caller's receive loop: panics are contained and surfaced as a generic
// error.
func (d *Dispatcher) HandleFrame(ctx context.Context, sender string, raw []byte) (reply string) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error("panic while handling frame", "user", sender, "panic", rec, "frame", string(raw))
			reply = "An error occurred while processing your message."
		}
	}()

	frame := DecodeFrame(raw)
	switch frame.Kind {
	case FrameMalformed:
		d.log.Warn("invalid frame", "user", sender)
		return "Invalid JSON format"
	case FrameEndChat:
		return d.handleEndChat(ctx, sender, frame)
	case FrameChatMessage:
		return d.handleChatMessage(ctx, sender, frame)
	}
	return ""
}

func (d *Dispatcher) handleChatMessage(ctx context.Context, sender string, f Frame) string {
	if f.Recipient == "" || (f.Message == "" && len(f.Files) == 0) {
		d.log.Warn("invalid message data", "user", sender)
		return "Invalid message data."
	}

	deliverText := f.Message
	redact, err := d.redactForProspective(ctx, sender, f.Recipient)
	if err != nil {
		// Missing membership or lookup trouble is treated as no restriction.
		d.log.Warn("prospective check failed, delivering unrestricted", "sender", sender, "recipient", f.Recipient, "err", err)
	} else if redact {
		deliverText = upgradePrompt
	}

	atts := d.attachments.Process(f.Files, sender)
	// Attachment-only frames whose every item failed to decode have nothing
	// left to persist or deliver. A message carries text or attachments.
	if f.Message == "" && len(atts) == 0 {
		d.log.Warn("message empty after attachment processing", "user", sender)
		return "Invalid message data."
	}

	chatID := f.ChatID
	if chatID == 0 {
		session, _, err := d.resolver.ResolveOrCreate(ctx, sender, f.Recipient, f.Message)
		if err != nil {
			d.log.Error("resolving chat session", "sender", sender, "recipient", f.Recipient, "err", err)
			return "Unable to resolve chat session."
		}
		chatID = session.ChatID
	}

	if _, err := d.store.AppendMessage(ctx, chatID, sender, f.Message, atts); err != nil {
		d.log.Error("saving message", "chat_id", chatID, "sender", sender, "err", err)
		return "Unable to save your message."
	}

	// Exactly one delivery path: live push, or the offline queue on any push
	// failure. Never both, never neither.
	payload := DeliveredMessage{
		Sender:      sender,
		Receiver:    f.Recipient,
		Message:     deliverText,
		Attachments: atts,
		Type:        f.Type,
	}
	if !d.registry.Send(f.Recipient, payload) {
		if err := d.cache.Push(ctx, f.Recipient, deliverText, sender); err != nil {
			d.log.Error("queueing offline notification", "recipient", f.Recipient, "err", err)
			return "Unable to deliver your message."
		}
	}

	if f.ReceiverActiveFor != "" {
		if err := d.store.MarkRead(ctx, chatID, f.ReceiverActiveFor); err != nil {
			d.log.Error("marking messages read", "chat_id", chatID, "from", f.ReceiverActiveFor, "err", err)
		}
		if err := d.cache.RemoveForSender(ctx, sender, f.ReceiverActiveFor); err != nil {
			d.log.Error("clearing pending notifications", "user", sender, "from", f.ReceiverActiveFor, "err", err)
		}
	}
	return ""
}

func (d *Dispatcher) handleEndChat(ctx context.Context, sender string, f Frame) string {
	if f.ChatID == 0 {
		d.log.Warn("end chat without chat_id", "user", sender)
		return "No chat_id provided"
	}
	if _, err := d.EndChat(ctx, f.ChatID); err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			return fmt.Sprintf("Chat %d not found", f.ChatID)
		}
		d.log.Error("ending chat", "chat_id", f.ChatID, "user", sender, "err", err)
		return "Error ending chat."
	}
	return ""
}

// EndChat marks the session ended, pushes the chat_ended event to whichever
// participants are connected (direct push only, this signal has no offline
// fallback) and defers the transcript email. Shared by the duplex protocol
// and the REST endpoint.
func (d *Dispatcher) EndChat(ctx context.Context, chatID uint) (*models.Chat, error) {
	session, err := d.store.SessionByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperr.ErrChatNotFound
	}

	if err := d.store.EndSession(ctx, chatID); err != nil {
		return nil, err
	}

	event := ChatEndedEvent{Event: eventChatEnded, ChatID: chatID}
	d.registry.Send(session.SenderID, event)
	d.registry.Send(session.ReceiverID, event)

	d.tasks.Enqueue("chat-transcript", func(ctx context.Context) error {
		return d.emailTranscript(ctx, session)
	})
	return session, nil
}

func (d *Dispatcher) emailTranscript(ctx context.Context, session *models.Chat) error {
	sender, err := d.users.UserByID(ctx, session.SenderID)
	if err != nil {
		return err
	}
	receiver, err := d.users.UserByID(ctx, session.ReceiverID)
	if err != nil {
		return err
	}

	messages, err := d.store.ListMessages(ctx, session.ChatID)
	if err != nil {
		return err
	}

	names := map[string]string{
		sender.UUID:   sender.DisplayName(),
		receiver.UUID: receiver.DisplayName(),
	}
	entries := make([]mail.TranscriptEntry, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, mail.TranscriptEntry{
			SentAt:      m.SentAt,
			Sender:      names[m.SenderID],
			Text:        m.Text(),
			Attachments: m.Attachments(),
		})
	}
	body := mail.Transcript(session.ChatID, entries, d.supportEmail)

	for _, addr := range []string{sender.ContactEmail(), receiver.ContactEmail()} {
		if addr == "" {
			continue
		}
		if err := d.mailer.Send(ctx, addr, mail.TranscriptSubject, body); err != nil {
			d.log.Error("sending transcript email", "chat_id", session.ChatID, "to", addr, "err", err)
		}
	}
	return nil
}

// redactForProspective reports whether the recipient is a provider receiving
// prospective-client contact on a plan that does not allow it. Approval or
// creation of the client by the provider makes the pair established; a
// missing membership means no restriction.
func (d *Dispatcher) redactForProspective(ctx context.Context, sender, recipient string) (bool, error) {
	senderUser, err := d.users.UserByID(ctx, sender)
	if err != nil {
		return false, err
	}
	recipientUser, err := d.users.UserByID(ctx, recipient)
	if err != nil {
		return false, err
	}

	var client, provider *models.User
	for _, u := range []*models.User{senderUser, recipientUser} {
		switch u.RoleType {
		case models.RoleClient:
			client = u
		case models.RoleServiceProvider:
			provider = u
		}
	}
	if client == nil || provider == nil {
		return false, nil
	}
	// Redaction protects the provider's notification; a provider writing to
	// a client is never redacted.
	if provider.UUID != recipientUser.UUID {
		return false, nil
	}
	if client.ApprovedBy == provider.UUID || client.CreatedBy == provider.UUID {
		return false, nil
	}

	subscription, err := d.users.ActiveSubscription(ctx, provider.UUID)
	if err != nil {
		return false, err
	}
	if subscription == nil {
		return false, nil
	}
	return !subscription.ChatWithProspectiveClients, nil
}
