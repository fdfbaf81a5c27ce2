package chat

import (
	"context"
	"log/slog"

	"github.com/hopeforeverybody/chat-service/internal/models"
)

// Resolver finds or creates the unique active session between two
// participants. Ended or deleted sessions stay archived: the next contact
// gets a fresh session id, keeping closed transcripts immutable.
type Resolver struct {
	store SessionStore
	log   *slog.Logger
}

func NewResolver(store SessionStore, log *slog.Logger) *Resolver {
	return &Resolver{store: store, log: log}
}

// ResolveOrCreate returns the active session for the pair, creating one when
// none exists or the latest one is closed. The second result reports whether
// a new session was created. Argument order does not matter for lookup; the
// caller is recorded as the initiating side on creation.
func (r *Resolver) ResolveOrCreate(ctx context.Context, caller, other, opening string) (*models.Chat, bool, error) {
	existing, err := r.store.FindSession(ctx, caller, other)
	if err != nil {
		return nil, false, err
	}
	if existing != nil && !existing.EndChat && !existing.IsDeleted {
		return existing, false, nil
	}

	created, err := r.store.CreateSession(ctx, caller, other, opening)
	if err != nil {
		return nil, false, err
	}
	r.log.Info("new chat created", "chat_id", created.ChatID, "sender", caller, "receiver", other)
	return created, true, nil
}
