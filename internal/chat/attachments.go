package chat

import (
	"encoding/base64"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/hopeforeverybody/chat-service/internal/models"
)

// AttachmentProcessor turns raw base64 uploads into persisted files with
// resolvable URLs. The policy is best-effort per item: a bad decode or a
// failed write drops that one item and the rest of the batch goes through.
type AttachmentProcessor struct {
	dir     string
	baseURL string
	log     *slog.Logger
}

func NewAttachmentProcessor(dir, baseURL string, log *slog.Logger) *AttachmentProcessor {
	return &AttachmentProcessor{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// Process decodes and persists each item. The result is never longer than the
// input and never an error: skipped items are logged with the owner for
// traceability.
func (p *AttachmentProcessor) Process(items []FileUpload, ownerID string) []models.Attachment {
	out := make([]models.Attachment, 0, len(items))
	for _, item := range items {
		if item.Data == "" {
			p.log.Warn("attachment has no data", "name", item.Name, "owner", ownerID)
			continue
		}

		encoded := item.Data
		// Strip a data-URL prefix like "data:image/png;base64,".
		if i := strings.IndexByte(encoded, ','); i >= 0 {
			encoded = encoded[i+1:]
		}
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			p.log.Warn("attachment decode failed, skipping", "name", item.Name, "owner", ownerID, "err", err)
			continue
		}

		stored := uuid.NewString() + "_" + item.Name
		if err := os.WriteFile(filepath.Join(p.dir, stored), raw, 0o644); err != nil {
			p.log.Warn("attachment write failed, skipping", "name", item.Name, "owner", ownerID, "err", err)
			continue
		}

		out = append(out, models.Attachment{
			Name: item.Name,
			URL:  p.urlFor(stored),
			Type: item.Type,
			Size: item.Size,
		})
	}
	return out
}

// SaveUpload persists an already-decoded stream (the multipart fallback path)
// and returns its descriptor.
func (p *AttachmentProcessor) SaveUpload(name, declaredType string, r io.Reader) (*models.Attachment, error) {
	stored := uuid.NewString() + "_" + name
	f, err := os.Create(filepath.Join(p.dir, stored))
	if err != nil {
		return nil, err
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return &models.Attachment{
		Name: name,
		URL:  p.urlFor(stored),
		Type: declaredType,
		Size: size,
	}, nil
}

func (p *AttachmentProcessor) urlFor(stored string) string {
	return p.baseURL + "/api/a/" + stored
}
