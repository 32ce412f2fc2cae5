package formatter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/cukemsg/internal/messages"
)

// AttachmentHandling selects how attachments reach a formatter's output.
type AttachmentHandling int

const (
	// Embed passes attachments through unchanged.
	Embed AttachmentHandling = iota
	// External points ExternalAttachment URLs into a storage directory.
	External
)

func (h AttachmentHandling) String() string {
	switch h {
	case Embed:
		return "Embed"
	case External:
		return "External"
	}
	return fmt.Sprintf("AttachmentHandling(%d)", int(h))
}

// ParseAttachmentHandling parses "Embed" or "External". "" means Embed.
func ParseAttachmentHandling(s string) (AttachmentHandling, error) {
	switch s {
	case "", "Embed":
		return Embed, nil
	case "External":
		return External, nil
	}
	return Embed, fmt.Errorf("unknown attachment handling %q: must be Embed or External", s)
}

// transform rewrites ExternalAttachment URLs under the storage path when
// attachments are External. It never mutates msg: envelopes are shared
// between formatters.
func (f *Formatter) transform(msg messages.Tagged) messages.Tagged {
	if f.attachments != External || msg.Envelope == nil || msg.Envelope.ExternalAttachment == nil {
		return msg
	}
	ext := *msg.Envelope.ExternalAttachment
	ext.URL = externalURL(f.storagePath, ext.URL)
	return messages.Tagged{Feature: msg.Feature, Envelope: messages.NewEnvelope(&ext)}
}

// externalURL places url under storage. Rooted paths keep only their base
// name. URLs with a scheme are left alone.
func externalURL(storage, url string) string {
	if storage == "" || strings.Contains(url, "://") {
		return url
	}
	if filepath.IsAbs(url) {
		return filepath.Join(storage, filepath.Base(url))
	}
	return filepath.Join(storage, url)
}
