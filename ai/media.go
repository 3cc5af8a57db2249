package ai

import (
	"regexp"
	"strings"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
)

// Attachment is binary content carried by a history message
type Attachment struct {
	MimeType string
	// Data is base64 without the data URL prefix
	Data string
}

// IsImage reports whether the attachment is a picture
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

// DataURL renders the attachment back to a data URL
func (a Attachment) DataURL() string {
	return "data:" + a.MimeType + ";base64," + a.Data
}

// ParseDataURL splits a base64 data URL into mime type and payload
func ParseDataURL(s string) (mime, data string, ok bool) {
	if !strings.HasPrefix(s, "data:") {
		return "", "", false
	}
	header, payload, found := strings.Cut(s[len("data:"):], ",")
	if !found || !strings.HasSuffix(header, ";base64") {
		return "", "", false
	}
	mime = strings.TrimSuffix(header, ";base64")
	if mime == "" {
		mime = "application/octet-stream"
	}
	return mime, payload, payload != ""
}

// MessageAttachments returns the inline file and sticker image of a message
func MessageAttachments(msg *models.Message) []Attachment {
	if msg == nil {
		return nil
	}
	var out []Attachment
	if msg.File != nil {
		if mime, data, ok := ParseDataURL(msg.File.DataURL); ok {
			if msg.File.MimeType != "" {
				mime = msg.File.MimeType
			}
			out = append(out, Attachment{MimeType: mime, Data: data})
		}
	}
	if msg.Sticker != nil {
		if mime, data, ok := ParseDataURL(msg.Sticker.DataURL); ok && strings.HasPrefix(mime, "image/") {
			out = append(out, Attachment{MimeType: mime, Data: data})
		}
	}
	return out
}

var videoLinkPattern = regexp.MustCompile(`https?://(?:www\.|m\.)?(?:youtube\.com/(?:watch\?v=|shorts/|live/)|youtu\.be/)[A-Za-z0-9_\-]{6,}[^\s]*`)

// VideoLinks finds links to videos a provider can fetch by URI
func VideoLinks(text string) []string {
	return videoLinkPattern.FindAllString(text, -1)
}

// imageSubstitute is the text used when a model's own earlier image cannot be replayed
func imageSubstitute(msg *models.Message) string {
	if msg != nil && msg.ImageGenerationSetting != nil && msg.ImageGenerationSetting.Prompt != "" {
		return "[Image sent: " + msg.ImageGenerationSetting.Prompt + "]"
	}
	return "[Image sent]"
}
