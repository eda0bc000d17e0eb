package models

import "strings"

// Role identifies who authored a message in a thread.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// FileAttachment is a file referenced by a message.
// Path points at the uploaded copy on durable storage; Content holds whatever
// the provider's ProcessFile produced (extracted text, or the path itself for
// images that are attached inline at send time).
type FileAttachment struct {
	Path     string `json:"path"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Content  string `json:"content,omitempty"`
}

// Message is a single entry of a thread's conversation history.
type Message struct {
	Role     Role              `json:"role"`
	Content  string            `json:"content"`
	File     *FileAttachment   `json:"file,omitempty"`
	Provider string            `json:"provider,omitempty"` // set on assistant messages
	Params   *GenerationParams `json:"params,omitempty"`
}

// Text returns the text a provider should see for this message: the message
// content followed by any extracted file content.
func (m Message) Text() string {
	if m.File == nil || m.File.Content == "" || m.File.Content == m.File.Path {
		return m.Content
	}
	var b strings.Builder
	b.WriteString(m.Content)
	if m.Content != "" {
		b.WriteString("\n\n")
	}
	name := m.File.Name
	if name == "" {
		name = m.File.Path
	}
	b.WriteString("[Attached file: ")
	b.WriteString(name)
	b.WriteString("]\n")
	b.WriteString(m.File.Content)
	return b.String()
}

// ImagePath returns the path of an inline image attachment, if any.
// ProcessFile implementations that pass images through store the path as the
// attachment content, which is what marks the file for inline submission.
func (m Message) ImagePath() (string, bool) {
	if m.File == nil || m.File.Path == "" {
		return "", false
	}
	if m.File.Content == m.File.Path || strings.HasPrefix(m.File.MimeType, "image/") {
		return m.File.Path, true
	}
	return "", false
}

// ProviderResponse is the normalized reply every provider returns.
type ProviderResponse struct {
	Content  string           `json:"content"`
	Model    string           `json:"model"`
	Provider string           `json:"provider"`
	Params   GenerationParams `json:"params"`
}
