package models

import "context"

// Capability is the integration shape of a provider.
type Capability string

const (
	// CapabilityTextChat providers accept text messages only.
	CapabilityTextChat Capability = "text"
	// CapabilityMultimodal providers also accept inline image attachments.
	CapabilityMultimodal Capability = "multimodal"
)

// Provider is the fixed contract every external model integration implements.
// There are no partial implementations: each provider supplies all methods.
type Provider interface {
	// Name is the registry key of the provider ("gigachat", "yandexgpt", ...).
	Name() string

	Capability() Capability

	// SendRequest resolves params against the provider defaults, clamps them,
	// truncates messages to the context budget and performs one API call.
	// Any transport or API failure is returned as *ProviderRequestFailedError.
	SendRequest(ctx context.Context, messages []Message, params GenerationParams) (ProviderResponse, error)

	// ProcessFile turns an uploaded file into text (or a reference the
	// provider understands). ok is false for file types the provider does not
	// handle, which is not an error.
	ProcessFile(ctx context.Context, path string) (content string, ok bool, err error)

	// CountTokens is the provider's own token approximation.
	CountTokens(text string) int

	// TruncateMessages selects the messages that are sent for a token budget.
	TruncateMessages(messages []Message, maxTokens int) []Message
}

// VisionDescriber is implemented by services that turn an image into a
// textual description (objects, detected text, faces).
type VisionDescriber interface {
	Describe(ctx context.Context, imagePath string) (string, error)
}
