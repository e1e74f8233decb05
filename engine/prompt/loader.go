package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/assistant.txt
var assistantRaw string

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Assistant string
}

// LoadPromptSet returns trimmed prompt strings. The embed is compile-time,
// so this is safe to call concurrently.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Assistant: strings.TrimSpace(assistantRaw),
	}
}
