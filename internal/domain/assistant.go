package domain

import "context"

// AssistantMessage is one turn of a conversation with the assistant
type AssistantMessage struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// AssistantRequest is a prompt plus prior turns and the system instruction
type AssistantRequest struct {
	History           []AssistantMessage
	Prompt            string
	SystemInstruction string
}

// AssistantReply is the final text answer and the catalog lookups made on the way
type AssistantReply struct {
	Text      string         `json:"text"`
	ToolCalls []CatalogQuery `json:"toolCalls,omitempty"`
	Remaining int            `json:"remaining"`
}

// CatalogQuery is a catalog search issued by the assistant's lookup tool
type CatalogQuery struct {
	Catalog CatalogKind `json:"catalog"`
	Text    string      `json:"query"`
	Brand   string      `json:"brand,omitempty"`
}

// CatalogLookup answers a tool call with a JSON-friendly result
type CatalogLookup func(ctx context.Context, q CatalogQuery) map[string]any
