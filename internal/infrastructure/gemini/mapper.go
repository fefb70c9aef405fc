package gemini

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/pharmasource/backend/internal/domain"
)

// catalogTool declares the search_catalog function to the model
func catalogTool() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name: SearchCatalogTool,
			Description: "Search the pharmacy catalog. Text matches from the start of product names; " +
				"use % as a wildcard for any run of characters. Queries need at least 3 characters unless a brand is given.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"catalog": {
						Type:        genai.TypeString,
						Description: "Which catalog to search",
						Enum:        []string{string(domain.KindCosmetics), string(domain.KindMilk)},
					},
					"query": {
						Type:        genai.TypeString,
						Description: "Product name text, optionally with % wildcards",
					},
					"brand": {
						Type:        genai.TypeString,
						Description: "Exact brand name to restrict results to",
					},
				},
				Required: []string{"catalog"},
			},
		}},
	}
}

// toContents converts the stored conversation into model turns.
// Empty messages are skipped.
func toContents(history []domain.AssistantMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			continue
		}
		role := genai.RoleUser
		switch strings.ToLower(msg.Role) {
		case "model", "assistant":
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(text, role))
	}
	return contents
}

// parseCatalogQuery reads the tool arguments the model supplied
func parseCatalogQuery(args map[string]any) domain.CatalogQuery {
	return domain.CatalogQuery{
		Catalog: domain.CatalogKind(strings.ToLower(argString(args, "catalog"))),
		Text:    argString(args, "query"),
		Brand:   argString(args, "brand"),
	}
}

func argString(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
