package provider

// Known OpenAI-compatible endpoints offered as one-click presets. API keys
// are filled in by the user when the provider is added.
var catalog = []CatalogEntry{
	{ID: "openai", Name: "OpenAI", BaseURL: "https://api.openai.com/v1", RequiresKey: true},
	{ID: "anthropic", Name: "Anthropic", BaseURL: "https://api.anthropic.com/v1", RequiresKey: true},
	{ID: "groq", Name: "Groq", BaseURL: "https://api.groq.com/openai/v1", RequiresKey: true},
	{ID: "xai", Name: "xAI", BaseURL: "https://api.x.ai/v1", RequiresKey: true},
	{ID: "together", Name: "Together AI", BaseURL: "https://api.together.xyz/v1", RequiresKey: true},
	{ID: "mistral", Name: "Mistral", BaseURL: "https://api.mistral.ai/v1", RequiresKey: true},
	{ID: "openrouter", Name: "OpenRouter", BaseURL: "https://openrouter.ai/api/v1", RequiresKey: true},
	{ID: "ollama", Name: "Ollama (local)", BaseURL: "http://localhost:11434/v1", RequiresKey: false},
}

// CatalogEntry describes a provider preset users can instantiate.
type CatalogEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BaseURL     string `json:"base_url"`
	RequiresKey bool   `json:"requires_key"`
}

// Catalog returns the built-in provider presets.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(catalog))
	copy(out, catalog)
	return out
}

// CatalogEntryByID looks up a preset entry.
func CatalogEntryByID(id string) (CatalogEntry, bool) {
	for _, e := range catalog {
		if e.ID == id {
			return e, true
		}
	}
	return CatalogEntry{}, false
}
