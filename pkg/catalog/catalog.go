// Package catalog holds the model catalog exposed through the OpenAI-style
// model endpoints.
//
// The backend offers no model-listing RPC to guest identities, so the
// catalog is a fixed snapshot of the models observed in its UI. "auto" lets
// the backend pick.
package catalog

// Model is one selectable backend LLM.
type Model struct {
	ID   string
	Name string
}

var models = []Model{
	{ID: "auto", Name: "Autoselect LLM"},
	{ID: "claude-sonnet-4-5-20250929", Name: "Claude Sonnet 4.5"},
	{ID: "claude-3-7-sonnet", Name: "Claude 3.7 Sonnet"},
	{ID: "claude-3-5-sonnet", Name: "Claude 3.5 Sonnet"},
	{ID: "deepseek-ai/DeepSeek-R1", Name: "DeepSeek R1"},
	{ID: "deepseek-ai/DeepSeek-V3", Name: "DeepSeek V3"},
	{ID: "gpt-4.1", Name: "GPT-4.1"},
	{ID: "gpt-4o", Name: "GPT-4o"},
	{ID: "gpt-5", Name: "GPT-5"},
	{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro"},
	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash"},
}

// Models returns the full catalog.
func Models() []Model {
	out := make([]Model, len(models))
	copy(out, models)
	return out
}

// Lookup returns the model with the given id.
func Lookup(id string) (Model, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}
