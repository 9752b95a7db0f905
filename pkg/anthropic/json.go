package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractJSON unmarshals a model response into out, tolerating the usual
// decorations: markdown code fences and prose before or after the object.
func ExtractJSON(text string, out any) error {
	raw := strings.TrimSpace(text)

	if i := strings.Index(raw, "```"); i >= 0 {
		rest := raw[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			raw = strings.TrimSpace(rest[:j])
		}
	}

	// Fall back to the outermost braces when the model skipped the fence.
	if !strings.HasPrefix(raw, "{") && !strings.HasPrefix(raw, "[") {
		start := strings.IndexAny(raw, "{[")
		end := strings.LastIndexAny(raw, "}]")
		if start < 0 || end <= start {
			return eris.Errorf("anthropic: no JSON found in response: %.80s", text)
		}
		raw = raw[start : end+1]
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return eris.Wrap(err, "anthropic: parse model JSON")
	}
	return nil
}
