package llm

import (
	"encoding/json"
	"regexp"

	"github.com/kaptinlin/jsonrepair"
)

var jsonArrayPattern = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)

// ExtractJSONArray pulls a JSON array of objects out of model output that
// may wrap it in prose or markdown. It tries the first bracketed array
// substring, then the whole content, then a jsonrepair salvage of the
// substring. The result is unmarshalled into out, which must be a pointer
// to a slice.
func ExtractJSONArray(content string, out interface{}) error {
	if match := jsonArrayPattern.FindString(content); match != "" {
		if err := json.Unmarshal([]byte(match), out); err == nil {
			return nil
		}
		repaired, err := jsonrepair.JSONRepair(match)
		if err == nil {
			if err := json.Unmarshal([]byte(repaired), out); err == nil {
				return nil
			}
		}
	}

	if err := json.Unmarshal([]byte(content), out); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(repaired), out)
}
