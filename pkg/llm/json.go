package llm

import (
	"encoding/json"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"
)

// ExtractJSONFromResponse pulls the JSON payload out of a model response
// that may wrap it in markdown code fences or surrounding prose.
func ExtractJSONFromResponse(response string) string {
	response = strings.TrimSpace(response)

	if strings.Contains(response, "```json") {
		start := strings.Index(response, "```json")
		end := strings.Index(response[start+7:], "```")
		if end != -1 {
			return strings.TrimSpace(response[start+7 : start+7+end])
		}
	}

	if strings.HasPrefix(response, "```") {
		lines := strings.Split(response, "\n")
		if len(lines) > 2 {
			return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
		}
	}

	// Object boundaries first, then array boundaries.
	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")
	arrStart := strings.Index(response, "[")
	arrEnd := strings.LastIndex(response, "]")

	// Prefer whichever structure opens first so an array of objects is
	// not truncated to its first element.
	if arrStart != -1 && arrEnd > arrStart && (jsonStart == -1 || arrStart < jsonStart) {
		return response[arrStart : arrEnd+1]
	}
	if jsonStart != -1 && jsonEnd > jsonStart {
		return response[jsonStart : jsonEnd+1]
	}

	return response
}

// UnmarshalLenient extracts, repairs, and unmarshals model output into v.
// It first tries the extracted payload as-is, then runs it through the
// repairer for the usual LLM defects (trailing commas, single quotes,
// unquoted keys).
func UnmarshalLenient(response string, v any) error {
	payload := ExtractJSONFromResponse(response)

	if err := json.Unmarshal([]byte(payload), v); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(repaired), v)
}
