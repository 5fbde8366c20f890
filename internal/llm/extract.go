package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSONObject = errors.New("llm: response contains no JSON object")

// extractJSONObject returns the substring between the first '{' and the last
// '}' of a completion. Models routinely wrap their JSON in prose or markdown
// fences, so only that window is handed to the JSON parser.
func extractJSONObject(response string) (string, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return "", errNoJSONObject
	}
	return response[start : end+1], nil
}

// orderedObjectKeys returns the top-level keys of a JSON object in document
// order. encoding/json maps drop ordering, but category order must stay
// aligned with the ratio list.
func orderedObjectKeys(objectJSON []byte) ([]string, error) {
	decoder := json.NewDecoder(bytes.NewReader(objectJSON))

	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, errNoJSONObject
	}

	var keys []string
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyToken.(string)
		if !ok {
			return nil, errNoJSONObject
		}
		keys = append(keys, key)
		if err := skipValue(decoder); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func skipValue(decoder *json.Decoder) error {
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	delim, ok := token.(json.Delim)
	if !ok || (delim != '{' && delim != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return err
		}
		if d, ok := token.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
