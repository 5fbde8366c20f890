package llm

import (
	"errors"
	"testing"
)

func TestExtractJSONObjectFromProse(t *testing.T) {
	response := "Sure, here it is:\n```json\n{\"keywords\": [\"a\"]}\n```\nHope that helps."
	objectJSON, err := extractJSONObject(response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if objectJSON != `{"keywords": ["a"]}` {
		t.Fatalf("unexpected extraction %q", objectJSON)
	}
}

func TestExtractJSONObjectWithoutBraces(t *testing.T) {
	_, err := extractJSONObject("no structured output here")
	if !errors.Is(err, errNoJSONObject) {
		t.Fatalf("expected errNoJSONObject, got %v", err)
	}
}

func TestOrderedObjectKeysPreservesDocumentOrder(t *testing.T) {
	objectJSON := []byte(`{
		"Zebra": ["z1", "z2"],
		"Alpha": {"nested": [1, 2, {"deep": true}]},
		"Mid": 42,
		"Last": null
	}`)

	keys, err := orderedObjectKeys(objectJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Zebra", "Alpha", "Mid", "Last"}
	if len(keys) != len(want) {
		t.Fatalf("unexpected key count %d", len(keys))
	}
	for i, key := range want {
		if keys[i] != key {
			t.Fatalf("key %d: got %q want %q", i, keys[i], key)
		}
	}
}

func TestOrderedObjectKeysRejectsNonObject(t *testing.T) {
	if _, err := orderedObjectKeys([]byte(`["not", "an", "object"]`)); err == nil {
		t.Fatalf("expected error for array input")
	}
}
