package adapter

import (
	"encoding/json"
	"testing"

	"github.com/versokit/verso/internal/errors"
	"github.com/versokit/verso/internal/state"
)

func TestMapPayload(t *testing.T) {
	payload := json.RawMessage(`{
		"follower_count": 1532,
		"handle": "@acme",
		"verified": true,
		"topics": ["b2b", "saas"],
		"profile": {"bio": "We make things"}
	}`)

	updates, err := MapPayload(payload, state.SourceTwitter)
	if err != nil {
		t.Fatalf("MapPayload() error = %v", err)
	}
	if len(updates) != 5 {
		t.Fatalf("len(updates) = %d, want 5", len(updates))
	}

	// Sorted by field name
	for i := 1; i < len(updates); i++ {
		if updates[i-1].Name >= updates[i].Name {
			t.Errorf("updates not sorted: %q before %q", updates[i-1].Name, updates[i].Name)
		}
	}

	byName := make(map[string]state.FieldType, len(updates))
	for _, u := range updates {
		byName[u.Name] = u.Type
		if u.Source != state.SourceTwitter {
			t.Errorf("field %q source = %q, want api_twitter", u.Name, u.Source)
		}
	}
	wantTypes := map[string]state.FieldType{
		"follower_count": state.TypeNumber,
		"handle":         state.TypeText,
		"verified":       state.TypeBoolean,
		"topics":         state.TypeArray,
		"profile":        state.TypeJSON,
	}
	for name, want := range wantTypes {
		if byName[name] != want {
			t.Errorf("field %q type = %q, want %q", name, byName[name], want)
		}
	}
}

func TestMapPayload_DefaultSource(t *testing.T) {
	updates, err := MapPayload(json.RawMessage(`{"a":1}`), "")
	if err != nil {
		t.Fatalf("MapPayload() error = %v", err)
	}
	if updates[0].Source != state.SourceWebhook {
		t.Errorf("source = %q, want api_webhook (default)", updates[0].Source)
	}
}

func TestMapPayload_Errors(t *testing.T) {
	if _, err := MapPayload(json.RawMessage(`[1,2]`), state.SourceWebhook); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("non-object payload error = %v, want VALIDATION", err)
	}
	if _, err := MapPayload(json.RawMessage(`{"a":1}`), "api_bogus"); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("unknown source error = %v, want VALIDATION", err)
	}
	if _, err := MapPayload(json.RawMessage(`{"": 1}`), state.SourceWebhook); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("empty field name error = %v, want VALIDATION", err)
	}
}
