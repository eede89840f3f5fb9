package jsonapi

import (
	"encoding/json"
	"testing"
)

func TestDocumentBuilder(t *testing.T) {
	t.Run("NewDocument creates empty builder", func(t *testing.T) {
		doc := NewDocument().Build()
		if doc.Data != nil {
			t.Error("Expected nil data in empty document")
		}
	})

	t.Run("DataResource sets single resource", func(t *testing.T) {
		doc := NewDocument().DataResource(Resource{Type: "integer", ID: "1"}).Build()
		r, ok := doc.Data.(Resource)
		if !ok {
			t.Fatal("Data should be Resource type")
		}
		if r.ID != "1" {
			t.Errorf("Resource ID = %v, want 1", r.ID)
		}
	})

	t.Run("Errors clears data", func(t *testing.T) {
		doc := NewDocument().
			Data(Resource{Type: "integer", ID: "1"}).
			Errors(ErrBadRequest("bad")).
			Build()
		if doc.Data != nil {
			t.Error("Errors should clear Data")
		}
		if len(doc.Errors) != 1 {
			t.Errorf("len(Errors) = %d, want 1", len(doc.Errors))
		}
	})

	t.Run("Meta accumulates entries", func(t *testing.T) {
		doc := NewDocument().Meta("length", 10).Meta("ready", true).Build()
		if doc.Meta["length"] != 10 || doc.Meta["ready"] != true {
			t.Errorf("Meta = %v", doc.Meta)
		}
	})

	t.Run("JSONAPI sets version", func(t *testing.T) {
		doc := NewDocument().JSONAPI().Build()
		if doc.JSONAPI == nil || doc.JSONAPI.Version != Version {
			t.Errorf("JSONAPI = %+v, want version %s", doc.JSONAPI, Version)
		}
	})
}

func TestErrorDocument_MarshalsWithoutData(t *testing.T) {
	b, err := json.Marshal(NewErrorDocument(ErrServiceUnavailable("")))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if _, ok := raw["data"]; ok {
		t.Error("error document should not contain data")
	}
	errs, ok := raw["errors"].([]any)
	if !ok || len(errs) != 1 {
		t.Fatalf("errors = %v", raw["errors"])
	}
	if status := errs[0].(map[string]any)["status"]; status != "503" {
		t.Errorf("status = %v, want 503", status)
	}
}
