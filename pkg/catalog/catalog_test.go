package catalog

import "testing"

func TestModels(t *testing.T) {
	all := Models()
	if len(all) == 0 {
		t.Fatal("catalog is empty")
	}
	if all[0].ID != "auto" {
		t.Errorf("first model = %q, want auto", all[0].ID)
	}

	// Returned slice is a copy; mutating it must not poison the catalog.
	all[0].ID = "mutated"
	if Models()[0].ID != "auto" {
		t.Error("Models returned a live reference to the catalog")
	}
}

func TestLookup(t *testing.T) {
	m, ok := Lookup("gpt-4o")
	if !ok || m.Name != "GPT-4o" {
		t.Errorf("Lookup(gpt-4o) = %+v, %v", m, ok)
	}

	if _, ok := Lookup("no-such-model"); ok {
		t.Error("Lookup must miss on unknown ids")
	}
}
