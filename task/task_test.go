package task

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateNew(t *testing.T) {
	longTitle := strings.Repeat("a", TitleMaxLen+1)
	longDesc := strings.Repeat("b", DescriptionMaxLen+1)

	tests := []struct {
		name      string
		title     string
		desc      *string
		wantField string
	}{
		{"valid", "Buy milk", nil, ""},
		{"trims whitespace", "  Buy milk  ", nil, ""},
		{"empty title", "", nil, "title"},
		{"whitespace-only title", "   \t ", nil, "title"},
		{"title too long", longTitle, nil, "title"},
		{"description too long", "ok", &longDesc, "description"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			trimmed, err := ValidateNew(tc.title, tc.desc)
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateNew: %v", err)
				}
				if trimmed != strings.TrimSpace(tc.title) {
					t.Errorf("trimmed = %q", trimmed)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := verr.Fields[tc.wantField]; !ok {
				t.Errorf("expected field error on %q, got %v", tc.wantField, verr.Fields)
			}
		})
	}
}

func TestValidatePatch_TrimsSuppliedTitle(t *testing.T) {
	title := "  New title  "
	p := Patch{Title: &title}
	if err := ValidatePatch(&p); err != nil {
		t.Fatalf("ValidatePatch: %v", err)
	}
	if *p.Title != "New title" {
		t.Errorf("title = %q, want trimmed", *p.Title)
	}
}

func TestValidatePatch_EmptyPatchOK(t *testing.T) {
	p := Patch{}
	if err := ValidatePatch(&p); err != nil {
		t.Fatalf("ValidatePatch on empty patch: %v", err)
	}
}

func TestValidatePatch_EmptyTitleRejected(t *testing.T) {
	title := "   "
	p := Patch{Title: &title}
	var verr *ValidationError
	if err := ValidatePatch(&p); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestClone(t *testing.T) {
	desc := "original"
	orig := &Task{ID: "t1", Title: "a", Description: &desc}
	c := orig.Clone()
	*c.Description = "changed"
	c.Title = "b"
	if *orig.Description != "original" || orig.Title != "a" {
		t.Error("Clone shares state with the original")
	}
}
