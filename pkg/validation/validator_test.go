package validation

import (
	"errors"
	"strings"
	"testing"
)

type sampleNode struct {
	ID   string `validate:"required,max=128"`
	Type string `validate:"required,oneof=order document"`
}

type sampleLink struct {
	URL      string `validate:"required,url"`
	Filename string `validate:"required"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		wantError string
	}{
		{"valid node", &sampleNode{ID: "ORD-1", Type: "order"}, ""},
		{"missing id", &sampleNode{Type: "order"}, "ID: field is required"},
		{"unknown type", &sampleNode{ID: "x", Type: "invoice"}, "Type: must be one of [order document]"},
		{"valid link", &sampleLink{URL: "https://files.example.com/a.pdf", Filename: "a.pdf"}, ""},
		{"bad url", &sampleLink{URL: "not a url", Filename: "a.pdf"}, "URL: must be a valid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.value)
			if tt.wantError == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantError) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantError)
			}
		})
	}
}

func TestStructNil(t *testing.T) {
	if err := Struct(nil); !errors.Is(err, ErrNilValue) {
		t.Errorf("Struct(nil) = %v, want ErrNilValue", err)
	}
}

func TestValidateScope(t *testing.T) {
	tests := []struct {
		scope   string
		wantErr bool
	}{
		{"ORD-2024-001", false},
		{"all", false},
		{"customer:acme", false},
		{"", true},
		{"drop table;", true},
		{strings.Repeat("a", 129), true},
	}

	for _, tt := range tests {
		err := ValidateScope(tt.scope)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateScope(%q) error = %v, wantErr %v", tt.scope, err, tt.wantErr)
		}
	}
}

func TestValidateNodeID(t *testing.T) {
	if err := ValidateNodeID("doc_42.pdf"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateNodeID("../etc/passwd"); err == nil {
		t.Error("expected error for path traversal id")
	}
}
