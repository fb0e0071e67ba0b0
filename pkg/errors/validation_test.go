package errors

import (
	"strings"
	"testing"
)

func TestValidateNodeID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty is unaddressable", "", false},
		{"simple", "intro", false},
		{"with dash", "after-choice", false},
		{"with underscore", "after_choice", false},
		{"unicode", "größe", false},

		{"128 runes of multi-byte text", strings.Repeat("é", 128), false},

		{"too long", strings.Repeat("a", 129), true},
		{"space", "after choice", true},
		{"tab", "a\tb", true},
		{"newline", "a\nb", true},
		{"null byte", "a\x00b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNodeID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidNodeID) {
				t.Errorf("ValidateNodeID(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidNodeID)
			}
		})
	}
}

func TestValidateSpeakerName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "stan", false},
		{"mixed case", "GrunkleStan", false},

		{"empty", "", true},
		{"space", "grunkle stan", true},
		{"too long", strings.Repeat("s", 65), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSpeakerName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSpeakerName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateExportPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative file", "dialogue_export.json", false},
		{"nested", "out/dialogue.json", false},
		{"absolute", "/tmp/dialogue.json", false},

		{"empty", "", true},
		{"directory", "out/", true},
		{"null byte", "a\x00.json", true},
		{"control char", "a\x01.json", true},
		{"too long", strings.Repeat("a", 501), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExportPath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateExportPath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
