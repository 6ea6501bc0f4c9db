package errors

import (
	"strings"
	"testing"
)

func TestValidateOutputName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "nateroid", false},
		{"valid with dash", "rock-set", false},
		{"valid with underscore", "rock_set", false},
		{"valid with dot", "rock.v2", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 200), true},
		{"path traversal", "..rock", true},
		{"slash", "rocks/a", true},
		{"backslash", "rocks\\a", true},
		{"space", "my rock", true},
		{"leading dash", "-rock", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOutputName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidName) {
				t.Errorf("ValidateOutputName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidName)
			}
		})
	}
}

func TestValidateObjectName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "Donut", false},
		{"valid with space", "Donut Icing", false},
		{"valid with dot", "Cube.001", false},

		{"empty", "", true},
		{"slash", "a/b", true},
		{"backslash", "a\\b", true},
		{"control char", "a\x01b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateObjectName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateObjectName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "scenes/rock.json", false},
		{"absolute", "/tmp/out", false},
		{"parent dir", "../assets", false},

		{"empty", "", true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
		{"too long", strings.Repeat("a", 5000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateResolution(t *testing.T) {
	tests := []struct {
		res     int
		wantErr bool
	}{
		{1, false},
		{512, false},
		{MaxResolution, false},
		{0, true},
		{-1, true},
		{MaxResolution + 1, true},
	}

	for _, tt := range tests {
		err := ValidateResolution(tt.res)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateResolution(%d) error = %v, wantErr %v", tt.res, err, tt.wantErr)
		}
		if err != nil && GetCode(err) != ErrCodeInvalidResolution {
			t.Errorf("ValidateResolution(%d) code = %v", tt.res, GetCode(err))
		}
	}
}
