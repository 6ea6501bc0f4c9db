package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFill(t *testing.T) {
	tests := []struct {
		name                string
		version, commit     string
		info                debug.BuildInfo
		wantVersion, wantCm string
	}{
		{
			name:        "module version used when unset",
			version:     "dev",
			commit:      "none",
			info:        debug.BuildInfo{Main: debug.Module{Version: "v0.3.0"}},
			wantVersion: "v0.3.0",
			wantCm:      "none",
		},
		{
			name:        "devel ignored",
			version:     "dev",
			commit:      "none",
			info:        debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			wantVersion: "dev",
			wantCm:      "none",
		},
		{
			name:    "ldflags win",
			version: "v1.0.0",
			commit:  "abc123",
			info: debug.BuildInfo{
				Main:     debug.Module{Version: "v0.3.0"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "def456"}},
			},
			wantVersion: "v1.0.0",
			wantCm:      "abc123",
		},
		{
			name:        "vcs revision fills commit",
			version:     "dev",
			commit:      "none",
			info:        debug.BuildInfo{Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "def456"}}},
			wantVersion: "dev",
			wantCm:      "def456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldV, oldC, oldD := Version, Commit, Date
			defer func() { Version, Commit, Date = oldV, oldC, oldD }()

			Version, Commit, Date = tt.version, tt.commit, "unknown"
			fill(&tt.info)
			if Version != tt.wantVersion || Commit != tt.wantCm {
				t.Errorf("got %s/%s, want %s/%s", Version, Commit, tt.wantVersion, tt.wantCm)
			}
		})
	}
}

func TestTemplate(t *testing.T) {
	tmpl := Template()
	if !strings.HasPrefix(tmpl, "{{.Name}} version ") || !strings.Contains(tmpl, Commit) {
		t.Errorf("Template() = %q", tmpl)
	}
	if !strings.Contains(String(), "version: "+Version) {
		t.Errorf("String() = %q", String())
	}
}
