// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

var allIds = []Id{
	DocumentNotFoundId,
	NoCodeButtonBlocksId,
	BlockNotFoundId,
	SectionUnavailableId,
	SnippetCompileFailedId,
	SnippetExecutionFailedId,
	StartupScriptFailedId,
	ConfigLoadFailedId,
	PermissionDeniedId,
	WatchUnavailableId,
}

// passthroughRender swaps glamour out for the duration of a test.
func passthroughRender(t *testing.T) {
	t.Helper()

	original := render
	t.Cleanup(func() { render = original })
	render = func(in string, _ string) (string, error) {
		return in, nil
	}
}

func TestId_Constants(t *testing.T) {
	t.Parallel()

	seen := make(map[Id]bool)
	for _, id := range allIds {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	if DocumentNotFoundId != 1 {
		t.Errorf("DocumentNotFoundId = %d, want 1", DocumentNotFoundId)
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{DocumentNotFoundId, false, "Document not found"},
		{NoCodeButtonBlocksId, false, "No code-button blocks"},
		{BlockNotFoundId, false, "codebutton list"},
		{SectionUnavailableId, false, "Could not get code block info"},
		{SnippetCompileFailedId, false, "failed to compile"},
		{SnippetExecutionFailedId, false, "Snippet failed"},
		{StartupScriptFailedId, false, "startup_script_path"},
		{ConfigLoadFailedId, false, "Failed to load configuration"},
		{PermissionDeniedId, false, "artifact_dir"},
		{WatchUnavailableId, false, "force_polling"},
		{Id(9999), true, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			t.Parallel()

			issue := Get(tt.id)
			if tt.wantNil {
				if issue != nil {
					t.Errorf("Get(%d) should return nil", tt.id)
				}
				return
			}
			if issue == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if issue.Id() != tt.id {
				t.Errorf("Id() = %d, want %d", issue.Id(), tt.id)
			}
			if !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain %q", tt.id, tt.contains)
			}
		})
	}
}

func TestValues(t *testing.T) {
	t.Parallel()

	issues := Values()
	if len(issues) != len(allIds) {
		t.Fatalf("Values() returned %d issues, want %d", len(issues), len(allIds))
	}
	for i, issue := range issues {
		if issue.Id() != allIds[i] {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, issue.Id(), allIds[i])
		}
		if issue.MarkdownMsg() == "" {
			t.Errorf("issue %d has empty MarkdownMsg", issue.Id())
		}
	}
}

// Render tests swap the package-level renderer and so do not run in parallel.
func TestIssue_Render(t *testing.T) {
	passthroughRender(t)

	tests := []struct {
		name        string
		issue       *Issue
		wantSeeAlso bool
	}{
		{
			name: "with links",
			issue: &Issue{
				id:       Id(9999),
				mdMsg:    "# Test Issue\n\nThis is a test.",
				extLinks: []HttpLink{"https://external.example.com"},
			},
			wantSeeAlso: true,
		},
		{
			name: "without links",
			issue: &Issue{
				id:    Id(9998),
				mdMsg: "# Test Issue\n\nNo links here.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rendered, err := tt.issue.Render("")
			if err != nil {
				t.Fatalf("Render() returned error: %v", err)
			}
			if got := strings.Contains(rendered, "See also"); got != tt.wantSeeAlso {
				t.Errorf("contains 'See also' = %v, want %v", got, tt.wantSeeAlso)
			}
			if tt.wantSeeAlso && !strings.Contains(rendered, "<https://external.example.com>") {
				t.Errorf("Render() = %q, want the external link", rendered)
			}
		})
	}
}

func TestCatalogueLinks(t *testing.T) {
	passthroughRender(t)

	tests := []struct {
		id   Id
		want string
	}{
		{id: SnippetCompileFailedId, want: "<https://esbuild.github.io/content-types/#typescript-caveats>"},
		{id: SnippetExecutionFailedId, want: "<https://pkg.go.dev/time#ParseDuration>"},
		{id: ConfigLoadFailedId, want: "<https://cuelang.org/docs/>"},
		{id: WatchUnavailableId, want: "<https://github.com/fsnotify/fsnotify>"},
	}

	for _, tt := range tests {
		rendered, err := Get(tt.id).Render("")
		if err != nil {
			t.Fatalf("issue %d failed to render: %v", tt.id, err)
		}
		if !strings.Contains(rendered, "## See also:") || !strings.Contains(rendered, tt.want) {
			t.Errorf("issue %d rendered without %s:\n%s", tt.id, tt.want, rendered)
		}
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	passthroughRender(t)

	for _, issue := range Values() {
		rendered, err := issue.Render("")
		if err != nil {
			t.Errorf("issue %d failed to render: %v", issue.Id(), err)
		}
		if rendered == "" {
			t.Errorf("issue %d rendered to empty string", issue.Id())
		}
	}
}

func TestIssue_RenderGlamour(t *testing.T) {
	rendered, err := Get(NoCodeButtonBlocksId).Render("notty")
	if err != nil {
		t.Fatalf("Render(notty) returned error: %v", err)
	}
	if !strings.Contains(rendered, "No code-button blocks") {
		t.Errorf("Render(notty) = %q, want the heading text", rendered)
	}
}
