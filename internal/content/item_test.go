package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
	}{
		{"url", KindURL},
		{"html", KindHTML},
		{"image", KindImage},
		{"video", KindVideo},
		{"URL", KindURL},
		{" image ", KindImage},
		{"", KindURL},
		{"webpage", KindURL},
		{"error", KindURL},
	}

	for _, tt := range tests {
		if got := ParseKind(tt.input); got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNewItem_FreshIDAndMetadataCopy(t *testing.T) {
	meta := map[string]string{"team": "core"}
	a := NewItem(KindURL, "https://example.com", 0, meta)
	b := NewItem(KindURL, "https://example.com", 0, meta)

	if a.ID == "" || b.ID == "" {
		t.Fatal("NewItem() produced empty IDs")
	}
	if a.ID == b.ID {
		t.Errorf("NewItem() reused ID %q", a.ID)
	}
	if a.Key() != b.Key() {
		t.Errorf("items with same kind and source have different keys: %v vs %v", a.Key(), b.Key())
	}

	meta["team"] = "changed"
	if a.Metadata["team"] != "core" {
		t.Error("NewItem() shares the caller's metadata map")
	}
}

func TestResolve_URLVerbatim(t *testing.T) {
	item := NewItem(KindURL, "https://example.com/board?tab=1", 0, nil)
	if got := item.Resolve(); got != "https://example.com/board?tab=1" {
		t.Errorf("Resolve() = %q, want source verbatim", got)
	}
}

func TestResolve_HTMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dashboard.html")
	if err := os.WriteFile(path, []byte("<h1>hi</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}

	item := NewItem(KindHTML, path, 0, nil)
	if got := item.Resolve(); got != "file://"+path {
		t.Errorf("Resolve() = %q, want %q", got, "file://"+path)
	}
}

func TestResolve_HTMLFileTildeExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.WriteFile(filepath.Join(home, "page.html"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	item := NewItem(KindHTML, "~/page.html", 0, nil)
	want := "file://" + filepath.Join(home, "page.html")
	if got := item.Resolve(); got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolve_ImageWrapsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "floorplan.png")
	if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644); err != nil {
		t.Fatal(err)
	}

	got := NewItem(KindImage, path, 0, nil).Resolve()
	if !strings.HasPrefix(got, "data:text/html;charset=utf-8,") {
		t.Fatalf("Resolve() = %q, want data: target", got)
	}
	if !strings.Contains(got, path) {
		t.Errorf("Resolve() does not reference the image path %q", path)
	}
	if !strings.Contains(got, "object-fit:contain") {
		t.Errorf("Resolve() missing aspect-fit styling: %q", got)
	}
}

func TestResolve_MissingImageDegradesToError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.png")

	got := NewItem(KindImage, path, 0, nil).Resolve()
	if !strings.HasPrefix(got, "data:text/html;charset=utf-8,") {
		t.Fatalf("Resolve() = %q, want data: target", got)
	}
	if !strings.Contains(got, "Error:") {
		t.Errorf("Resolve() for missing file is not an error page: %q", got)
	}
	if !strings.Contains(got, path) {
		t.Errorf("Resolve() error page does not contain the missing path %q: %q", path, got)
	}
}

func TestResolve_MissingVideoDegradesToError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.mp4")

	got := NewItem(KindVideo, path, 0, nil).Resolve()
	if !strings.Contains(got, "Error:") || !strings.Contains(got, path) {
		t.Errorf("Resolve() = %q, want error page naming %q", got, path)
	}
}

func TestResolve_VideoAttributes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loop.mp4")
	if err := os.WriteFile(path, []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := NewItem(KindVideo, path, 0, nil).Resolve()
	for _, attr := range []string{"autoplay", "muted", "loop", "playsinline"} {
		if !strings.Contains(got, attr) {
			t.Errorf("Resolve() missing video attribute %q: %q", attr, got)
		}
	}
}

func TestResolve_ErrorEscapesMarkup(t *testing.T) {
	got := NewItem(KindError, "<script>alert(1)</script>", 0, nil).Resolve()
	if strings.Contains(got, "<script>") {
		t.Errorf("Resolve() leaked raw markup: %q", got)
	}
	if !strings.Contains(got, "Error:") {
		t.Errorf("Resolve() missing error marker: %q", got)
	}
}

func TestResolve_UnknownKindDegradesToError(t *testing.T) {
	item := Item{ID: "x", Kind: Kind("sound"), Source: "beep.wav"}
	got := item.Resolve()
	if !strings.Contains(got, "Error:") {
		t.Errorf("Resolve() = %q, want error page for unknown kind", got)
	}
}
