package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marqueehq/marquee/internal/content"
)

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "marquee.yaml", `
content:
  - source: https://example.com/board
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Display.Screen != ":0" {
		t.Errorf("screen = %q, want %q", cfg.Display.Screen, ":0")
	}
	if cfg.Display.Width != 1920 || cfg.Display.Height != 1080 {
		t.Errorf("geometry = %dx%d, want 1920x1080", cfg.Display.Width, cfg.Display.Height)
	}
	if cfg.Display.Engine != EnginePlaywright {
		t.Errorf("engine = %q, want %q", cfg.Display.Engine, EnginePlaywright)
	}
	if cfg.Behavior.RotationInterval != 30 {
		t.Errorf("rotation_interval = %d, want 30", cfg.Behavior.RotationInterval)
	}
	if cfg.Behavior.RefreshInterval != 0 {
		t.Errorf("refresh_interval = %d, want 0 (disabled)", cfg.Behavior.RefreshInterval)
	}
	if cfg.Behavior.Watch != WatchPoll {
		t.Errorf("watch = %q, want %q", cfg.Behavior.Watch, WatchPoll)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v, want info/json", cfg.Logging)
	}
}

func TestLoadEmptyFileIsDefaultsOnly(t *testing.T) {
	path := writeConfig(t, "marquee.yaml", " ")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Items()) != 0 {
		t.Errorf("Items() = %v, want empty playlist", cfg.Items())
	}
	if cfg.Behavior.RotationInterval != 30 {
		t.Errorf("rotation_interval = %d, want default 30", cfg.Behavior.RotationInterval)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load() succeeded for a missing file")
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, "marquee.yaml", `
display:
  screen: ":1"
  width: 1280
  height: 720
  rotation: left
  engine: cdp
behavior:
  rotation_interval: 15
  refresh_interval: 3600
  watch: notify
schedule:
  on_time: "07:30"
  off_time: "22:00"
remote:
  url: https://hub.example.com
  name: lobby-east
  poll_interval: 120
metrics:
  enabled: true
content:
  - type: url
    source: https://example.com/grafana
    duration: 10
    metadata:
      team: core
  - type: image
    source: /srv/kiosk/map.png
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Display.Rotation != "left" || cfg.Display.Engine != EngineCDP {
		t.Errorf("display = %+v", cfg.Display)
	}
	if cfg.Behavior.RefreshInterval != 3600 {
		t.Errorf("refresh_interval = %d, want 3600", cfg.Behavior.RefreshInterval)
	}
	if cfg.Schedule.OnTime != "07:30" || cfg.Schedule.OffTime != "22:00" {
		t.Errorf("schedule = %+v", cfg.Schedule)
	}
	if cfg.Remote.URL != "https://hub.example.com" || cfg.Remote.PollInterval != 120 {
		t.Errorf("remote = %+v", cfg.Remote)
	}

	items := cfg.Items()
	if len(items) != 2 {
		t.Fatalf("Items() returned %d items, want 2", len(items))
	}
	if items[0].Kind != content.KindURL || items[0].Duration != 10 {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[0].Metadata["team"] != "core" {
		t.Errorf("items[0] metadata = %v, want team=core round-tripped", items[0].Metadata)
	}
	if items[1].Kind != content.KindImage || items[1].Duration != 0 {
		t.Errorf("items[1] = %+v", items[1])
	}
}

func TestLoadLegacyURLsKey(t *testing.T) {
	path := writeConfig(t, "marquee.yaml", `
urls:
  - https://example.com/a
  - https://example.com/b
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	items := cfg.Items()
	if len(items) != 2 {
		t.Fatalf("Items() returned %d items, want 2", len(items))
	}
	for i, want := range []string{"https://example.com/a", "https://example.com/b"} {
		if items[i].Kind != content.KindURL || items[i].Source != want {
			t.Errorf("items[%d] = %+v, want url %q", i, items[i], want)
		}
	}
}

func TestLoadContentWinsOverLegacyURLs(t *testing.T) {
	path := writeConfig(t, "marquee.yaml", `
urls:
  - https://legacy.example.com
content:
  - source: https://modern.example.com
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	items := cfg.Items()
	if len(items) != 1 || items[0].Source != "https://modern.example.com" {
		t.Errorf("Items() = %v, want only the content entry", items)
	}
}

func TestLoadUnknownTypeFallsBackToURL(t *testing.T) {
	path := writeConfig(t, "marquee.yaml", `
content:
  - type: webpage
    source: https://example.com
  - source: https://example.org
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for i, item := range cfg.Items() {
		if item.Kind != content.KindURL {
			t.Errorf("items[%d].Kind = %q, want %q", i, item.Kind, content.KindURL)
		}
	}
}

func TestLoadItemsGetFreshIDsPerLoad(t *testing.T) {
	path := writeConfig(t, "marquee.yaml", `
content:
  - source: https://example.com
`)

	first, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	second, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	a, b := first.Items()[0], second.Items()[0]
	if a.ID == b.ID {
		t.Errorf("both loads produced ID %q, want fresh IDs", a.ID)
	}
	if a.Key() != b.Key() {
		t.Errorf("keys differ across loads: %v vs %v", a.Key(), b.Key())
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("BOARD_HOST", "boards.internal")
	path := writeConfig(t, "marquee.yaml", `
content:
  - source: https://${BOARD_HOST}/status
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.Items()[0].Source; got != "https://boards.internal/status" {
		t.Errorf("source = %q, want env-expanded", got)
	}
}

func TestLoadValidates(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantPart string
	}{
		{
			name: "negative width",
			yaml: `
display:
  width: -1
`,
			wantPart: "width",
		},
		{
			name: "unknown rotation",
			yaml: `
display:
  rotation: upside-down
`,
			wantPart: "rotation",
		},
		{
			name: "unknown engine",
			yaml: `
display:
  engine: webkit
`,
			wantPart: "engine",
		},
		{
			name: "negative rotation interval",
			yaml: `
behavior:
  rotation_interval: -5
`,
			wantPart: "rotation_interval",
		},
		{
			name: "negative refresh interval",
			yaml: `
behavior:
  refresh_interval: -1
`,
			wantPart: "refresh_interval",
		},
		{
			name: "unknown watch mode",
			yaml: `
behavior:
  watch: inotify
`,
			wantPart: "watch",
		},
		{
			name: "explicit zero duration",
			yaml: `
content:
  - source: https://example.com
    duration: 0
`,
			wantPart: "duration",
		},
		{
			name: "negative duration",
			yaml: `
content:
  - source: https://example.com
    duration: -10
`,
			wantPart: "duration",
		},
		{
			name: "missing source",
			yaml: `
content:
  - type: url
`,
			wantPart: "source",
		},
		{
			name: "bad schedule time",
			yaml: `
schedule:
  on_time: "25:99"
`,
			wantPart: "on_time",
		},
		{
			name: "bad remote url",
			yaml: `
remote:
  url: "not a url"
`,
			wantPart: "remote",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "marquee.yaml", tt.yaml)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() succeeded, want validation error")
			}
			if !strings.Contains(err.Error(), tt.wantPart) {
				t.Errorf("error %q does not mention %q", err, tt.wantPart)
			}
		})
	}
}

func TestLoadJSON5ByExtension(t *testing.T) {
	path := writeConfig(t, "marquee.json5", `
{
  // playlists can be authored in JSON5 too
  behavior: {rotation_interval: 12},
  content: [
    {source: "https://example.com/board"},
  ],
}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Behavior.RotationInterval != 12 {
		t.Errorf("rotation_interval = %d, want 12", cfg.Behavior.RotationInterval)
	}
	if len(cfg.Items()) != 1 {
		t.Errorf("Items() = %v, want one entry", cfg.Items())
	}
}

func TestJSONSchemaIncludesTopLevelSections(t *testing.T) {
	data, err := JSONSchema()
	if err != nil {
		t.Fatalf("JSONSchema() error = %v", err)
	}
	for _, section := range []string{"display", "behavior", "content", "remote"} {
		if !strings.Contains(string(data), section) {
			t.Errorf("schema missing section %q", section)
		}
	}
}

func TestLoadHubDefaults(t *testing.T) {
	cfg, err := LoadHub("")
	if err != nil {
		t.Fatalf("LoadHub() error = %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("addr = %q, want :8080", cfg.Addr)
	}
	if cfg.DB != "marquee-hub.db" {
		t.Errorf("db = %q, want marquee-hub.db", cfg.DB)
	}
	if cfg.OfflineAfter != 180 {
		t.Errorf("offline_after = %d, want 180", cfg.OfflineAfter)
	}
}

func TestLoadHubFromFile(t *testing.T) {
	path := writeConfig(t, "hub.yaml", `
addr: ":9000"
db: /var/lib/marquee/hub.db
offline_after: 600
`)

	cfg, err := LoadHub(path)
	if err != nil {
		t.Fatalf("LoadHub() error = %v", err)
	}
	if cfg.Addr != ":9000" || cfg.DB != "/var/lib/marquee/hub.db" || cfg.OfflineAfter != 600 {
		t.Errorf("cfg = %+v", cfg)
	}
}
