package display

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"reflect"
	"runtime"
	"slices"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPlanSync(t *testing.T) {
	tests := []struct {
		name     string
		recorded []string
		desired  []string
		grow     int
		shrink   int
		navigate []int
	}{
		{
			name:     "initial sync navigates everything",
			desired:  []string{"a", "b"},
			grow:     2,
			navigate: []int{0, 1},
		},
		{
			name:     "unchanged targets navigate nothing",
			recorded: []string{"a", "b"},
			desired:  []string{"a", "b"},
		},
		{
			name:     "single changed position",
			recorded: []string{"a", "b"},
			desired:  []string{"a", "c"},
			navigate: []int{1},
		},
		{
			name:     "growing list navigates new tail",
			recorded: []string{"a"},
			desired:  []string{"a", "b", "c"},
			grow:     2,
			navigate: []int{1, 2},
		},
		{
			name:     "shrinking list keeps surviving pages",
			recorded: []string{"a", "b", "c"},
			desired:  []string{"a"},
			shrink:   2,
		},
		{
			name:     "shrink and change together",
			recorded: []string{"a", "b", "c"},
			desired:  []string{"b"},
			shrink:   2,
			navigate: []int{0},
		},
		{
			name:     "empty desired closes everything",
			recorded: []string{"a"},
			desired:  nil,
			shrink:   1,
		},
		{
			name:     "failed navigation is retried",
			recorded: []string{"a", ""},
			desired:  []string{"a", "b"},
			navigate: []int{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := planSync(tt.recorded, tt.desired)
			if plan.grow != tt.grow {
				t.Errorf("grow = %d, want %d", plan.grow, tt.grow)
			}
			if plan.shrink != tt.shrink {
				t.Errorf("shrink = %d, want %d", plan.shrink, tt.shrink)
			}
			if !reflect.DeepEqual(plan.navigate, tt.navigate) {
				t.Errorf("navigate = %v, want %v", plan.navigate, tt.navigate)
			}
		})
	}
}

func TestClampIndex(t *testing.T) {
	tests := []struct {
		index  int
		length int
		want   int
	}{
		{0, 3, 0},
		{2, 3, 2},
		{3, 3, 2},
		{7, 3, 2},
		{-1, 3, 0},
		{0, 1, 0},
	}

	for _, tt := range tests {
		if got := clampIndex(tt.index, tt.length); got != tt.want {
			t.Errorf("clampIndex(%d, %d) = %d, want %d", tt.index, tt.length, got, tt.want)
		}
	}
}

func TestNewSelectsEngine(t *testing.T) {
	tests := []struct {
		engine  string
		want    string
		wantErr bool
	}{
		{engine: "", want: "playwright"},
		{engine: "playwright", want: "playwright"},
		{engine: "cdp", want: "cdp"},
		{engine: "webkit", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("engine="+tt.engine, func(t *testing.T) {
			surface, err := New(Params{Engine: tt.engine}, discardLogger())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for unknown engine")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			switch tt.want {
			case "playwright":
				if _, ok := surface.(*playwrightSurface); !ok {
					t.Fatalf("surface type = %T, want *playwrightSurface", surface)
				}
			case "cdp":
				if _, ok := surface.(*cdpSurface); !ok {
					t.Fatalf("surface type = %T, want *cdpSurface", surface)
				}
			}
		})
	}
}

func TestKioskArgs(t *testing.T) {
	linux := kioskArgs("linux")
	if linux[0] != "--kiosk" {
		t.Errorf("linux args start with %q, want --kiosk", linux[0])
	}

	darwin := kioskArgs("darwin")
	if slices.Contains(darwin, "--kiosk") {
		t.Error("darwin args should not contain --kiosk")
	}
	if !slices.Contains(darwin, "--start-maximized") {
		t.Error("darwin args missing --start-maximized")
	}

	for _, goos := range []string{"linux", "darwin", "windows"} {
		args := kioskArgs(goos)
		if !slices.Contains(args, "--autoplay-policy=no-user-gesture-required") {
			t.Errorf("%s args missing autoplay policy: %v", goos, args)
		}
		if !slices.Contains(args, "--disable-infobars") {
			t.Errorf("%s args missing --disable-infobars: %v", goos, args)
		}
	}
}

func TestPrepareScreen(t *testing.T) {
	record := func(calls *[][]string, fail bool) runner {
		return func(_ context.Context, name string, args ...string) error {
			*calls = append(*calls, append([]string{name}, args...))
			if fail {
				return errors.New("exec failed")
			}
			return nil
		}
	}

	t.Run("rotation adds xrandr", func(t *testing.T) {
		t.Setenv("DISPLAY", "")
		var calls [][]string
		prepareScreen(context.Background(), "linux", Params{Screen: ":0", Rotation: "left"}, record(&calls, false), discardLogger())

		want := [][]string{
			{"xset", "-dpms"},
			{"xset", "s", "off"},
			{"xset", "s", "noblank"},
			{"xrandr", "--output", "HDMI-1", "--rotate", "left"},
		}
		if !reflect.DeepEqual(calls, want) {
			t.Errorf("commands = %v, want %v", calls, want)
		}
		if got := os.Getenv("DISPLAY"); got != ":0" {
			t.Errorf("DISPLAY = %q, want :0", got)
		}
	})

	t.Run("no rotation skips xrandr", func(t *testing.T) {
		t.Setenv("DISPLAY", "")
		var calls [][]string
		prepareScreen(context.Background(), "linux", Params{Screen: ":0"}, record(&calls, false), discardLogger())

		if len(calls) != 3 {
			t.Fatalf("got %d commands, want 3: %v", len(calls), calls)
		}
		for _, cmd := range calls {
			if cmd[0] == "xrandr" {
				t.Errorf("unexpected xrandr call: %v", cmd)
			}
		}
	})

	t.Run("command failures are ignored", func(t *testing.T) {
		t.Setenv("DISPLAY", "")
		var calls [][]string
		prepareScreen(context.Background(), "linux", Params{Screen: ":0", Rotation: "inverted"}, record(&calls, true), discardLogger())

		if len(calls) != 4 {
			t.Fatalf("got %d commands, want all 4 despite failures", len(calls))
		}
	})

	t.Run("non-linux is a no-op", func(t *testing.T) {
		t.Setenv("DISPLAY", "unchanged")
		var calls [][]string
		prepareScreen(context.Background(), "darwin", Params{Screen: ":0", Rotation: "left"}, record(&calls, false), discardLogger())

		if len(calls) != 0 {
			t.Errorf("got %d commands, want none", len(calls))
		}
		if got := os.Getenv("DISPLAY"); got != "unchanged" {
			t.Errorf("DISPLAY = %q, want unchanged", got)
		}
	})
}

func TestCDPFlagsParseValues(t *testing.T) {
	// The flag set is opaque, but the translation must at least produce one
	// option per kiosk argument plus the headless override.
	args := kioskArgs(runtime.GOOS)
	opts := cdpFlags()
	if len(opts) != len(args)+1 {
		t.Errorf("got %d options, want %d", len(opts), len(args)+1)
	}
	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			t.Errorf("argument %q missing -- prefix", arg)
		}
	}
}
