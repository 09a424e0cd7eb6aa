package display

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// xrandrOutput is the connector the rotation is applied to.
const xrandrOutput = "HDMI-1"

// runner executes an OS command. Injected so tests can record calls.
type runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// prepareScreen points the browser at the configured X display, disables
// blanking and power management, and applies the panel rotation. Failures
// are logged and ignored.
func prepareScreen(ctx context.Context, goos string, params Params, run runner, logger *slog.Logger) {
	if goos != "linux" {
		return
	}

	os.Setenv("DISPLAY", params.Screen)

	commands := [][]string{
		{"xset", "-dpms"},
		{"xset", "s", "off"},
		{"xset", "s", "noblank"},
	}
	if params.Rotation != "" {
		commands = append(commands, []string{"xrandr", "--output", xrandrOutput, "--rotate", params.Rotation})
	}

	for _, cmd := range commands {
		if err := run(ctx, cmd[0], cmd[1:]...); err != nil {
			logger.Warn("screen setup command failed", "cmd", strings.Join(cmd, " "), "error", err)
		}
	}
}

// kioskArgs are the Chromium flags for an unattended full-screen session.
func kioskArgs(goos string) []string {
	args := []string{
		"--disable-infobars",
		"--noerrdialogs",
		"--autoplay-policy=no-user-gesture-required",
	}
	switch goos {
	case "linux":
		return append([]string{"--kiosk"}, args...)
	case "darwin":
		return append([]string{
			"--start-maximized",
			"--disable-session-crashed-bubble",
			"--disable-features=TranslateUI",
		}, args...)
	default:
		return args
	}
}
