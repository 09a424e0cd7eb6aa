package remote

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Serial returns the stable device identity the hub keys players by. On a
// Raspberry Pi this is the SoC serial from /proc/cpuinfo; elsewhere it falls
// back to the machine id, and finally to a random id persisted under the
// user cache dir.
func Serial() (string, error) {
	return serialFrom("/proc/cpuinfo", "/etc/machine-id", persistedSerialPath)
}

func serialFrom(cpuinfoPath, machineIDPath string, persistPath func() (string, error)) (string, error) {
	if s := cpuinfoSerial(cpuinfoPath); s != "" {
		return s, nil
	}
	if b, err := os.ReadFile(machineIDPath); err == nil {
		if s := strings.TrimSpace(string(b)); s != "" {
			return s, nil
		}
	}
	return persistedSerial(persistPath)
}

// cpuinfoSerial extracts the "Serial" field, present on Raspberry Pi boards.
func cpuinfoSerial(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), ":")
		if found && strings.TrimSpace(key) == "Serial" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func persistedSerialPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate cache dir: %w", err)
	}
	return filepath.Join(dir, "marquee", "serial"), nil
}

func persistedSerial(persistPath func() (string, error)) (string, error) {
	path, err := persistPath()
	if err != nil {
		return "", err
	}
	if b, err := os.ReadFile(path); err == nil {
		if s := strings.TrimSpace(string(b)); s != "" {
			return s, nil
		}
	}

	serial := uuid.New().String()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to persist device serial: %w", err)
	}
	if err := os.WriteFile(path, []byte(serial+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to persist device serial: %w", err)
	}
	return serial, nil
}
