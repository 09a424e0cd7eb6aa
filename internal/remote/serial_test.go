package remote

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func noPersist(t *testing.T) func() (string, error) {
	return func() (string, error) {
		t.Fatal("persisted serial should not be used")
		return "", nil
	}
}

func TestSerialFromCPUInfo(t *testing.T) {
	dir := t.TempDir()
	cpuinfo := writeFile(t, dir, "cpuinfo", `processor	: 0
model name	: ARMv7 Processor rev 4 (v7l)
Hardware	: BCM2835
Serial		: 00000000abcdef01
Model		: Raspberry Pi 3 Model B Rev 1.2
`)

	got, err := serialFrom(cpuinfo, filepath.Join(dir, "missing"), noPersist(t))
	if err != nil {
		t.Fatalf("serialFrom() error = %v", err)
	}
	if got != "00000000abcdef01" {
		t.Errorf("serial = %q, want 00000000abcdef01", got)
	}
}

func TestSerialFallsBackToMachineID(t *testing.T) {
	dir := t.TempDir()
	cpuinfo := writeFile(t, dir, "cpuinfo", "processor\t: 0\nmodel name\t: Intel\n")
	machineID := writeFile(t, dir, "machine-id", "3f1c9a2b8d7e4f60a1b2c3d4e5f60718\n")

	got, err := serialFrom(cpuinfo, machineID, noPersist(t))
	if err != nil {
		t.Fatalf("serialFrom() error = %v", err)
	}
	if got != "3f1c9a2b8d7e4f60a1b2c3d4e5f60718" {
		t.Errorf("serial = %q, want machine id", got)
	}
}

func TestSerialPersistsGeneratedID(t *testing.T) {
	dir := t.TempDir()
	persistPath := func() (string, error) {
		return filepath.Join(dir, "cache", "serial"), nil
	}

	first, err := serialFrom(filepath.Join(dir, "no-cpuinfo"), filepath.Join(dir, "no-machine-id"), persistPath)
	if err != nil {
		t.Fatalf("serialFrom() error = %v", err)
	}
	if first == "" {
		t.Fatal("expected a generated serial")
	}

	second, err := serialFrom(filepath.Join(dir, "no-cpuinfo"), filepath.Join(dir, "no-machine-id"), persistPath)
	if err != nil {
		t.Fatalf("serialFrom() second call error = %v", err)
	}
	if second != first {
		t.Errorf("generated serial not stable: %q then %q", first, second)
	}
}
