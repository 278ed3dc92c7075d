package lib

import (
	"fmt"
	"os/exec"
	"strings"
)

// checksumTool delegates digest computation to the md5sum utility. Its
// trusted output format is one line, "hash  filename"; only the first
// field is consumed.
type checksumTool struct {
	path string

	lookPath  func(file string) (string, error)
	runOutput func(name string, args ...string) ([]byte, error)
}

func newChecksumTool() *checksumTool {
	return &checksumTool{
		lookPath: exec.LookPath,
		runOutput: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).Output()
		},
	}
}

func (t *checksumTool) available() bool {
	if t.path != "" {
		return true
	}
	resolved, err := t.lookPath("md5sum")
	if err != nil {
		return false
	}
	t.path = resolved
	return true
}

func (t *checksumTool) digestFile(path string) (string, error) {
	if !t.available() {
		return "", fmt.Errorf("md5sum unavailable")
	}
	out, err := t.runOutput(t.path, "-b", path)
	if err != nil {
		return "", fmt.Errorf("run md5sum on %s: %w", path, err)
	}
	return parseChecksumOutput(out)
}

// parseChecksumOutput extracts the hex digest from "hash  filename".
func parseChecksumOutput(out []byte) (string, error) {
	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 2 {
		return "", fmt.Errorf("unexpected md5sum output %q", string(out))
	}
	digest := strings.ToLower(fields[0])
	if len(digest) != 32 {
		return "", fmt.Errorf("unexpected digest %q in md5sum output", fields[0])
	}
	for _, c := range digest {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("unexpected digest %q in md5sum output", fields[0])
		}
	}
	return digest, nil
}
