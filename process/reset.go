package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ResetScript runs the Node.js script that wipes and reseeds the database.
type ResetScript struct {
	root string
	node string
}

// NewResetScript locates src/scripts/reset-db.cjs under root. An empty root
// means the directory of the running executable; an empty node means "node"
// from PATH.
func NewResetScript(root, node string) (*ResetScript, error) {
	if root == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("Could not get executable path: %w", err)
		}
		root = filepath.Dir(exe)
	}
	if node == "" {
		node = defaultNode(runtime.GOOS)
	}
	return &ResetScript{root: root, node: node}, nil
}

func defaultNode(goos string) string {
	if goos == "windows" {
		return "node.exe"
	}
	return "node"
}

// Path returns the location of the script.
func (s *ResetScript) Path() string {
	return filepath.Join(s.root, "src", "scripts", "reset-db.cjs")
}

// Run executes the script with the project root as working directory and
// returns its standard output.
func (s *ResetScript) Run(ctx context.Context) (string, error) {
	script := s.Path()
	if _, err := os.Stat(script); err != nil {
		return "", fmt.Errorf("Script not found at: %s", script)
	}

	cmd := exec.CommandContext(ctx, s.node, script)
	cmd.Dir = s.root
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("Script execution failed: %s", exitErr.Stderr)
		}
		return "", fmt.Errorf("Failed to execute script: %w. Make sure Node.js is installed and in PATH.", err)
	}
	return string(out), nil
}
