package executor

import "os/exec"

// LookPath reports whether a binary is resolvable on PATH. Collectors and
// runners use it to degrade gracefully when a tool is not installed.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
