//go:build !unix

package amber

import "os/exec"

// killProcessGroupOnCancel keeps exec's default: kill the direct child only.
func killProcessGroupOnCancel(cmd *exec.Cmd) {}
