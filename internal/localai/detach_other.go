//go:build !unix

package localai

import "os/exec"

func detach(cmd *exec.Cmd) {}
