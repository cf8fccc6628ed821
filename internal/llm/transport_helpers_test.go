package llm

import "syscall"

// osSyscallErr unwraps to ECONNREFUSED like a refused dial does.
type osSyscallErr struct{}

func (*osSyscallErr) Error() string { return "connect: connection refused" }
func (*osSyscallErr) Unwrap() error { return syscall.ECONNREFUSED }
