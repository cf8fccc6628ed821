package router

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// gpuBusyPercent is the utilization above which the GPU counts as busy.
const gpuBusyPercent = 50.0

const gpuProbeTimeout = 2 * time.Second

// Runner runs a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// GPUProbe reports whether a GPU is busy with another workload.
type GPUProbe struct {
	run Runner
}

// NewGPUProbe creates a probe using run, or nvidia-smi via os/exec when run
// is nil.
func NewGPUProbe(run Runner) *GPUProbe {
	if run == nil {
		run = execRunner
	}
	return &GPUProbe{run: run}
}

// Busy reports whether any GPU is above the busy threshold. A missing tool
// or unparsable output means not busy.
func (p *GPUProbe) Busy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, gpuProbeTimeout)
	defer cancel()

	out, err := p.run(ctx, "nvidia-smi", "--query-gpu=utilization.gpu", "--format=csv,noheader,nounits")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(out), "\n") {
		pct, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if err == nil && pct > gpuBusyPercent {
			return true
		}
	}
	return false
}
