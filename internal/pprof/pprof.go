// Package pprof exposes runtime profiles for the long-running bridge: HTTP
// routes under /debug/pprof and an optional CPU profile written on stop.
package pprof

import (
	"fmt"
	"net/http"
	netpprof "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sync"

	"github.com/julienschmidt/httprouter"
)

// Register mounts the profiling handlers on router.
func Register(router *httprouter.Router) {
	router.GET("/debug/pprof/*item", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		switch ps.ByName("item") {
		case "/cmdline":
			netpprof.Cmdline(w, r)
		case "/profile":
			netpprof.Profile(w, r)
		case "/symbol":
			netpprof.Symbol(w, r)
		case "/trace":
			netpprof.Trace(w, r)
		default:
			// Index lists profiles and serves named ones (heap, goroutine, ...).
			netpprof.Index(w, r)
		}
	})
}

// CPUProfile records a CPU profile to a file until Stop.
type CPUProfile struct {
	mu   sync.Mutex
	file *os.File
}

// StartCPUProfile begins profiling into path.
func StartCPUProfile(path string) (*CPUProfile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for CPU profile: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create CPU profile file: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to start CPU profiling: %w", err)
	}
	return &CPUProfile{file: f}, nil
}

// Stop flushes the profile. Safe to call more than once.
func (p *CPUProfile) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return nil
	}
	pprof.StopCPUProfile()
	err := p.file.Close()
	p.file = nil
	if err != nil {
		return fmt.Errorf("failed to close CPU profile: %w", err)
	}
	return nil
}
