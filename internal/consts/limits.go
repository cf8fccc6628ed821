package consts

import "time"

// Buffer sizes
const (
	// BufferSize4KB is the read size used for terminal output chunks
	BufferSize4KB = 4 * 1024
	// BufferSize64KB is 64 kilobytes
	BufferSize64KB = 64 * 1024
	// BufferSize1MB is 1 megabyte
	BufferSize1MB = 1024 * 1024
)

// MaxErrorBodyBytes bounds how much of a backend error body is carried in
// error messages.
const MaxErrorBodyBytes = 512

// Per-attempt deadlines for provider adapters
const (
	// LocalDaemonTimeout bounds one generate call against the local daemon
	LocalDaemonTimeout = 15 * time.Second
	// CloudTimeout is the default bound for key-based cloud adapters
	CloudTimeout = 25 * time.Second
	// MinstrelTimeout is the bound for the Minstrel adapter
	MinstrelTimeout = 30 * time.Second
	// CLITimeout bounds one invocation of a CLI-backed adapter
	CLITimeout = 60 * time.Second
	// RemoteKeyTimeout bounds one remote credential fetch
	RemoteKeyTimeout = 10 * time.Second
)

// Local daemon management
const (
	// DaemonProbeTimeout bounds a single liveness probe
	DaemonProbeTimeout = 3 * time.Second
	// DaemonModelsTimeout bounds listing installed models
	DaemonModelsTimeout = 5 * time.Second
	// DaemonStartRetries is how many probes follow a start attempt
	DaemonStartRetries = 10
	// DaemonBackoffStep is the linear backoff step between probes
	DaemonBackoffStep = 500 * time.Millisecond
	// DaemonBackoffMax caps the wait between probes
	DaemonBackoffMax = 5 * time.Second
)

// Background job intervals
const (
	// HealthProbeInterval is how often the daemon liveness job runs
	HealthProbeInterval = 30 * time.Second
	// KeyPrefetchInterval is how often remote keys are refreshed
	KeyPrefetchInterval = 15 * time.Minute
)

// Terminal
const (
	// DefaultSubscriberBuffer is the per-subscriber chunk backlog
	DefaultSubscriberBuffer = 256
	// DefaultPTYRows is the initial terminal height
	DefaultPTYRows = 40
	// DefaultPTYCols is the initial terminal width
	DefaultPTYCols = 120
)
