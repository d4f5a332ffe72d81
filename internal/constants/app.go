// Package constants holds shared tuning values for aiv-upload.
package constants

import (
	"time"
)

// Submission settings
const (
	// DefaultUploadWorkers - folders uploaded concurrently in one round
	DefaultUploadWorkers = 4

	// MaxUploadWorkers - upper bound accepted from flags/config
	MaxUploadWorkers = 32

	// CollectWorkers - concurrent file resolutions per directory during collection
	CollectWorkers = 8

	// DirectoryReadBatch - entries requested per ReadEntries call on local directories.
	// A single read never returns the whole directory; callers must poll until empty.
	DirectoryReadBatch = 100

	// UploadTimeout - per-folder request timeout against the backend
	UploadTimeout = 30 * time.Minute
)

// Display settings
const (
	// MaxDisplayGroups - subfolder groups listed per folder before "...and N more"
	MaxDisplayGroups = 5

	// MaxFilesPerGroup - files listed per subfolder group before "...and N more"
	MaxFilesPerGroup = 3

	// Modal sizing for the Upload Status box
	ModalBaseHeight    = 200
	ModalLineHeight    = 20
	ModalMaxHeight     = 400
	ModalCharsPerLine  = 40
	ModalMinLineBudget = 1
)

// Backend defaults
const (
	// DefaultAPIBaseURL - AI Verify API gateway on a local install
	DefaultAPIBaseURL = "http://localhost:4000"

	// DatasetUploadPath / ModelUploadPath - folder upload endpoints
	DatasetUploadPath = "/test_datasets/upload_folder"
	ModelUploadPath   = "/test_models/upload_folder"

	// APIRatePerSec / APIBurstCapacity - client-side throttle for the gateway
	APIRatePerSec    = 5.0
	APIBurstCapacity = 20.0
)

// Event bus buffer sizes
const (
	// EventBusDefaultBuffer - default buffer size for event channels (1000)
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for high-throughput scenarios (5000)
	EventBusMaxBuffer = 5000
)

// HTTP client tuning
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// ProxyWarmupTimeout - upper bound for the proxy warmup request
	ProxyWarmupTimeout = 15 * time.Second
)
