// Package version reports build metadata set through -ldflags
package version

// BuildInfo holds version information about the service build
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information
func Info() BuildInfo {
	// -ldflags "-X 'watchtower/internal/core/version.version=v0.1.0' -X 'watchtower/internal/core/version.commit=abcd'"
	return BuildInfo{
		Service: Service,
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// Service is the process name reported by meta endpoints and the user agent
const Service = "watchtower"

// UserAgent is sent on outbound HTTP calls
func UserAgent() string { return Service + "/" + version }

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
