// Package module defines the minimal contract for a modkit module
package module

import (
	phttp "watchtower/internal/platform/net/http"
)

// Module is what main composes: routes, ports and a name
// it lives apart from modkit so a module package can import it without cycles
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}
