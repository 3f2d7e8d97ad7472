package modkit

import (
	"watchtower/internal/modkit/module"
)

// Module is the common surface for modules that mount routes and expose ports
type Module = module.Module
