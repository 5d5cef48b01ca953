package version

import "runtime/debug"

// Version is the current module version.
var Version = "0.0.0-dev"

func init() {
	// Look through the binary's dependencies to find the current module version.
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			if dep.Path == "github.com/lattice-rpc/jsonrpc2" {
				Version = dep.Version
			}
		}
	}
}
