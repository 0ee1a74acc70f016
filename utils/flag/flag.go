/*
flag Package set up cli flags shared across services

Usage:

	Flags listed in this package are shared across boundaries and service-agnostic
	For service dependent flags please define in their respective package
*/
package flag

import (
	"flag"
)

const (
	CoreServer = "core_server"
)

var (
	IsDevelopment = flag.Bool("dev", true, "set to true if the current run is for development. default value is true")
	ServiceName   = flag.String("service", CoreServer, "name of the running service, used in log fields")
)

// ParseFlags must be called in main after all flags are defined. Tests rely
// on the package defaults and never call it.
func ParseFlags() {
	flag.Parse()
}
