// Package resolve defines the resolver driver abstraction: the contract
// the core consumes for host/service name lookup. The implementation is
// external (DNS, /etc/hosts, mDNS, a test double); this package is
// interface-only, grounded on the teacher's internal/interfaces package,
// which is kept separate from concrete types for exactly the same reason:
// avoiding an import cycle between the core and its pluggable drivers.
package resolve

import "context"

// Family selects which address families a lookup should return.
type Family int

const (
	FamilyUnspecified Family = iota
	FamilyIPv4
	FamilyIPv6
)

// Address is a resolved numeric address (4 or 16 bytes) plus an optional
// IPv6 zone/scope id.
type Address struct {
	IP    []byte
	Zone  string
	IsV6  bool
}

// Driver is the contract a resolver implementation must satisfy.
type Driver interface {
	// LookupHost resolves host to zero or more addresses.
	LookupHost(ctx context.Context, host string, family Family) ([]Address, error)
	// LookupService resolves a service name (e.g. "https") to a port
	// number for the given protocol ("tcp" or "udp").
	LookupService(ctx context.Context, service, proto string) (port int, err error)
	// Name identifies this driver for registry/diagnostics purposes.
	Name() string
}
