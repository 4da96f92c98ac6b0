package gpu

// Prober is an additional pre-flight check that must pass for the capability probe to succeed,
// such as a vendor driver query.
type Prober interface {
	Name() string
	Available() (bool, error)
}

// ProbeCapability reports whether the host exposes hardware acceleration. It has no side effects
// and must be called before any adapter request; a false result means the run stops with
// ErrCapabilityUnsupported rather than attempting acquisition.
func ProbeCapability(host Host, extra ...Prober) bool {
	if host == nil || !host.HasCapability() {
		return false
	}
	for _, p := range extra {
		if ok, err := p.Available(); !ok || err != nil {
			return false
		}
	}
	return true
}
