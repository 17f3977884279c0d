package installer

import "fmt"

// InstallUnavailable means no installer method could even be attempted
// (e.g. every candidate method's availability probe failed).
type InstallUnavailable struct {
	Provider string
}

func (e *InstallUnavailable) Error() string {
	return fmt.Sprintf("install %q: no installer method available", e.Provider)
}

// InstallTimeout means the install subprocess did not finish within its
// deadline (spec §4.4 "Timeout (default 5 minutes)").
type InstallTimeout struct {
	Provider string
	Method   string
}

func (e *InstallTimeout) Error() string {
	return fmt.Sprintf("install %q via %s: timed out", e.Provider, e.Method)
}

// InstallFailed means the install subprocess ran and exited non-zero.
type InstallFailed struct {
	Provider string
	Method   string
	ExitCode int
	Stderr   string
}

func (e *InstallFailed) Error() string {
	return fmt.Sprintf("install %q via %s: exit %d: %s", e.Provider, e.Method, e.ExitCode, e.Stderr)
}

// NoCandidates means candidate generation produced nothing for the
// requested capabilities.
type NoCandidates struct {
	Capabilities []string
}

func (e *NoCandidates) Error() string {
	return fmt.Sprintf("no install candidates for capabilities %v", e.Capabilities)
}
