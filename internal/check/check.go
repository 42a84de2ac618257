// Package check verifies that an admin server is reachable and answers on
// each well-known destination.
package check

import (
	"context"
	"net"

	"github.com/dukerupert/certadmin/internal/admin"
	"github.com/dukerupert/certadmin/internal/nvpair"
	"go.uber.org/zap"
)

// Status represents the outcome of a check.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	StatusWarn Status = "WARN"
	StatusSkip Status = "SKIP"
)

// LookupFunc resolves a host name to addresses.
type LookupFunc func(ctx context.Context, host string) ([]string, error)

// Resolution holds the host lookup details.
type Resolution struct {
	Host   string
	Addrs  []string
	Status Status
	Error  string
}

// Probe is the result of an empty read against one destination.
type Probe struct {
	Destination admin.Destination
	Scope       admin.Scope
	Status      Status
	Error       string
}

// Result is the full structured result of a connection check.
type Result struct {
	Resolution Resolution
	Probes     []Probe
	Summary    Status
}

// probeScopes picks a scope every server exposes for each destination.
var probeScopes = map[admin.Destination]admin.Scope{
	admin.DestLog: admin.ScopeSystemLog,
}

func probeScope(dest admin.Destination) admin.Scope {
	if s, ok := probeScopes[dest]; ok {
		return s
	}
	return admin.ScopeGeneral
}

// Check resolves host, then probes every destination through client. A nil
// lookup uses the system resolver.
func Check(ctx context.Context, client *admin.Client, host string, lookup LookupFunc, logger *zap.Logger) *Result {
	if lookup == nil {
		lookup = net.DefaultResolver.LookupHost
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	result := &Result{Resolution: resolve(ctx, host, lookup)}
	logger.Debug("resolved admin host",
		zap.String("host", host),
		zap.Strings("addrs", result.Resolution.Addrs),
		zap.String("status", string(result.Resolution.Status)))

	for _, dest := range admin.Destinations {
		p := Probe{Destination: dest, Scope: probeScope(dest)}
		if result.Resolution.Status == StatusFail {
			p.Status = StatusSkip
			result.Probes = append(result.Probes, p)
			continue
		}
		p.Status, p.Error = probe(ctx, client, p.Destination, p.Scope)
		result.Probes = append(result.Probes, p)
	}

	result.Summary = computeSummary(result)
	return result
}

// resolve looks up host. IP literals are not looked up.
func resolve(ctx context.Context, host string, lookup LookupFunc) Resolution {
	r := Resolution{Host: host}
	if net.ParseIP(host) != nil {
		r.Addrs = []string{host}
		r.Status = StatusSkip
		return r
	}

	addrs, err := lookup(ctx, host)
	if err != nil {
		r.Status = StatusFail
		r.Error = err.Error()
		return r
	}
	r.Addrs = addrs
	r.Status = StatusPass
	return r
}

// probe sends a read with no names. A protocol error means the server
// answered but refused the destination; anything else means it did not.
func probe(ctx context.Context, client *admin.Client, dest admin.Destination, scope admin.Scope) (Status, string) {
	_, err := client.Read(ctx, dest, scope, admin.RequestConfig, nvpair.New())
	switch {
	case err == nil:
		return StatusPass, ""
	case admin.IsProtocol(err):
		return StatusWarn, err.Error()
	default:
		return StatusFail, err.Error()
	}
}

// computeSummary derives the overall status from individual check results.
func computeSummary(r *Result) Status {
	if r.Resolution.Status == StatusFail {
		return StatusFail
	}
	summary := StatusPass
	for _, p := range r.Probes {
		switch p.Status {
		case StatusFail:
			return StatusFail
		case StatusWarn:
			summary = StatusWarn
		}
	}
	return summary
}
