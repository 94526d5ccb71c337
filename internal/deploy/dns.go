package deploy

import (
	"context"
	"fmt"
	"net"
	"time"
)

// DNSResult is the outcome of a resolution check.
type DNSResult struct {
	Domain     string
	ExpectedIP string
	Resolved   []string
	Match      bool
}

// CheckDNS resolves the domain and compares the A records against the
// expected server IP. An empty expected IP only verifies the domain
// resolves at all.
func CheckDNS(ctx context.Context, domain, expectedIP string) (DNSResult, error) {
	res := DNSResult{Domain: domain, ExpectedIP: expectedIP}
	if domain == "" {
		return res, fmt.Errorf("domain is required")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resolver := &net.Resolver{}
	addrs, err := resolver.LookupHost(ctx, domain)
	if err != nil {
		return res, fmt.Errorf("%s does not resolve: %w", domain, err)
	}
	res.Resolved = addrs
	if expectedIP == "" {
		res.Match = true
		return res, nil
	}
	for _, a := range addrs {
		if a == expectedIP {
			res.Match = true
			return res, nil
		}
	}
	return res, nil
}

// ReportDNS logs the result and returns an error on mismatch so CLI exits
// non-zero.
func ReportDNS(res DNSResult) error {
	if res.Match {
		info("[dns] %s resolves to %v", res.Domain, res.Resolved)
		return nil
	}
	errl("[dns] %s resolves to %v, expected %s", res.Domain, res.Resolved, res.ExpectedIP)
	return fmt.Errorf("dns mismatch: %s does not point at %s", res.Domain, res.ExpectedIP)
}
