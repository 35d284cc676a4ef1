package service

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

type SSRFCategory string

const (
	SSRFInternal      SSRFCategory = "internal"
	SSRFCloudMetadata SSRFCategory = "cloud_metadata"
	SSRFLinkLocal     SSRFCategory = "link_local"
	SSRFPrivate       SSRFCategory = "private"
	SSRFMetadataHost  SSRFCategory = "metadata_host"
)

var ssrfMessages = map[SSRFCategory]string{
	SSRFInternal:      "Internal URLs are not allowed",
	SSRFCloudMetadata: "Cloud metadata endpoints are not allowed",
	SSRFLinkLocal:     "Link-local addresses are not allowed",
	SSRFPrivate:       "Private IP addresses are not allowed",
	SSRFMetadataHost:  "Cloud metadata hostnames are not allowed",
}

// SSRFError is returned when an outbound URL targets a blocked address
type SSRFError struct {
	Category SSRFCategory
	Host     string
}

func (e *SSRFError) Error() string {
	if msg, ok := ssrfMessages[e.Category]; ok {
		return msg
	}
	return fmt.Sprintf("URL host %s is not allowed", e.Host)
}

var metadataHostnames = map[string]bool{
	"metadata.google.internal":   true,
	"metadata.gcp.internal":      true,
	"metadata":                   true,
	"instance-data":              true,
	"instance-data.ec2.internal": true,
	"metadata.azure.internal":    true,
}

var cloudMetadataIPs = []net.IP{
	net.ParseIP("169.254.169.254"),
	net.ParseIP("fd00:ec2::254"),
}

var (
	loopbackNets  = mustParseCIDRs("127.0.0.0/8", "::1/128")
	linkLocalNets = mustParseCIDRs("169.254.0.0/16", "fe80::/10")
	privateNets   = mustParseCIDRs("10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "fc00::/7")
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR %s: %v", cidr, err))
		}
		nets = append(nets, n)
	}
	return nets
}

func containsIP(nets []*net.IPNet, ip net.IP) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// CheckIP classifies an address, nil means it may be dialed
func CheckIP(ip net.IP) *SSRFError {
	host := ip.String()
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}

	switch {
	case ip.IsUnspecified() || containsIP(loopbackNets, ip):
		return &SSRFError{Category: SSRFInternal, Host: host}
	case isCloudMetadataIP(ip):
		return &SSRFError{Category: SSRFCloudMetadata, Host: host}
	case containsIP(linkLocalNets, ip):
		return &SSRFError{Category: SSRFLinkLocal, Host: host}
	case containsIP(privateNets, ip):
		return &SSRFError{Category: SSRFPrivate, Host: host}
	}
	return nil
}

func isCloudMetadataIP(ip net.IP) bool {
	for _, m := range cloudMetadataIPs {
		if m.Equal(ip) {
			return true
		}
	}
	return false
}

// CheckHost applies the hostname rules and, for IP literals, CheckIP.
// Names that resolve to internal addresses are caught at dial time.
func CheckHost(host string) error {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return &SSRFError{Category: SSRFInternal, Host: host}
	}
	if metadataHostnames[host] {
		return &SSRFError{Category: SSRFMetadataHost, Host: host}
	}
	if ip := net.ParseIP(host); ip != nil {
		if err := CheckIP(ip); err != nil {
			return err
		}
	}
	return nil
}

// URLGuard enforces the scheme policy and the SSRF rules on outbound URLs
type URLGuard struct {
	requireHTTPS bool
}

// NewURLGuard returns a guard that only accepts https when requireHTTPS
// is set, http or https otherwise
func NewURLGuard(requireHTTPS bool) *URLGuard {
	return &URLGuard{requireHTTPS: requireHTTPS}
}

// Check parses rawURL and returns it when it may be requested
func (g *URLGuard) Check(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return nil, &DataSourceConfigError{Message: fmt.Sprintf("Invalid URL: %s", rawURL)}
	}

	scheme := strings.ToLower(u.Scheme)
	if g.requireHTTPS && scheme != "https" {
		return nil, &DataSourceConfigError{Message: "Only HTTPS URLs are allowed in production"}
	}
	if scheme != "http" && scheme != "https" {
		return nil, &DataSourceConfigError{Message: "Only HTTP and HTTPS URLs are allowed"}
	}

	if err := CheckHost(u.Hostname()); err != nil {
		return nil, err
	}
	return u, nil
}

// dialControl rejects connections to blocked addresses after DNS
// resolution, it is installed on every outbound dialer
func dialControl(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("failed to parse dial address %s: %w", address, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("refusing to dial unresolved address %s", address)
	}
	if ssrfErr := CheckIP(ip); ssrfErr != nil {
		return ssrfErr
	}
	return nil
}
