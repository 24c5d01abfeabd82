package isp

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// DefaultASNPaths are the usual GeoLite2-ASN install locations
var DefaultASNPaths = []string{
	"/usr/share/GeoIP/GeoLite2-ASN.mmdb",
	"/usr/local/share/GeoIP/GeoLite2-ASN.mmdb",
}

type asnReader interface {
	ASN(ip net.IP) (*geoip2.ASN, error)
	Close() error
}

// GeoIPEnricher resolves ISP names from a local GeoLite2-ASN database
type GeoIPEnricher struct {
	db asnReader
}

// OpenGeoIP opens the ASN database at path
func OpenGeoIP(path string) (*GeoIPEnricher, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ASN database %s: %w", path, err)
	}
	return &GeoIPEnricher{db: db}, nil
}

// OpenDefaultGeoIP tries DefaultASNPaths in order
func OpenDefaultGeoIP() (*GeoIPEnricher, error) {
	var lastErr error
	for _, p := range DefaultASNPaths {
		e, err := OpenGeoIP(p)
		if err == nil {
			return e, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// LookupISP returns the autonomous system organisation for ip
func (g *GeoIPEnricher) LookupISP(ip string) (string, bool) {
	_, org, ok := g.LookupASN(ip)
	return org, ok && org != ""
}

// LookupASN returns the AS number and organisation for ip
func (g *GeoIPEnricher) LookupASN(ip string) (uint, string, bool) {
	if g == nil || g.db == nil {
		return 0, "", false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return 0, "", false
	}
	rec, err := g.db.ASN(parsed)
	if err != nil || rec == nil {
		return 0, "", false
	}
	return rec.AutonomousSystemNumber, rec.AutonomousSystemOrganization, true
}

// Close releases the database
func (g *GeoIPEnricher) Close() error {
	if g == nil || g.db == nil {
		return nil
	}
	return g.db.Close()
}

// IsPublicIP reports whether ip is a routable public address
func IsPublicIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return !(parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() ||
		parsed.IsLinkLocalUnicast() || parsed.IsLinkLocalMulticast() || parsed.IsMulticast())
}
