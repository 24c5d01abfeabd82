// Package isp resolves the client's ISP and location through a chain of
// providers. Resolution never fails outward; the worst case is Unknown.
package isp

import (
	"context"
	"strings"
	"time"

	"netsonic/internal/logging"
)

// Unknown is reported when no provider could determine the ISP
const Unknown = "Unknown"

// Info is the connection metadata attached to a result
type Info struct {
	ISP      string `json:"isp"`
	IP       string `json:"ip,omitempty"`
	City     string `json:"city,omitempty"`
	Country  string `json:"country,omitempty"`
	Region   string `json:"region,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// Known reports whether the ISP was determined
func (i Info) Known() bool {
	return !isUnknown(i.ISP)
}

func isUnknown(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == Unknown || s == "Unknown ISP"
}

// Enricher fills in the ISP name from an IP address
type Enricher interface {
	LookupISP(ip string) (string, bool)
}

// Resolver tries providers in order until one answers
type Resolver struct {
	providers []Provider
	enricher  Enricher
	timeout   time.Duration
}

// NewResolver creates a resolver. enricher may be nil.
func NewResolver(enricher Enricher, providers ...Provider) *Resolver {
	return &Resolver{
		providers: providers,
		enricher:  enricher,
		timeout:   5 * time.Second,
	}
}

// DefaultResolver queries ipapi.co and falls back to ip-api.com
func DefaultResolver(enricher Enricher) *Resolver {
	return NewResolver(enricher, NewIPAPICo(nil), NewIPAPICom(nil))
}

// WithTimeout sets the per-provider timeout
func (r *Resolver) WithTimeout(d time.Duration) *Resolver {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Resolve returns the first successful provider answer, enriched when the
// provider gave an address but no ISP name.
func (r *Resolver) Resolve(ctx context.Context) Info {
	for _, p := range r.providers {
		if ctx.Err() != nil {
			break
		}

		lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
		info, err := p.Lookup(lookupCtx)
		cancel()
		if err != nil {
			logging.Debugf("ISP provider %s failed: %v", p.Name(), err)
			continue
		}

		return r.Enrich(info)
	}

	return Info{ISP: Unknown}
}

// Enrich fills a missing ISP from the enricher, defaulting to Unknown
func (r *Resolver) Enrich(info Info) Info {
	if isUnknown(info.ISP) {
		info.ISP = ""
		if r.enricher != nil && info.IP != "" {
			if name, ok := r.enricher.LookupISP(info.IP); ok {
				info.ISP = name
			}
		}
	}
	if info.ISP == "" {
		info.ISP = Unknown
	}
	return info
}
