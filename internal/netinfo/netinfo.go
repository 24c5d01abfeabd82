// Package netinfo classifies the local network connection as mobile or broadband.
package netinfo

import (
	"slices"
	"strings"

	psnet "github.com/shirou/gopsutil/v4/net"

	"netsonic/internal/browser"
	"netsonic/internal/logging"
)

// Class is the connection class used to pick concurrency and calibration
type Class int

const (
	Broadband Class = iota
	Mobile
)

func (c Class) String() string {
	if c == Mobile {
		return "mobile"
	}
	return "broadband"
}

// Interface types
const (
	TypeCellular = "cellular"
	TypeWiFi     = "wifi"
	TypeEthernet = "ethernet"
	TypeUnknown  = "unknown"
)

// Connection is the detected connection
type Connection struct {
	Class     Class  `json:"class"`
	Type      string `json:"type"`
	Interface string `json:"interface,omitempty"`
}

// Label is the human readable connection type stored with results
func (c Connection) Label() string {
	if c.Type == TypeUnknown || c.Type == "" {
		return c.Class.String()
	}
	return c.Type
}

var (
	cellularPrefixes = []string{"wwan", "rmnet", "ppp", "pdp_ip", "ccmni", "wwp", "usb"}
	wifiPrefixes     = []string{"wl", "wlan", "wifi", "ath", "airport", "wi-fi"}
)

// ClassifyInterface maps an interface name to an interface type.
func ClassifyInterface(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return TypeUnknown
	}
	for _, p := range cellularPrefixes {
		if strings.HasPrefix(lower, p) {
			return TypeCellular
		}
	}
	for _, p := range wifiPrefixes {
		if strings.HasPrefix(lower, p) {
			return TypeWiFi
		}
	}
	if strings.HasPrefix(lower, "lo") {
		return TypeUnknown
	}
	return TypeEthernet
}

// source abstracts the platform calls so detection can be tested
type source struct {
	interfaces func() (psnet.InterfaceStatList, error)
	counters   func(pernic bool) ([]psnet.IOCountersStat, error)
}

var platform = source{
	interfaces: psnet.Interfaces,
	counters:   psnet.IOCounters,
}

// Detect inspects the busiest active interface. When the platform cannot be
// queried the user agent heuristic from the profile decides.
func Detect(profile browser.Profile) Connection {
	return detect(platform, profile)
}

func detect(src source, profile browser.Profile) Connection {
	name, err := busiestInterface(src)
	if err != nil || name == "" {
		if err != nil {
			logging.Debugf("Interface detection failed, using user agent: %v", err)
		}
		return fromProfile(profile)
	}

	typ := ClassifyInterface(name)
	conn := Connection{Class: Broadband, Type: typ, Interface: name}
	if typ == TypeCellular {
		conn.Class = Mobile
	}
	return conn
}

func fromProfile(profile browser.Profile) Connection {
	if profile.IsMobile {
		return Connection{Class: Mobile, Type: TypeUnknown}
	}
	return Connection{Class: Broadband, Type: TypeUnknown}
}

func busiestInterface(src source) (string, error) {
	ifaces, err := src.interfaces()
	if err != nil {
		return "", err
	}

	active := make(map[string]bool)
	for _, iface := range ifaces {
		if !slices.Contains(iface.Flags, "up") || slices.Contains(iface.Flags, "loopback") {
			continue
		}
		if len(iface.Addrs) == 0 {
			continue
		}
		active[iface.Name] = true
	}
	if len(active) == 0 {
		return "", nil
	}

	counters, err := src.counters(true)
	if err != nil {
		return "", err
	}

	best := ""
	var bestBytes uint64
	for _, c := range counters {
		if !active[c.Name] {
			continue
		}
		total := c.BytesRecv + c.BytesSent
		if best == "" || total > bestBytes {
			best = c.Name
			bestBytes = total
		}
	}
	if best == "" {
		// no counters for active interfaces, take any active one deterministically
		names := make([]string, 0, len(active))
		for n := range active {
			names = append(names, n)
		}
		slices.Sort(names)
		best = names[0]
	}
	return best, nil
}
