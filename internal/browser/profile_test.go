package browser

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

const (
	uaChromeWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36"
	uaSafariMac     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15"
	uaSafariIPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1"
	uaFirefoxLinux  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	uaEdge          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.2210.77"
	uaChromeAndroid = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.144 Mobile Safari/537.36"
	uaIE11          = "Mozilla/5.0 (Windows NT 10.0; Trident/7.0; rv:11.0) like Gecko"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		vendor    string
		expected  Profile
	}{
		{
			name:      "Chrome on Windows",
			userAgent: uaChromeWindows,
			vendor:    "Google Inc.",
			expected:  Profile{Browser: "Chrome", Version: "120.0.6099.109", OS: "Windows"},
		},
		{
			name:      "Safari on macOS",
			userAgent: uaSafariMac,
			vendor:    "Apple Computer, Inc.",
			expected:  Profile{IsSafari: true, Browser: "Safari", Version: "17.2", OS: "macOS"},
		},
		{
			name:      "Safari on iPhone",
			userAgent: uaSafariIPhone,
			expected:  Profile{IsSafari: true, IsMobile: true, IsIOS: true, Browser: "Safari", Version: "17.2", OS: "iOS"},
		},
		{
			name:      "Firefox on Linux",
			userAgent: uaFirefoxLinux,
			expected:  Profile{Browser: "Firefox", Version: "121.0", OS: "Linux"},
		},
		{
			name:      "Chromium Edge",
			userAgent: uaEdge,
			expected:  Profile{Browser: "Edge", Version: "120.0.2210.77", OS: "Windows"},
		},
		{
			name:      "Chrome on Android",
			userAgent: uaChromeAndroid,
			expected:  Profile{IsMobile: true, Browser: "Chrome", Version: "120.0.6099.144", OS: "Android"},
		},
		{
			name:      "Internet Explorer 11",
			userAgent: uaIE11,
			expected:  Profile{Browser: "IE", Version: "11.0", OS: "Windows"},
		},
		{
			name:      "empty user agent",
			userAgent: "",
			expected:  Unknown,
		},
		{
			name:      "CLI client",
			userAgent: "netsonic/1.0",
			expected:  Profile{Browser: "unknown", Version: "0", OS: "unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.userAgent, tt.vendor)
			if got != tt.expected {
				t.Errorf("Detect(%q) = %+v, want %+v", tt.userAgent, got, tt.expected)
			}
		})
	}
}

func TestStrategyFor(t *testing.T) {
	if got := StrategyFor(Profile{IsSafari: true}).Name(); got != "buffered" {
		t.Errorf("Safari strategy = %s, want buffered", got)
	}
	if got := StrategyFor(Profile{}).Name(); got != "streaming" {
		t.Errorf("default strategy = %s, want streaming", got)
	}
}

func TestStrategiesCountBytes(t *testing.T) {
	body := bytes.Repeat([]byte{0xAB}, 300_001)
	for _, s := range []BodyConsumptionStrategy{StreamingStrategy{ChunkSize: 4096}, StreamingStrategy{}, BufferedStrategy{}} {
		n, err := s.Consume(bytes.NewReader(body))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", s.Name(), err)
		}
		if n != int64(len(body)) {
			t.Errorf("%s: consumed %d bytes, want %d", s.Name(), n, len(body))
		}
	}
}

type failingReader struct{ served bool }

func (f *failingReader) Read(p []byte) (int, error) {
	if !f.served {
		f.served = true
		return copy(p, strings.Repeat("x", 10)), nil
	}
	return 0, errors.New("connection reset by peer")
}

func TestStrategiesPropagateReadErrors(t *testing.T) {
	for _, s := range []BodyConsumptionStrategy{StreamingStrategy{}, BufferedStrategy{}} {
		_, err := s.Consume(&failingReader{})
		if err == nil || errors.Is(err, io.EOF) {
			t.Errorf("%s: expected read error, got %v", s.Name(), err)
		}
	}
}
