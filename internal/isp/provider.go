package isp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	IPAPICoURL  = "https://ipapi.co/json/"
	IPAPIComURL = "https://ip-api.com/json/?fields=query,isp,org,country,city"

	userAgent = "NET-SONIC Speedtest"
	// lookup responses are small, anything larger is not a geolocation answer
	maxBodySize = 64 * 1024
)

// Provider looks up connection metadata for the current client
type Provider interface {
	Name() string
	Lookup(ctx context.Context) (Info, error)
}

// DecodeFunc maps a provider response body to Info
type DecodeFunc func(body []byte) (Info, error)

// HTTPProvider queries a JSON geolocation endpoint
type HTTPProvider struct {
	name   string
	url    string
	client *http.Client
	decode DecodeFunc
}

// NewHTTPProvider creates a provider for an arbitrary endpoint
func NewHTTPProvider(name, url string, client *http.Client, decode DecodeFunc) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPProvider{name: name, url: url, client: client, decode: decode}
}

// NewIPAPICo is the primary public provider
func NewIPAPICo(client *http.Client) *HTTPProvider {
	return NewHTTPProvider("ipapi.co", IPAPICoURL, client, DecodeIPAPICo)
}

// NewIPAPICom is the fallback public provider
func NewIPAPICom(client *http.Client) *HTTPProvider {
	return NewHTTPProvider("ip-api.com", IPAPIComURL, client, DecodeIPAPICom)
}

// NewSameOrigin queries the application server's /get-isp endpoint
func NewSameOrigin(baseURL string, client *http.Client) *HTTPProvider {
	return NewHTTPProvider("same-origin", strings.TrimRight(baseURL, "/")+"/get-isp", client, DecodeSameOrigin)
}

func (p *HTTPProvider) Name() string { return p.name }

// Lookup performs the request and decodes the body
func (p *HTTPProvider) Lookup(ctx context.Context) (Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Info{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("request to %s failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Info{}, fmt.Errorf("%s responded with status: %d", p.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Info{}, fmt.Errorf("failed to read %s response: %w", p.name, err)
	}

	info, err := p.decode(body)
	if err != nil {
		return Info{}, fmt.Errorf("failed to decode %s response: %w", p.name, err)
	}
	if info.ISP == "" && info.IP == "" {
		return Info{}, fmt.Errorf("%s returned no ISP or IP", p.name)
	}
	return info, nil
}

// DecodeIPAPICo decodes https://ipapi.co/json/
func DecodeIPAPICo(body []byte) (Info, error) {
	var data struct {
		Org         string `json:"org"`
		ISP         string `json:"isp"`
		IP          string `json:"ip"`
		City        string `json:"city"`
		CountryName string `json:"country_name"`
		Region      string `json:"region"`
		Timezone    string `json:"timezone"`
		Error       bool   `json:"error"`
		Reason      string `json:"reason"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return Info{}, err
	}
	if data.Error {
		return Info{}, fmt.Errorf("provider error: %s", data.Reason)
	}
	return Info{
		ISP:      firstNonEmpty(data.Org, data.ISP),
		IP:       data.IP,
		City:     data.City,
		Country:  data.CountryName,
		Region:   data.Region,
		Timezone: data.Timezone,
	}, nil
}

// DecodeIPAPICom decodes http://ip-api.com/json/
func DecodeIPAPICom(body []byte) (Info, error) {
	var data struct {
		Query   string `json:"query"`
		ISP     string `json:"isp"`
		Org     string `json:"org"`
		Country string `json:"country"`
		City    string `json:"city"`
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return Info{}, err
	}
	if data.Status == "fail" {
		return Info{}, fmt.Errorf("provider error: %s", data.Message)
	}
	return Info{
		ISP:     firstNonEmpty(data.ISP, data.Org),
		IP:      data.Query,
		City:    data.City,
		Country: data.Country,
	}, nil
}

// DecodeSameOrigin decodes the application server's /get-isp response
func DecodeSameOrigin(body []byte) (Info, error) {
	var info Info
	if err := json.Unmarshal(body, &info); err != nil {
		return Info{}, err
	}
	if isUnknown(info.ISP) {
		info.ISP = ""
	}
	return info, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
