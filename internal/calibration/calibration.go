// Package calibration applies empirical correction factors to raw throughput.
//
// The measurement technique inflates raw numbers more as link speed grows, so
// each table is a step function of the raw speed whose multipliers never
// increase from one bracket to the next. Tables are configuration: the
// defaults below can be replaced from the config file.
package calibration

import (
	"fmt"

	"netsonic/internal/netinfo"
)

// Direction of a transfer
type Direction int

const (
	Download Direction = iota
	Upload
)

func (d Direction) String() string {
	if d == Upload {
		return "upload"
	}
	return "download"
}

// Step applies Factor to raw speeds strictly below Below (Mbps)
type Step struct {
	Below  float64 `yaml:"below" json:"below"`
	Factor float64 `yaml:"factor" json:"factor"`
}

// Table is an ordered list of steps plus the factor for speeds above the last step
type Table struct {
	Steps     []Step  `yaml:"steps" json:"steps"`
	TopFactor float64 `yaml:"top_factor" json:"top_factor"`
}

// ClassTables holds one table per connection class
type ClassTables struct {
	Broadband Table `yaml:"broadband" json:"broadband"`
	Mobile    Table `yaml:"mobile" json:"mobile"`
}

// Tables holds the tables for both directions
type Tables struct {
	Download ClassTables `yaml:"download" json:"download"`
	Upload   ClassTables `yaml:"upload" json:"upload"`
}

// DefaultTables returns the shipped correction curves
func DefaultTables() Tables {
	return Tables{
		Download: ClassTables{
			Broadband: Table{
				Steps: []Step{
					{Below: 10, Factor: 1.0},
					{Below: 50, Factor: 0.95},
					{Below: 100, Factor: 0.9},
					{Below: 300, Factor: 0.85},
					{Below: 600, Factor: 0.8},
				},
				TopFactor: 0.75,
			},
			Mobile: Table{
				Steps: []Step{
					{Below: 5, Factor: 1.0},
					{Below: 20, Factor: 0.92},
					{Below: 50, Factor: 0.85},
					{Below: 100, Factor: 0.8},
				},
				TopFactor: 0.7,
			},
		},
		Upload: ClassTables{
			Broadband: Table{
				Steps: []Step{
					{Below: 5, Factor: 1.0},
					{Below: 25, Factor: 0.95},
					{Below: 100, Factor: 0.9},
				},
				TopFactor: 0.85,
			},
			Mobile: Table{
				Steps: []Step{
					{Below: 2, Factor: 1.0},
					{Below: 10, Factor: 0.9},
					{Below: 30, Factor: 0.8},
				},
				TopFactor: 0.7,
			},
		},
	}
}

// Factor returns the multiplier for a raw speed
func (t Table) Factor(raw float64) float64 {
	for _, s := range t.Steps {
		if raw < s.Below {
			return s.Factor
		}
	}
	return t.TopFactor
}

// Validate checks ordering and bounds of a table
func (t Table) Validate() error {
	prevBelow := 0.0
	prevFactor := 0.0
	for i, s := range t.Steps {
		if s.Below <= prevBelow {
			return fmt.Errorf("step %d: breakpoint %.2f must be greater than %.2f", i, s.Below, prevBelow)
		}
		if s.Factor <= 0 {
			return fmt.Errorf("step %d: factor must be positive", i)
		}
		if i > 0 && s.Factor > prevFactor {
			return fmt.Errorf("step %d: factor %.3f exceeds previous factor %.3f", i, s.Factor, prevFactor)
		}
		prevBelow, prevFactor = s.Below, s.Factor
	}
	if t.TopFactor <= 0 {
		return fmt.Errorf("top factor must be positive")
	}
	if len(t.Steps) > 0 && t.TopFactor > prevFactor {
		return fmt.Errorf("top factor %.3f exceeds last step factor %.3f", t.TopFactor, prevFactor)
	}
	return nil
}

// Validate checks all four tables
func (ts Tables) Validate() error {
	checks := []struct {
		name  string
		table Table
	}{
		{"download.broadband", ts.Download.Broadband},
		{"download.mobile", ts.Download.Mobile},
		{"upload.broadband", ts.Upload.Broadband},
		{"upload.mobile", ts.Upload.Mobile},
	}
	for _, c := range checks {
		if err := c.table.Validate(); err != nil {
			return fmt.Errorf("calibration %s: %w", c.name, err)
		}
	}
	return nil
}

// Model applies calibration tables
type Model struct {
	tables Tables
}

// New creates a Model. Tables are expected to be validated by the caller.
func New(tables Tables) *Model {
	return &Model{tables: tables}
}

// Default returns a Model with the shipped tables
func Default() *Model {
	return New(DefaultTables())
}

// Tables returns the tables in use
func (m *Model) Tables() Tables {
	return m.tables
}

// Apply corrects a raw Mbps figure for the connection class and direction.
func (m *Model) Apply(raw float64, class netinfo.Class, dir Direction) float64 {
	if raw <= 0 {
		return 0
	}
	return raw * m.table(class, dir).Factor(raw)
}

func (m *Model) table(class netinfo.Class, dir Direction) Table {
	ct := m.tables.Download
	if dir == Upload {
		ct = m.tables.Upload
	}
	if class == netinfo.Mobile {
		return ct.Mobile
	}
	return ct.Broadband
}
