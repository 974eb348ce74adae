package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Federal line names shared by every region.
const (
	FederalIncomeTax  = "Federal Income Tax"
	SocialSecurityTax = "Social Security Tax"
	MedicareTax       = "Medicare Tax"
)

// DefaultRegion is assigned to clients registered without a region.
const DefaultRegion = "TX"

type LineKind string

const (
	LineKindFederal LineKind = "federal"
	LineKindRegion  LineKind = "region"
)

// Line is a single named flat-rate deduction applied to gross pay.
type Line struct {
	Name string          `json:"name"`
	Rate decimal.Decimal `json:"rate"`
	Kind LineKind        `json:"kind"`
}

// RegionRates is the ordered set of lines applicable in one region.
// Federal lines always come first.
type RegionRates struct {
	Region string `json:"region"`
	Lines  []Line `json:"lines"`
}

// Select returns the named lines in table order. An empty or nil selection
// yields no lines.
func (r RegionRates) Select(names []string) ([]Line, error) {
	if len(names) == 0 {
		return []Line{}, nil
	}

	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, ok := r.find(trimmed); !ok {
			return nil, fmt.Errorf("%w: %q not available in %s", ErrInvalidTaxLine, trimmed, r.Region)
		}
		wanted[trimmed] = struct{}{}
	}

	out := make([]Line, 0, len(wanted))
	for _, line := range r.Lines {
		if _, ok := wanted[line.Name]; ok {
			out = append(out, line)
		}
	}
	return out, nil
}

// All returns a copy of every line in table order.
func (r RegionRates) All() []Line {
	return append([]Line(nil), r.Lines...)
}

// RateOf returns the configured rate for a line name.
func (r RegionRates) RateOf(name string) (decimal.Decimal, bool) {
	line, ok := r.find(name)
	if !ok {
		return decimal.Zero, false
	}
	return line.Rate, true
}

func (r RegionRates) find(name string) (Line, bool) {
	for _, line := range r.Lines {
		if line.Name == name {
			return line, true
		}
	}
	return Line{}, false
}

// Table is the immutable region → lines configuration.
type Table struct {
	federal []Line
	regions map[string][]Line
}

// NewTable validates and builds a table. Region codes are normalized to
// upper case.
func NewTable(federal []Line, regions map[string][]Line) (Table, error) {
	if len(federal) == 0 {
		return Table{}, ErrEmptyFederal
	}

	fed := make([]Line, 0, len(federal))
	for _, line := range federal {
		line.Kind = LineKindFederal
		if err := validateLine(line); err != nil {
			return Table{}, err
		}
		fed = append(fed, line)
	}

	normalized := make(map[string][]Line, len(regions))
	for code, lines := range regions {
		region := NormalizeRegion(code)
		if region == "" {
			return Table{}, ErrInvalidRegion
		}

		seen := make(map[string]struct{}, len(fed)+len(lines))
		for _, line := range fed {
			seen[line.Name] = struct{}{}
		}

		out := make([]Line, 0, len(lines))
		for _, line := range lines {
			line.Kind = LineKindRegion
			if err := validateLine(line); err != nil {
				return Table{}, err
			}
			if _, dup := seen[line.Name]; dup {
				return Table{}, fmt.Errorf("%w: duplicate line %q in %s", ErrInvalidTaxLine, line.Name, region)
			}
			seen[line.Name] = struct{}{}
			out = append(out, line)
		}
		normalized[region] = out
	}

	return Table{federal: fed, regions: normalized}, nil
}

// Lookup returns federal lines followed by the region's own lines.
func (t Table) Lookup(region string) (RegionRates, error) {
	code := NormalizeRegion(region)
	if code == "" {
		return RegionRates{}, ErrInvalidRegion
	}
	regionLines, ok := t.regions[code]
	if !ok {
		return RegionRates{}, fmt.Errorf("%w: %s is not configured", ErrInvalidRegion, code)
	}

	lines := make([]Line, 0, len(t.federal)+len(regionLines))
	lines = append(lines, t.federal...)
	lines = append(lines, regionLines...)
	return RegionRates{Region: code, Lines: lines}, nil
}

// Regions lists configured region codes sorted alphabetically.
func (t Table) Regions() []string {
	out := make([]string, 0, len(t.regions))
	for code := range t.regions {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func NormalizeRegion(region string) string {
	return strings.ToUpper(strings.TrimSpace(region))
}

func validateLine(line Line) error {
	if strings.TrimSpace(line.Name) == "" {
		return ErrInvalidTaxLine
	}
	if line.Rate.IsNegative() || line.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s", ErrInvalidTaxRate, line.Name)
	}
	return nil
}

// DefaultTable is the built-in CO/TX/IL configuration.
func DefaultTable() Table {
	table, err := NewTable(
		[]Line{
			{Name: FederalIncomeTax, Rate: decimal.RequireFromString("0.09")},
			{Name: SocialSecurityTax, Rate: decimal.RequireFromString("0.062")},
			{Name: MedicareTax, Rate: decimal.RequireFromString("0.0145")},
		},
		map[string][]Line{
			"CO": {
				{Name: "CO Income Tax", Rate: decimal.RequireFromString("0.044")},
				{Name: "CO PFML", Rate: decimal.RequireFromString("0.0045")},
				{Name: "DENVER, CO O/P T", Rate: decimal.RequireFromString("0.012")},
			},
			"TX": {},
			"IL": {
				{Name: "IL Income Tax", Rate: decimal.RequireFromString("0.0495")},
				{Name: "CHICAGO Local Tax", Rate: decimal.RequireFromString("0.005")},
			},
		},
	)
	if err != nil {
		panic(err)
	}
	return table
}
