// Package tax aggregates enriched bookings into per-property tax summaries.
package tax

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/rental-tax/internal/reconcile"
)

// DefaultTaxRate is applied to income net of cleaning.
const DefaultTaxRate = 0.00558

// ErrAggregation marks a failure computing one property's summary.
var ErrAggregation = errors.New("aggregation failed")

// AggregationError isolates a failure to a single property.
type AggregationError struct {
	Listing string
	Code    string
	Err     error
}

// Error implements the error interface
func (e *AggregationError) Error() string {
	return fmt.Sprintf("property %q (code %q): %v", e.Listing, e.Code, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *AggregationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AggregationError) Is(target error) bool {
	return target == ErrAggregation
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTaxRate overrides DefaultTaxRate.
func WithTaxRate(rate float64) Option {
	return func(a *Aggregator) {
		a.rate = decimal.NewFromFloat(rate)
	}
}

// WithLegacyDropFirstRow drops the first computed row before sorting, as
// earlier reports did.
func WithLegacyDropFirstRow(enabled bool) Option {
	return func(a *Aggregator) {
		a.dropFirst = enabled
	}
}

// Aggregator computes summaries from the two enriched booking tables.
type Aggregator struct {
	rate      decimal.Decimal
	dropFirst bool
}

// NewAggregator creates an aggregator with DefaultTaxRate.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{rate: decimal.NewFromFloat(DefaultTaxRate)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Rate returns the configured tax rate.
func (a *Aggregator) Rate() decimal.Decimal {
	return a.rate
}

// Result holds the summary rows and the properties that were skipped.
type Result struct {
	Rows     []SummaryRow
	Failures []*AggregationError

	// Dropped counts all-empty rows removed from Rows. Matcher output always
	// carries a Code, so only caller-built tables can produce one.
	Dropped int
}

// group collects the bookings of one listing identity.
type group struct {
	listing string
	airbnb  []reconcile.EnrichedBooking
	vrbo    []reconcile.EnrichedBooking
}

// Aggregate computes one summary row per listing identity, sorted by Code.
// Unresolved bookings do not participate. A property whose numbers cannot be
// computed is reported in Failures; an error is returned only when no
// property could be computed at all.
func (a *Aggregator) Aggregate(airbnb, vrbo *reconcile.EnrichedTable) (*Result, error) {
	if airbnb == nil || vrbo == nil {
		return nil, errors.New("aggregate: enriched table missing")
	}

	groups := groupByListing(airbnb.Resolved(), vrbo.Resolved())

	res := &Result{}
	for _, g := range groups {
		row, err := a.summarize(g)
		if err != nil {
			res.Failures = append(res.Failures, err)
			continue
		}
		if row.empty() {
			res.Dropped++
			continue
		}
		res.Rows = append(res.Rows, row)
	}

	if len(groups) > 0 && len(res.Failures) == len(groups) {
		return nil, fmt.Errorf("aggregate: all %d properties failed, first: %w", len(groups), res.Failures[0])
	}

	if a.dropFirst && len(res.Rows) > 0 {
		res.Rows = res.Rows[1:]
	}

	sort.SliceStable(res.Rows, func(i, j int) bool {
		if res.Rows[i].Code != res.Rows[j].Code {
			return res.Rows[i].Code < res.Rows[j].Code
		}
		return res.Rows[i].Listing < res.Rows[j].Listing
	})

	return res, nil
}

func (a *Aggregator) summarize(g *group) (SummaryRow, *AggregationError) {
	row := SummaryRow{Listing: g.listing}
	fail := func(b reconcile.EnrichedBooking, err error) *AggregationError {
		return &AggregationError{Listing: g.listing, Code: b.Code, Err: err}
	}

	for _, b := range g.airbnb {
		amount, err := income(b)
		if err != nil {
			return row, fail(b, err)
		}
		row.TotalIncome = row.TotalIncome.Add(amount)
		if b.RecordType == reconcile.RecordTypeAdjustment {
			continue
		}
		row.NumberOfCleanings++
		row.TotalCleaning = row.TotalCleaning.Add(cleaning(b))
	}
	for _, b := range g.vrbo {
		amount, err := income(b)
		if err != nil {
			return row, fail(b, err)
		}
		row.TotalIncome = row.TotalIncome.Add(amount)
		row.NumberOfCleanings++
		row.TotalCleaning = row.TotalCleaning.Add(cleaning(b))
	}

	row.TotalTaxes = a.rate.Mul(row.TotalIncome.Sub(row.TotalCleaning))

	var first *reconcile.EnrichedBooking
	switch {
	case len(g.airbnb) > 0:
		first = &g.airbnb[0]
	case len(g.vrbo) > 0:
		first = &g.vrbo[0]
	}
	if first != nil {
		row.Code = first.Code
		row.PropertyIDB = first.Property.PropertyIDB
		row.AccountKey = first.Property.AccountKey
		row.TaxLocation = first.Property.TaxLocation
	}

	return row, nil
}

// income parses Amount/Payout. A blank cell counts as zero; anything else
// that is not numeric is an error.
func income(b reconcile.EnrichedBooking) (decimal.Decimal, error) {
	if b.Amount == "" {
		return decimal.Zero, nil
	}
	v, ok := reconcile.ParseAmount(b.Amount)
	if !ok {
		return decimal.Zero, fmt.Errorf("%s booking %q: amount %q is not numeric", b.Source, b.SourceCode, b.Amount)
	}
	return v, nil
}

// cleaning coerces the cleaning fee; non-numeric values count as zero.
func cleaning(b reconcile.EnrichedBooking) decimal.Decimal {
	v, _ := reconcile.ParseAmount(b.Cleaning)
	return v
}

// groupByListing groups resolved bookings by listing identity in
// first-appearance order, Airbnb rows first.
func groupByListing(airbnb, vrbo []reconcile.EnrichedBooking) []*group {
	var groups []*group
	byKey := make(map[string]*group)
	get := func(b reconcile.EnrichedBooking, listing string) *group {
		key := listing
		if key == "" {
			key = "\x00" + b.Code
		}
		g, ok := byKey[key]
		if !ok {
			g = &group{listing: listing}
			byKey[key] = g
			groups = append(groups, g)
		}
		return g
	}

	for _, b := range airbnb {
		listing := b.Listing
		if listing == "" {
			listing = b.Property.ListingLabelA
		}
		g := get(b, listing)
		g.airbnb = append(g.airbnb, b)
	}
	for _, b := range vrbo {
		g := get(b, b.Property.ListingLabelA)
		g.vrbo = append(g.vrbo, b)
	}
	return groups
}
