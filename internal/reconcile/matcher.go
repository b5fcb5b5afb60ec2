// Package reconcile matches platform booking records to canonical registry
// properties.
//
// Each booking is first joined to the registry on Code. Bookings whose Code
// is unknown to the registry are repaired with a fallback cascade evaluated
// once per distinct unknown Code: the platform listing identifier is tried
// against the registry listing field for that platform, then the booking
// account against the registry QBO account. Whatever remains unresolved is
// kept with an empty Code and reported as UnresolvedRecord diagnostics.
package reconcile

import (
	"fmt"

	"github.com/dvloznov/rental-tax/internal/table"
)

// Resolution records how an enriched booking obtained its Code.
type Resolution string

const (
	ResolvedNone      Resolution = ""
	ResolvedByCode    Resolution = "code"
	ResolvedByListing Resolution = "listing"
	ResolvedByAccount Resolution = "account"
)

// EnrichedBooking is a booking with registry attributes attached.
type EnrichedBooking struct {
	Source     Source
	SourceCode string
	Listing    string // platform listing identifier
	AccountKey string // platform customer
	RecordType string
	Amount     string
	Cleaning   string

	// Code is the resolved registry Code, empty when unresolved.
	Code       string
	Resolution Resolution
	Property   Property
}

// Resolved reports whether a registry property was attached.
func (b EnrichedBooking) Resolved() bool {
	return b.Resolution != ResolvedNone
}

func (b *EnrichedBooking) resolve(p Property, how Resolution) {
	b.Code = p.Code
	b.Resolution = how
	b.Property = p
	if b.Cleaning == "" {
		b.Cleaning = p.CleaningBaseline
	}
}

// UnresolvedRecord is a source Code that no strategy could resolve.
type UnresolvedRecord struct {
	Source     Source
	Code       string
	Listing    string
	AccountKey string
	Rows       int
}

func (u UnresolvedRecord) String() string {
	return fmt.Sprintf("%s code=%q listing=%q customer=%q rows=%d", u.Source, u.Code, u.Listing, u.AccountKey, u.Rows)
}

// MatchResult is the matcher output for one source.
type MatchResult struct {
	Table      *EnrichedTable
	Unresolved []UnresolvedRecord

	// Filtered counts rows dropped for an unaccepted record type.
	Filtered int
}

// UnresolvedCodes returns the residual source Codes in first-seen order.
func (m *MatchResult) UnresolvedCodes() []string {
	codes := make([]string, 0, len(m.Unresolved))
	for _, u := range m.Unresolved {
		codes = append(codes, u.Code)
	}
	return codes
}

// Matcher joins booking tables to a registry.
type Matcher struct {
	registry *Registry
}

// NewMatcher creates a matcher over a validated registry.
func NewMatcher(registry *Registry) *Matcher {
	return &Matcher{registry: registry}
}

// Match enriches every accepted booking row of t.
func (m *Matcher) Match(spec SourceSpec, t *table.Table) (*MatchResult, error) {
	if err := spec.Validate(t); err != nil {
		return nil, err
	}

	res := &MatchResult{}
	rows := make([]EnrichedBooking, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		b := EnrichedBooking{
			Source:     spec.Source,
			SourceCode: t.Value(i, spec.CodeColumn),
			Listing:    t.Value(i, spec.ListingColumn),
			AccountKey: t.Value(i, spec.AccountColumn),
			Amount:     t.Value(i, spec.AmountColumn),
		}
		if spec.TypeColumn != "" {
			b.RecordType = t.Value(i, spec.TypeColumn)
			if !spec.accepts(b.RecordType) {
				res.Filtered++
				continue
			}
		}
		if spec.CleaningColumn != "" {
			b.Cleaning = t.Value(i, spec.CleaningColumn)
		}
		if p, ok := m.registry.ByCode(b.SourceCode); ok {
			b.resolve(p, ResolvedByCode)
		}
		rows = append(rows, b)
	}

	m.applyFallbacks(spec, rows)

	res.Table = newEnrichedTable(spec.Source, m.registry.HasPropertyIDB, rows)
	res.Unresolved = residual(spec.Source, rows)
	return res, nil
}

// applyFallbacks runs the listing then account cascade once per distinct
// source Code missing from the registry.
func (m *Matcher) applyFallbacks(spec SourceSpec, rows []EnrichedBooking) {
	for _, code := range missingCodes(rows) {
		first := -1
		for i := range rows {
			if rows[i].SourceCode == code && !rows[i].Resolved() {
				first = i
				break
			}
		}
		if first < 0 {
			continue
		}

		listing, account := rows[first].Listing, rows[first].AccountKey
		if p, ok := spec.listingLookup(m.registry, listing); ok {
			for i := range rows {
				if !rows[i].Resolved() && rows[i].Listing == listing {
					rows[i].resolve(p, ResolvedByListing)
				}
			}
			continue
		}
		// Other codes on the same account still get their own listing lookup.
		if p, ok := m.registry.ByAccount(account); ok {
			for i := range rows {
				if !rows[i].Resolved() && rows[i].SourceCode == code {
					rows[i].resolve(p, ResolvedByAccount)
				}
			}
		}
	}
}

// missingCodes returns distinct source Codes the join left unresolved.
func missingCodes(rows []EnrichedBooking) []string {
	seen := make(map[string]bool)
	var codes []string
	for _, b := range rows {
		if b.Resolution == ResolvedByCode || seen[b.SourceCode] {
			continue
		}
		seen[b.SourceCode] = true
		codes = append(codes, b.SourceCode)
	}
	return codes
}

func residual(source Source, rows []EnrichedBooking) []UnresolvedRecord {
	idx := make(map[string]int)
	var out []UnresolvedRecord
	for _, b := range rows {
		if b.Resolved() {
			continue
		}
		if i, ok := idx[b.SourceCode]; ok {
			out[i].Rows++
			continue
		}
		idx[b.SourceCode] = len(out)
		out = append(out, UnresolvedRecord{
			Source:     source,
			Code:       b.SourceCode,
			Listing:    b.Listing,
			AccountKey: b.AccountKey,
			Rows:       1,
		})
	}
	return out
}
