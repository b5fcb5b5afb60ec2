package reconcile

import (
	"fmt"

	"github.com/dvloznov/rental-tax/internal/table"
)

// Registry column names.
const (
	ColCode        = "Code"
	ColListingBNB  = "ListingBNB"
	ColVRBOID      = "VRBO_ID"
	ColQBO         = "QBO"
	ColCleaning    = "Cleaning"
	ColTaxLocation = "Tax_Location"
)

// RegistryColumns are required on the registry table. VRBO_ID is optional.
var RegistryColumns = []string{ColCode, ColListingBNB, ColQBO, ColCleaning, ColTaxLocation}

// Property is one canonical registry row.
type Property struct {
	Code             string
	ListingLabelA    string // Airbnb listing name
	PropertyIDB      string // VRBO property ID
	AccountKey       string // QBO customer
	CleaningBaseline string
	TaxLocation      string
}

// DuplicatePolicy decides what happens when the registry repeats a Code.
type DuplicatePolicy string

const (
	// DuplicateReject fails registry construction.
	DuplicateReject DuplicatePolicy = "reject"
	// DuplicateKeepFirst keeps the first row and reports the rest.
	DuplicateKeepFirst DuplicatePolicy = "first"
)

// ParseDuplicatePolicy validates a policy name; "" means DuplicateReject.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "", DuplicateReject:
		return DuplicateReject, nil
	case DuplicateKeepFirst:
		return DuplicateKeepFirst, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q (want %q or %q)", s, DuplicateReject, DuplicateKeepFirst)
	}
}

// Registry is the deduplicated property registry with lookup indexes.
type Registry struct {
	Properties []Property

	// HasPropertyIDB is false when the source table had no VRBO_ID column.
	HasPropertyIDB bool

	// Duplicates lists repeated Codes dropped under DuplicateKeepFirst.
	Duplicates []*DuplicateKeyError

	// BlankCodes counts rows skipped because their Code was empty.
	BlankCodes int

	byCode      map[string]int
	byListingA  map[string]int
	byPropertyB map[string]int
	byAccount   map[string]int
}

// NewRegistry validates the registry table and indexes its rows.
func NewRegistry(t *table.Table, policy DuplicatePolicy) (*Registry, error) {
	if err := requireColumns(t.Name, t.Missing(RegistryColumns...)); err != nil {
		return nil, err
	}

	r := &Registry{
		HasPropertyIDB: t.Has(ColVRBOID),
		byCode:         make(map[string]int),
		byListingA:     make(map[string]int),
		byPropertyB:    make(map[string]int),
		byAccount:      make(map[string]int),
	}

	seen := make(map[string][]int)
	var order []string
	for i := 0; i < t.Len(); i++ {
		code := t.Value(i, ColCode)
		if code == "" {
			r.BlankCodes++
			continue
		}
		if _, ok := seen[code]; !ok {
			order = append(order, code)
		}
		seen[code] = append(seen[code], i)
	}

	for _, code := range order {
		rows := seen[code]
		if len(rows) > 1 {
			dup := &DuplicateKeyError{Table: t.Name, Key: code, Rows: rows}
			if policy != DuplicateKeepFirst {
				return nil, dup
			}
			r.Duplicates = append(r.Duplicates, dup)
		}
	}

	for i := 0; i < t.Len(); i++ {
		code := t.Value(i, ColCode)
		if code == "" || seen[code][0] != i {
			continue
		}
		r.add(Property{
			Code:             code,
			ListingLabelA:    t.Value(i, ColListingBNB),
			PropertyIDB:      t.Value(i, ColVRBOID),
			AccountKey:       t.Value(i, ColQBO),
			CleaningBaseline: t.Value(i, ColCleaning),
			TaxLocation:      t.Value(i, ColTaxLocation),
		})
	}

	return r, nil
}

func (r *Registry) add(p Property) {
	idx := len(r.Properties)
	r.Properties = append(r.Properties, p)
	r.byCode[p.Code] = idx
	indexFirst(r.byListingA, p.ListingLabelA, idx)
	indexFirst(r.byPropertyB, p.PropertyIDB, idx)
	indexFirst(r.byAccount, p.AccountKey, idx)
}

func indexFirst(m map[string]int, key string, idx int) {
	if key == "" {
		return
	}
	if _, ok := m[key]; !ok {
		m[key] = idx
	}
}

// Len returns the number of indexed properties.
func (r *Registry) Len() int {
	return len(r.Properties)
}

// ByCode looks up a property by its Code.
func (r *Registry) ByCode(code string) (Property, bool) {
	return r.lookup(r.byCode, code)
}

// ByListingA returns the first property whose Airbnb listing name matches.
func (r *Registry) ByListingA(listing string) (Property, bool) {
	return r.lookup(r.byListingA, listing)
}

// ByPropertyIDB returns the first property whose VRBO property ID matches.
func (r *Registry) ByPropertyIDB(id string) (Property, bool) {
	if !r.HasPropertyIDB {
		return Property{}, false
	}
	return r.lookup(r.byPropertyB, id)
}

// ByAccount returns the first property whose QBO account matches.
func (r *Registry) ByAccount(account string) (Property, bool) {
	return r.lookup(r.byAccount, account)
}

func (r *Registry) lookup(m map[string]int, key string) (Property, bool) {
	if key == "" {
		return Property{}, false
	}
	idx, ok := m[key]
	if !ok {
		return Property{}, false
	}
	return r.Properties[idx], true
}
