package twodoc

import "fmt"

// variableLength marks a DI whose value runs until the GS terminator.
const variableLength = -1

// DIEntry describes one Data Identifier: its human name, its length
// rule, and the matching discipline cross-verification applies to it.
type DIEntry struct {
	Name string
	// Length is the fixed value length, or variableLength.
	Length int
	// Match selects the text-matching mode during cross-verification.
	Match MatchKind
}

// MatchKind is how a DI's value is searched for in the visible text.
type MatchKind int

const (
	// MatchNone: the field is carried but not cross-verified.
	MatchNone MatchKind = iota
	// MatchNormalized: accent-stripped, case-folded, space-collapsed
	// containment (names, cities, streets).
	MatchNormalized
	// MatchExact: exact-substring, no normalization (postal codes, tax
	// ids, invoice numbers).
	MatchExact
	// MatchAmount: numeric comparison in European and US conventions
	// with an absolute tolerance.
	MatchAmount
)

// diRegistry is the Data Identifier registry across the namespaces the
// standard defines (identity, address, invoice, banking, tax, pay-slip,
// driver-license, identity-document). Unknown DIs are accepted as
// variable-length with a generated name.
var diRegistry = map[string]DIEntry{
	// Identity / address.
	"10": {Name: "Beneficiary last name", Length: variableLength, Match: MatchNormalized},
	"11": {Name: "Beneficiary first name", Length: variableLength, Match: MatchNormalized},
	"12": {Name: "Street", Length: variableLength, Match: MatchNormalized},
	"13": {Name: "Postal code", Length: 5, Match: MatchExact},
	"14": {Name: "City", Length: variableLength, Match: MatchNormalized},
	"15": {Name: "Country code", Length: 2, Match: MatchNone},
	"16": {Name: "Addressee last name", Length: variableLength, Match: MatchNormalized},
	"17": {Name: "Addressee first name", Length: variableLength, Match: MatchNormalized},
	"1D": {Name: "Declarant reference", Length: variableLength, Match: MatchExact},

	// Invoice.
	"30": {Name: "Invoice number", Length: variableLength, Match: MatchExact},
	"31": {Name: "Invoice date", Length: 4, Match: MatchNone},
	"32": {Name: "Invoice amount", Length: variableLength, Match: MatchAmount},
	"33": {Name: "Currency", Length: 3, Match: MatchNone},

	// Banking.
	"34": {Name: "IBAN", Length: variableLength, Match: MatchExact},
	"35": {Name: "BIC", Length: variableLength, Match: MatchNone},

	// Tax.
	"40": {Name: "Tax year", Length: 4, Match: MatchNone},
	"41": {Name: "Tax notice reference", Length: variableLength, Match: MatchExact},
	"43": {Name: "Household parts", Length: variableLength, Match: MatchNone},
	"44": {Name: "Tax address", Length: variableLength, Match: MatchNormalized},
	"47": {Name: "Fiscal number (declarant 1)", Length: 13, Match: MatchExact},
	"49": {Name: "Fiscal number (declarant 2)", Length: 13, Match: MatchExact},
	"4V": {Name: "Tax amount", Length: variableLength, Match: MatchAmount},
	"4X": {Name: "Tax already withheld", Length: variableLength, Match: MatchAmount},

	// Pay slip.
	"50": {Name: "Employer name", Length: variableLength, Match: MatchNormalized},
	"51": {Name: "Net salary", Length: variableLength, Match: MatchAmount},
	"52": {Name: "Pay period", Length: variableLength, Match: MatchNone},

	// Driver license.
	"70": {Name: "License number", Length: variableLength, Match: MatchExact},
	"71": {Name: "License categories", Length: variableLength, Match: MatchNone},

	// Identity document.
	"80": {Name: "Document number", Length: variableLength, Match: MatchExact},
	"81": {Name: "Nationality", Length: 2, Match: MatchNone},
	"82": {Name: "Birth date", Length: 8, Match: MatchNone},
}

// lookupDI returns the registry entry for a DI; unknown DIs come back
// as variable-length with a generated name.
func lookupDI(di string) DIEntry {
	if entry, ok := diRegistry[di]; ok {
		return entry
	}
	return DIEntry{
		Name:   fmt.Sprintf("Unknown (%s)", di),
		Length: variableLength,
		Match:  MatchNone,
	}
}
