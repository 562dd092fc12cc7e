// Package twodoc implements the 2D-DOC subsystem (C12): locating
// DataMatrix candidates on the first page, parsing the signed
// header/message/signature, and cross-verifying the signed fields
// against the document's visible text.
package twodoc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Header is the fixed-position prefix of every 2D-DOC payload.
type Header struct {
	Version       string // "01".."04"
	CAID          string // certification authority, 4 chars
	CertID        string // certificate, 4 chars
	EmissionDate  *time.Time
	SignatureDate *time.Time
	DocType       string // 2 chars
	Perimeter     string // version >= 03
	Country       string // version == 04
}

var headerSizes = map[string]int{
	"01": 22,
	"02": 22,
	"03": 24,
	"04": 26,
}

var epoch2000 = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// absentHexDate is the literal meaning "no date".
const absentHexDate = "FFFF"

// ParseHexDate decodes a 4-uppercase-hex-char day count since
// 2000-01-01. "FFFF" means absent and returns (nil, nil).
func ParseHexDate(s string) (*time.Time, error) {
	if len(s) != 4 {
		return nil, fmt.Errorf("twodoc: hex date %q must be 4 chars", s)
	}
	if s == absentHexDate {
		return nil, nil
	}
	if s != strings.ToUpper(s) {
		return nil, fmt.Errorf("twodoc: hex date %q must be uppercase", s)
	}
	days, err := strconv.ParseInt(s, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("twodoc: hex date %q: %w", s, err)
	}
	t := epoch2000.AddDate(0, 0, int(days))
	return &t, nil
}

// FormatHexDate encodes a date as 4-uppercase-hex days since
// 2000-01-01; a nil date is the absent marker.
func FormatHexDate(t *time.Time) string {
	if t == nil {
		return absentHexDate
	}
	days := int(t.UTC().Truncate(24*time.Hour).Sub(epoch2000).Hours() / 24)
	return fmt.Sprintf("%04X", days)
}

// ParseHeader parses the header at the start of payload and returns the
// header plus the remaining message+signature bytes. Every 2D-DOC
// begins with the literal "DC"; unknown versions fail parsing.
func ParseHeader(payload string) (*Header, string, error) {
	if len(payload) < 4 || payload[:2] != "DC" {
		return nil, "", fmt.Errorf("twodoc: payload does not start with DC marker")
	}
	version := payload[2:4]
	size, ok := headerSizes[version]
	if !ok {
		return nil, "", fmt.Errorf("twodoc: unknown version %q", version)
	}
	if len(payload) < size {
		return nil, "", fmt.Errorf("twodoc: payload shorter than its %d-char header", size)
	}

	h := &Header{
		Version: version,
		CAID:    payload[4:8],
		CertID:  payload[8:12],
		DocType: payload[20:22],
	}
	var err error
	if h.EmissionDate, err = ParseHexDate(payload[12:16]); err != nil {
		return nil, "", err
	}
	if h.SignatureDate, err = ParseHexDate(payload[16:20]); err != nil {
		return nil, "", err
	}
	if size >= 24 {
		h.Perimeter = payload[22:24]
	}
	if size >= 26 {
		h.Country = payload[24:26]
	}
	return h, payload[size:], nil
}

// BuildHeader serializes a header back to its wire form; the inverse of
// ParseHeader for any valid header.
func BuildHeader(h *Header) (string, error) {
	size, ok := headerSizes[h.Version]
	if !ok {
		return "", fmt.Errorf("twodoc: unknown version %q", h.Version)
	}
	if len(h.CAID) != 4 || len(h.CertID) != 4 || len(h.DocType) != 2 {
		return "", fmt.Errorf("twodoc: header field lengths invalid")
	}
	var b strings.Builder
	b.WriteString("DC")
	b.WriteString(h.Version)
	b.WriteString(h.CAID)
	b.WriteString(h.CertID)
	b.WriteString(FormatHexDate(h.EmissionDate))
	b.WriteString(FormatHexDate(h.SignatureDate))
	b.WriteString(h.DocType)
	if size >= 24 {
		if len(h.Perimeter) != 2 {
			return "", fmt.Errorf("twodoc: version %s requires a 2-char perimeter", h.Version)
		}
		b.WriteString(h.Perimeter)
	}
	if size >= 26 {
		if len(h.Country) != 2 {
			return "", fmt.Errorf("twodoc: version %s requires a 2-char country", h.Version)
		}
		b.WriteString(h.Country)
	}
	return b.String(), nil
}
