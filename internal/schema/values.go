package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rivo/uniseg"
)

// NameForm describes how the components of a HumanName are ordered.
type NameForm int

const (
	// NameFallback is a whitespace-split name of unknown structure.
	NameFallback NameForm = iota
	NameFirstLast
	NameFirstMiddleLast
	NameFirstMiddleMaidenLast
	NameFirstMiddleLastMothersMaiden
	NameFamilyGiven
	NamePatronymic
	NameFirstMiddleMultipleLast
)

// HumanName is a person's name as an ordered list of components.
type HumanName struct {
	Form       NameForm
	Components []string
}

// ErrEmptyName is returned when a name has no components.
var ErrEmptyName = errors.New("name has no components")

// ParseHumanName splits s on whitespace into a fallback-form name.
func ParseHumanName(s string) (HumanName, error) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return HumanName{}, ErrEmptyName
	}
	return HumanName{Form: NameFallback, Components: parts}, nil
}

// String joins the components with single spaces.
func (n HumanName) String() string {
	return strings.Join(n.Components, " ")
}

// IsZero reports whether the name is empty.
func (n HumanName) IsZero() bool {
	return len(n.Components) == 0
}

// MarshalJSON encodes the name as its display string.
func (n HumanName) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// TIN is a taxpayer identification number. Its display form is masked.
type TIN struct {
	unmasked string
}

// SSN is a TIN issued to a person.
type SSN = TIN

// tinSuffixLen is the number of trailing grapheme clusters left unmasked.
const tinSuffixLen = 4

// ParseTIN stores s verbatim after trimming surrounding whitespace.
func ParseTIN(s string) (TIN, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TIN{}, errors.New("empty tin")
	}
	return TIN{unmasked: s}, nil
}

// Unmasked returns the full identifier.
func (t TIN) Unmasked() string {
	return t.unmasked
}

// IsZero reports whether the TIN is empty.
func (t TIN) IsZero() bool {
	return t.unmasked == ""
}

// LastFew returns the last four grapheme clusters, or all of them when the
// identifier is shorter.
func (t TIN) LastFew() string {
	var clusters []string
	g := uniseg.NewGraphemes(t.unmasked)
	for g.Next() {
		clusters = append(clusters, g.Str())
	}
	if len(clusters) > tinSuffixLen {
		clusters = clusters[len(clusters)-tinSuffixLen:]
	}
	return strings.Join(clusters, "")
}

// String returns the masked form, e.g. XXX-XX-6789.
func (t TIN) String() string {
	if t.IsZero() {
		return ""
	}
	return "XXX-XX-" + t.LastFew()
}

// MarshalJSON encodes the masked form only.
func (t TIN) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Address is a postal address.
type Address struct {
	Line1           string `json:"line_1"`
	Line2           string `json:"line_2,omitempty"`
	Line3           string `json:"line_3,omitempty"`
	City            string `json:"city"`
	StateOrProvince string `json:"state_or_province"`
	PostalCode      string `json:"postal_code"`
	Country         string `json:"country"`
}

// ErrAddressFormat is returned when an address does not match
// "line, city, ST 01234, country".
var ErrAddressFormat = errors.New("address must look like \"line, city, ST 01234, country\"")

var addressPattern = regexp.MustCompile(`^([^,]+), +([^,]+), +([[:alpha:]]{2}) +(\d{5}), +([^,]+)$`)

// ParseAddress parses a single-line US-style address.
func ParseAddress(s string) (Address, error) {
	m := addressPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Address{}, fmt.Errorf("%w: %q", ErrAddressFormat, s)
	}
	return Address{
		Line1:           m[1],
		City:            m[2],
		StateOrProvince: m[3],
		PostalCode:      m[4],
		Country:         m[5],
	}, nil
}

// String renders the address in the form ParseAddress accepts.
// Lines 2 and 3 are appended to line 1 when present.
func (a Address) String() string {
	line := a.Line1
	for _, extra := range []string{a.Line2, a.Line3} {
		if extra != "" {
			line += " " + extra
		}
	}
	return fmt.Sprintf("%s, %s, %s %s, %s", line, a.City, a.StateOrProvince, a.PostalCode, a.Country)
}

// OptionDate is a calendar date whose parts may be unknown (zero).
type OptionDate struct {
	Year  int
	Month int
	Day   int
}

var datePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// ParseOptionDate parses YYYY-MM-DD.
func ParseOptionDate(s string) (OptionDate, error) {
	m := datePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return OptionDate{}, fmt.Errorf("date must be YYYY-MM-DD: %q", s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > daysIn(year, month) {
		return OptionDate{}, fmt.Errorf("date out of range: %q", s)
	}
	return OptionDate{Year: year, Month: month, Day: day}, nil
}

// daysIn returns the number of days in month of year, proleptic Gregorian.
func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsZero reports whether no part of the date is known.
func (d OptionDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String renders YYYY-MM-DD, with ? for unknown parts.
func (d OptionDate) String() string {
	part := func(v, width int) string {
		if v == 0 {
			return strings.Repeat("?", width)
		}
		return fmt.Sprintf("%0*d", width, v)
	}
	return part(d.Year, 4) + "-" + part(d.Month, 2) + "-" + part(d.Day, 2)
}

// MarshalJSON encodes the date string, or null when unknown.
func (d OptionDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// OptionTime is a time of day. The zero value is unknown; midnight is
// represented with Known set.
type OptionTime struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
	Known      bool
}

var timePattern = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})(?:[:.](\d{9}))?$`)

// ParseOptionTime parses HH:MM:SS with an optional nine-digit nanosecond
// part separated by ':' or '.'.
func ParseOptionTime(s string) (OptionTime, error) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return OptionTime{}, fmt.Errorf("time must be HH:MM:SS[.NNNNNNNNN]: %q", s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second, _ := strconv.Atoi(m[3])
	nanos := 0
	if m[4] != "" {
		nanos, _ = strconv.Atoi(m[4])
	}
	if hour > 23 || minute > 59 || second > 59 {
		return OptionTime{}, fmt.Errorf("time out of range: %q", s)
	}
	return OptionTime{Hour: hour, Minute: minute, Second: second, Nanosecond: nanos, Known: true}, nil
}

// IsZero reports whether the time is unknown.
func (t OptionTime) IsZero() bool { return !t.Known }

// String renders HH:MM:SS.NNNNNNNNN, or ??:??:?? when unknown.
func (t OptionTime) String() string {
	if !t.Known {
		return "??:??:??"
	}
	return fmt.Sprintf("%02d:%02d:%02d.%09d", t.Hour, t.Minute, t.Second, t.Nanosecond)
}

// MarshalJSON encodes the time string, or null when unknown.
func (t OptionTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

// OptionDateTime is a date and a time of day, either of which may be unknown.
type OptionDateTime struct {
	Date OptionDate
	Time OptionTime
}

// ParseOptionDateTime parses a date and a time separated by a space or 'T',
// in the forms ParseOptionDate and ParseOptionTime accept.
func ParseOptionDateTime(s string) (OptionDateTime, error) {
	s = strings.TrimSpace(s)
	sep := strings.IndexAny(s, " T")
	if sep < 0 {
		return OptionDateTime{}, fmt.Errorf("date-time must be YYYY-MM-DD HH:MM:SS: %q", s)
	}
	date, err := ParseOptionDate(s[:sep])
	if err != nil {
		return OptionDateTime{}, err
	}
	clock, err := ParseOptionTime(s[sep+1:])
	if err != nil {
		return OptionDateTime{}, err
	}
	return OptionDateTime{Date: date, Time: clock}, nil
}

// IsZero reports whether neither part is known.
func (dt OptionDateTime) IsZero() bool {
	return dt.Date.IsZero() && dt.Time.IsZero()
}

// String renders the date, a space, then the time.
func (dt OptionDateTime) String() string {
	return dt.Date.String() + " " + dt.Time.String()
}

// MarshalJSON encodes the date-time string, or null when unknown.
func (dt OptionDateTime) MarshalJSON() ([]byte, error) {
	if dt.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(dt.String())
}
