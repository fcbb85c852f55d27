package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseHumanName(t *testing.T) {
	name, err := ParseHumanName("  Jane   Q  Doe ")
	if err != nil {
		t.Fatalf("ParseHumanName error: %v", err)
	}
	if name.Form != NameFallback {
		t.Errorf("Form = %v, want NameFallback", name.Form)
	}
	if got := name.String(); got != "Jane Q Doe" {
		t.Errorf("String() = %q, want %q", got, "Jane Q Doe")
	}

	if _, err := ParseHumanName("   "); !errors.Is(err, ErrEmptyName) {
		t.Errorf("ParseHumanName(blank) error = %v, want ErrEmptyName", err)
	}
}

func TestTIN(t *testing.T) {
	tests := []struct {
		input   string
		lastFew string
		display string
	}{
		{"123-45-6789", "6789", "XXX-XX-6789"},
		{"987-65-4321", "4321", "XXX-XX-4321"},
		{"12", "12", "XXX-XX-12"},
		{"12345\u00e9\u00e9", "45\u00e9\u00e9", "XXX-XX-45\u00e9\u00e9"},
		{"1234e\u0301", "234e\u0301", "XXX-XX-234e\u0301"},
	}

	for _, tt := range tests {
		tin, err := ParseTIN(tt.input)
		if err != nil {
			t.Fatalf("ParseTIN(%q) error: %v", tt.input, err)
		}
		if got := tin.LastFew(); got != tt.lastFew {
			t.Errorf("LastFew(%q) = %q, want %q", tt.input, got, tt.lastFew)
		}
		if got := tin.String(); got != tt.display {
			t.Errorf("String(%q) = %q, want %q", tt.input, got, tt.display)
		}
		if tin.Unmasked() != tt.input {
			t.Errorf("Unmasked() = %q, want %q", tin.Unmasked(), tt.input)
		}
	}

	if _, err := ParseTIN(" "); err == nil {
		t.Error("ParseTIN(blank) should fail")
	}
}

func TestTINMarshalMasks(t *testing.T) {
	tin, _ := ParseTIN("578-90-1234")
	data, err := json.Marshal(tin)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "578") {
		t.Errorf("marshaled TIN leaks digits: %s", data)
	}
	if string(data) != `"XXX-XX-1234"` {
		t.Errorf("marshaled TIN = %s", data)
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("123 Main St, Anytown, NJ 01234, United States")
	if err != nil {
		t.Fatalf("ParseAddress error: %v", err)
	}

	if addr.Line1 != "123 Main St" || addr.City != "Anytown" || addr.StateOrProvince != "NJ" ||
		addr.PostalCode != "01234" || addr.Country != "United States" {
		t.Errorf("ParseAddress = %+v", addr)
	}
	if got := addr.String(); got != "123 Main St, Anytown, NJ 01234, United States" {
		t.Errorf("String() = %q", got)
	}

	addr.Line2 = "Apt 4"
	if got := addr.String(); got != "123 Main St Apt 4, Anytown, NJ 01234, United States" {
		t.Errorf("String() with line 2 = %q", got)
	}

	for _, bad := range []string{"", "123 Main St", "1 A, B, NJ 123, US", "1 A, B, NJX 12345, US"} {
		if _, err := ParseAddress(bad); !errors.Is(err, ErrAddressFormat) {
			t.Errorf("ParseAddress(%q) error = %v, want ErrAddressFormat", bad, err)
		}
	}
}

func TestParseOptionDate(t *testing.T) {
	d, err := ParseOptionDate("1970-01-01")
	if err != nil {
		t.Fatalf("ParseOptionDate error: %v", err)
	}
	if d.Year != 1970 || d.Month != 1 || d.Day != 1 {
		t.Errorf("ParseOptionDate = %+v", d)
	}
	if d.String() != "1970-01-01" {
		t.Errorf("String() = %q", d.String())
	}

	partial := OptionDate{Year: 1980}
	if partial.String() != "1980-??-??" {
		t.Errorf("partial String() = %q", partial.String())
	}

	tests := []struct {
		in string
		ok bool
	}{
		{"2024-02-29", true},
		{"2000-02-29", true},
		{"1999-12-31", true},
		{"2024-04-30", true},
		{"2023-02-29", false},
		{"1900-02-29", false},
		{"2024-02-31", false},
		{"2024-04-31", false},
		{"1970-1-1", false},
		{"01/01/1970", false},
		{"1970-13-01", false},
		{"1970-00-10", false},
		{"1970-01-00", false},
	}
	for _, tt := range tests {
		_, err := ParseOptionDate(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseOptionDate(%q) error = %v, want ok = %v", tt.in, err, tt.ok)
		}
	}
}

func TestParseOptionTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"00:00:00", "00:00:00.000000000", true},
		{"08:30:05:000000123", "08:30:05.000000123", true},
		{"23:59:59.999999999", "23:59:59.999999999", true},
		{"24:00:00", "", false},
		{"12:60:00", "", false},
		{"12:00:60", "", false},
		{"8:30:05", "", false},
		{"08:30:05.123", "", false},
	}
	for _, tt := range tests {
		got, err := ParseOptionTime(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseOptionTime(%q) error = %v, want ok = %v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got.String() != tt.want {
			t.Errorf("ParseOptionTime(%q) = %q, want %q", tt.in, got.String(), tt.want)
		}
	}

	var unknown OptionTime
	if !unknown.IsZero() || unknown.String() != "??:??:??" {
		t.Errorf("zero OptionTime = %q, IsZero %v", unknown.String(), unknown.IsZero())
	}
	midnight, _ := ParseOptionTime("00:00:00")
	if midnight.IsZero() {
		t.Error("midnight should be a known time")
	}
}

func TestParseOptionDateTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-02-29 08:30:05", "2024-02-29 08:30:05.000000000", true},
		{"1970-01-01T00:00:00:000000001", "1970-01-01 00:00:00.000000001", true},
		{"2024-02-31 08:30:05", "", false},
		{"2024-02-29 25:00:00", "", false},
		{"2024-02-29", "", false},
	}
	for _, tt := range tests {
		got, err := ParseOptionDateTime(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseOptionDateTime(%q) error = %v, want ok = %v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got.String() != tt.want {
			t.Errorf("ParseOptionDateTime(%q) = %q, want %q", tt.in, got.String(), tt.want)
		}
	}

	data, err := json.Marshal(OptionDateTime{})
	if err != nil || string(data) != "null" {
		t.Errorf("Marshal(OptionDateTime{}) = %s, %v; want null", data, err)
	}
}

func TestParseField(t *testing.T) {
	for _, f := range AllFields {
		got, err := ParseField(strings.ToUpper(string(f)))
		if err != nil || got != f {
			t.Errorf("ParseField(%q) = %q, %v", f, got, err)
		}
	}
	if _, err := ParseField("phone"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("ParseField(phone) error = %v, want ErrUnknownField", err)
	}
}

func TestRawRecordToPerson(t *testing.T) {
	raw := &RawRecord{
		ID:        "p1",
		Name:      "John  Smith",
		TIN:       "578-90-1234",
		BirthDate: "1980-01-01",
		Addresses: map[string]string{
			"work": "567 Main St, Anytown, NJ 01234, United States",
			"home": "123 Main St, Anytown, NJ 01234, United States",
		},
		Phones:    map[string]string{"home": "555-1212"},
		Employers: []string{"o1", " "},
	}

	entity, err := raw.ToEntity()
	if err != nil {
		t.Fatalf("ToEntity error: %v", err)
	}
	p, ok := entity.(*Person)
	if !ok {
		t.Fatalf("ToEntity returned %T, want *Person", entity)
	}
	if p.Kind() != KindPerson || p.RecordID() != "p1" {
		t.Errorf("Kind/RecordID = %s/%s", p.Kind(), p.RecordID())
	}
	if len(p.Employers) != 1 {
		t.Errorf("Employers = %v, want [o1]", p.Employers)
	}

	if got := p.FieldValues(FieldName); len(got) != 1 || got[0] != "John Smith" {
		t.Errorf("FieldValues(name) = %v", got)
	}
	if got := p.FieldValues(FieldTIN); len(got) != 1 || got[0] != "1234" {
		t.Errorf("FieldValues(tin) = %v", got)
	}
	addrs := p.FieldValues(FieldAddress)
	if len(addrs) != 2 || !strings.HasPrefix(addrs[0], "123 Main St") {
		t.Errorf("FieldValues(address) = %v, want home then work", addrs)
	}
}

func TestRawRecordToOrganization(t *testing.T) {
	raw := &RawRecord{ID: "o1", Kind: "org", Name: "ACME Widgets Inc.", TIN: "987-65-4321"}
	entity, err := raw.ToEntity()
	if err != nil {
		t.Fatalf("ToEntity error: %v", err)
	}
	org, ok := entity.(*Organization)
	if !ok {
		t.Fatalf("ToEntity returned %T, want *Organization", entity)
	}
	if org.Name != "ACME Widgets Inc." || org.TIN.LastFew() != "4321" {
		t.Errorf("Organization = %+v", org)
	}
	if got := org.FieldValues(FieldAddress); len(got) != 0 {
		t.Errorf("FieldValues(address) = %v, want none", got)
	}
}

func TestRawRecordErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  RawRecord
	}{
		{"missing id", RawRecord{Name: "Jane Doe"}},
		{"bad kind", RawRecord{ID: "x", Kind: "robot"}},
		{"bad date", RawRecord{ID: "x", BirthDate: "01/01/1970"}},
		{"bad address", RawRecord{ID: "x", Addresses: map[string]string{"home": "nowhere"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.raw.ToEntity(); err == nil {
				t.Error("ToEntity should fail")
			}
		})
	}
}

func TestFingerprintOrderIndependent(t *testing.T) {
	build := func(order []string) *Person {
		p := &Person{
			ID:             "p1",
			PhoneNumbers:   ContactMap{},
			EmailAddresses: ContactMap{},
		}
		p.Name, _ = ParseHumanName("Jane Doe")
		for _, k := range order {
			p.PhoneNumbers[k] = "555-" + k
			p.EmailAddresses[k] = k + "@example.com"
			p.Employers = append(p.Employers, RecordID("org-"+k))
		}
		return p
	}

	a := build([]string{"home", "work", "cell", "fax"})
	b := build([]string{"fax", "cell", "work", "home"})
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("Fingerprint depends on insertion order")
	}

	b.PhoneNumbers["home"] = "555-0000"
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("Fingerprint did not change with contents")
	}

	org := &Organization{ID: "p1", Name: "Jane Doe"}
	if org.Fingerprint() == (&Person{ID: "p1", Name: HumanName{Components: []string{"Jane", "Doe"}}}).Fingerprint() {
		t.Error("person and organization with the same id and name share a fingerprint")
	}
}

func TestPersonMarshalJSON(t *testing.T) {
	raw := &RawRecord{ID: "p1", Name: "Jane Doe", TIN: "123-45-6789", BirthDate: "1970-01-01"}
	entity, err := raw.ToEntity()
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(entity)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["name"] != "Jane Doe" {
		t.Errorf("name = %v", decoded["name"])
	}
	if decoded["ssn"] != "XXX-XX-6789" {
		t.Errorf("ssn = %v", decoded["ssn"])
	}
	if decoded["birth_date"] != "1970-01-01" {
		t.Errorf("birth_date = %v", decoded["birth_date"])
	}
}
