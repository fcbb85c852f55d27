package schema

import (
	"fmt"
	"strings"
)

// Person is an individual's demographic record.
type Person struct {
	ID             RecordID           `json:"id"`
	Name           HumanName          `json:"name"`
	SSN            SSN                `json:"ssn"`
	BirthDate      OptionDate         `json:"birth_date"`
	Addresses      map[string]Address `json:"addresses,omitempty"`
	PhoneNumbers   ContactMap         `json:"phone_numbers,omitempty"`
	EmailAddresses ContactMap         `json:"email_addresses,omitempty"`
	Employers      []RecordID         `json:"employers,omitempty"`
}

// RecordID returns the person's identifier.
func (p *Person) RecordID() RecordID { return p.ID }

// Kind returns KindPerson.
func (p *Person) Kind() Kind { return KindPerson }

// FieldValues returns the strings indexed under field.
func (p *Person) FieldValues(field Field) []string {
	return fieldValues(field, p.Name.String(), p.SSN, p.Addresses)
}

// Fingerprint hashes the record. Addresses, contacts and employers are
// combined order-independently.
func (p *Person) Fingerprint() uint64 {
	employers := make(map[RecordID]struct{}, len(p.Employers))
	for _, e := range p.Employers {
		employers[e] = struct{}{}
	}
	return combine(
		hashString(string(KindPerson), string(p.ID), p.Name.String(), p.SSN.Unmasked(), p.BirthDate.String()),
		unorderedHash("address", p.Addresses, func(k string, a Address) string { return k + "=" + a.String() }),
		unorderedHash("phone", p.PhoneNumbers, func(k, v string) string { return k + "=" + v }),
		unorderedHash("email", p.EmailAddresses, func(k, v string) string { return k + "=" + v }),
		unorderedHash("employer", employers, func(k RecordID, _ struct{}) string { return string(k) }),
	)
}

// Organization is a company or facility record.
type Organization struct {
	ID             RecordID           `json:"id"`
	Name           string             `json:"name"`
	TIN            TIN                `json:"tin"`
	Addresses      map[string]Address `json:"addresses,omitempty"`
	PhoneNumbers   ContactMap         `json:"phone_numbers,omitempty"`
	EmailAddresses ContactMap         `json:"email_addresses,omitempty"`
}

// RecordID returns the organization's identifier.
func (o *Organization) RecordID() RecordID { return o.ID }

// Kind returns KindOrganization.
func (o *Organization) Kind() Kind { return KindOrganization }

// FieldValues returns the strings indexed under field.
func (o *Organization) FieldValues(field Field) []string {
	return fieldValues(field, o.Name, o.TIN, o.Addresses)
}

// Fingerprint hashes the record independently of map iteration order.
func (o *Organization) Fingerprint() uint64 {
	return combine(
		hashString(string(KindOrganization), string(o.ID), o.Name, o.TIN.Unmasked()),
		unorderedHash("address", o.Addresses, func(k string, a Address) string { return k + "=" + a.String() }),
		unorderedHash("phone", o.PhoneNumbers, func(k, v string) string { return k + "=" + v }),
		unorderedHash("email", o.EmailAddresses, func(k, v string) string { return k + "=" + v }),
	)
}

func fieldValues(field Field, name string, tin TIN, addresses map[string]Address) []string {
	switch field {
	case FieldName:
		if name == "" {
			return nil
		}
		return []string{name}
	case FieldTIN:
		if tin.IsZero() {
			return nil
		}
		return []string{tin.LastFew()}
	case FieldAddress:
		values := make([]string, 0, len(addresses))
		for _, label := range sortedKeys(addresses) {
			values = append(values, addresses[label].String())
		}
		return values
	}
	return nil
}

// RawRecord is the flat form of a record as read from input files.
type RawRecord struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Name      string            `json:"name"`
	TIN       string            `json:"tin"`
	BirthDate string            `json:"birth_date"`
	Addresses map[string]string `json:"addresses"`
	Phones    map[string]string `json:"phones"`
	Emails    map[string]string `json:"emails"`
	Employers []string          `json:"employers"`
}

// ToEntity parses the raw fields into a Person or Organization.
// Fields that are present but malformed are reported as errors.
func (r *RawRecord) ToEntity() (Entity, error) {
	if strings.TrimSpace(r.ID) == "" {
		return nil, fmt.Errorf("record has no id")
	}
	kind, err := ParseKind(r.Kind)
	if err != nil {
		return nil, err
	}

	var tin TIN
	if strings.TrimSpace(r.TIN) != "" {
		if tin, err = ParseTIN(r.TIN); err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
	}

	addresses := make(map[string]Address, len(r.Addresses))
	for label, raw := range r.Addresses {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		addr, err := ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("record %s address %q: %w", r.ID, label, err)
		}
		addresses[label] = addr
	}

	id := RecordID(strings.TrimSpace(r.ID))

	if kind == KindOrganization {
		return &Organization{
			ID:             id,
			Name:           strings.Join(strings.Fields(r.Name), " "),
			TIN:            tin,
			Addresses:      addresses,
			PhoneNumbers:   ContactMap(r.Phones),
			EmailAddresses: ContactMap(r.Emails),
		}, nil
	}

	var name HumanName
	if strings.TrimSpace(r.Name) != "" {
		name, _ = ParseHumanName(r.Name)
	}

	var birth OptionDate
	if strings.TrimSpace(r.BirthDate) != "" {
		if birth, err = ParseOptionDate(r.BirthDate); err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
	}

	employers := make([]RecordID, 0, len(r.Employers))
	for _, e := range r.Employers {
		if e = strings.TrimSpace(e); e != "" {
			employers = append(employers, RecordID(e))
		}
	}

	return &Person{
		ID:             id,
		Name:           name,
		SSN:            tin,
		BirthDate:      birth,
		Addresses:      addresses,
		PhoneNumbers:   ContactMap(r.Phones),
		EmailAddresses: ContactMap(r.Emails),
		Employers:      employers,
	}, nil
}
