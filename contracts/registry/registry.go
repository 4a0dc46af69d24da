// Package registry holds the wire schema for records stored by the on-chain
// CompanyRegistry contract and the codec between those raw field elements and
// typed records.
//
// The contract returns opaque tuples of 32-byte field elements. Everything
// above the ledger adapter must only ever see the typed CompanyRecord; this
// package is the single place where raw fields are interpreted, keyed by an
// explicit schema version so contract upgrades fail loudly instead of
// producing garbage records.
package registry

import (
	"fmt"
)

// SchemaVersion is the record layout this codec understands. Slot 0 of every
// raw record carries the version the contract wrote it with.
const SchemaVersion = 1

// FieldSize is the width of a single on-chain field element in bytes.
const FieldSize = 32

// Field is one raw on-chain field element, big-endian.
type Field [FieldSize]byte

// Record slot layout for schema version 1.
const (
	slotVersion = iota
	slotName
	slotHandle
	slotEmail
	slotDirector
	slotTotalShares
	recordSlots
)

// CompanyRecord is the typed form of an on-chain company entry.
type CompanyRecord struct {
	Name        string
	Handle      string
	Email       string
	Director    string
	TotalShares int64
}

// IsZero reports whether the record decodes to "no such company". The
// contract returns an all-zero tuple for unknown handles.
func (r CompanyRecord) IsZero() bool {
	return r.Handle == ""
}

// EncodeCompany packs a typed record into raw field elements using the
// current schema version. String attributes longer than a field element are
// rejected rather than truncated.
func EncodeCompany(rec CompanyRecord) ([]Field, error) {
	raw := make([]Field, recordSlots)
	raw[slotVersion] = uintField(SchemaVersion)

	for _, f := range []struct {
		slot  int
		name  string
		value string
	}{
		{slotName, "name", rec.Name},
		{slotHandle, "handle", rec.Handle},
		{slotEmail, "email", rec.Email},
		{slotDirector, "director", rec.Director},
	} {
		field, err := stringField(f.value)
		if err != nil {
			return nil, fmt.Errorf("encode company %s: %w", f.name, err)
		}
		raw[f.slot] = field
	}

	if rec.TotalShares < 0 {
		return nil, fmt.Errorf("encode company total shares: negative value %d", rec.TotalShares)
	}
	raw[slotTotalShares] = uintField(uint64(rec.TotalShares))
	return raw, nil
}

// DecodeCompany interprets raw field elements as a CompanyRecord. It fails on
// short tuples and on schema versions this codec does not know.
func DecodeCompany(raw []Field) (CompanyRecord, error) {
	if len(raw) < recordSlots {
		return CompanyRecord{}, fmt.Errorf("decode company: expected %d field elements, got %d", recordSlots, len(raw))
	}

	version := fieldUint(raw[slotVersion])
	if version == 0 {
		// All-zero record: the contract's way of saying "not found".
		return CompanyRecord{}, nil
	}
	if version != SchemaVersion {
		return CompanyRecord{}, fmt.Errorf("decode company: unsupported schema version %d", version)
	}

	return CompanyRecord{
		Name:        fieldString(raw[slotName]),
		Handle:      fieldString(raw[slotHandle]),
		Email:       fieldString(raw[slotEmail]),
		Director:    fieldString(raw[slotDirector]),
		TotalShares: int64(fieldUint(raw[slotTotalShares])),
	}, nil
}

// stringField packs ASCII bytes right-aligned into a single field element,
// matching how the contract stores short strings.
func stringField(s string) (Field, error) {
	var f Field
	if len(s) > FieldSize {
		return f, fmt.Errorf("string %q exceeds %d bytes", s, FieldSize)
	}
	copy(f[FieldSize-len(s):], s)
	return f, nil
}

// fieldString recovers a packed string, skipping zero padding bytes.
func fieldString(f Field) string {
	out := make([]byte, 0, FieldSize)
	for _, b := range f {
		if b != 0 {
			out = append(out, b)
		}
	}
	return string(out)
}

func uintField(v uint64) Field {
	var f Field
	for i := 0; i < 8; i++ {
		f[FieldSize-1-i] = byte(v >> (8 * i))
	}
	return f
}

func fieldUint(f Field) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(f[FieldSize-1-i]) << (8 * i)
	}
	return v
}
