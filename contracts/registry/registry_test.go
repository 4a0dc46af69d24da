package registry

import "testing"

func TestEncodeDecodeCompany(t *testing.T) {
	rec := CompanyRecord{
		Name:        "Sark Industries",
		Handle:      "sark",
		Email:       "board@sark.company",
		Director:    "Alice Director",
		TotalShares: 1000,
	}

	raw, err := EncodeCompany(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeCompany(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != rec {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, rec)
	}
}

func TestDecodeZeroRecordMeansNotFound(t *testing.T) {
	raw := make([]Field, recordSlots)
	got, err := DecodeCompany(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected zero record, got %+v", got)
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	rec := CompanyRecord{Name: "X", Handle: "x", TotalShares: 1}
	raw, err := EncodeCompany(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	raw[slotVersion] = uintField(99)

	if _, err := DecodeCompany(raw); err == nil {
		t.Fatal("expected error for unknown schema version")
	}
}

func TestDecodeRejectsShortTuple(t *testing.T) {
	if _, err := DecodeCompany(make([]Field, 2)); err == nil {
		t.Fatal("expected error for short tuple")
	}
}

func TestEncodeRejectsOversizedString(t *testing.T) {
	rec := CompanyRecord{
		Name:   "this name is far far far too long to pack into one field element",
		Handle: "x",
	}
	if _, err := EncodeCompany(rec); err == nil {
		t.Fatal("expected error for oversized string")
	}
}
