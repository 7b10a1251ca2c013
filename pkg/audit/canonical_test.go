// Copyright 2025 Certen Protocol

package audit

import (
	"bytes"
	"testing"
)

func TestCanonicalizeJSON_SortsKeys(t *testing.T) {
	raw := []byte(`{"b":1,"a":2,"c":{"z":1,"y":2}}`)
	got, err := CanonicalizeJSON(raw)
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	want := []byte(`{"a":2,"b":1,"c":{"y":2,"z":1}}`)
	if !bytes.Equal(got, want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCanonicalizeJSON_PreservesArrayOrder(t *testing.T) {
	raw := []byte(`{"items":[3,1,2]}`)
	got, err := CanonicalizeJSON(raw)
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	want := []byte(`{"items":[3,1,2]}`)
	if !bytes.Equal(got, want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCanonicalizeJSON_Deterministic(t *testing.T) {
	raw := []byte(`{"z":1,"a":{"d":1,"c":2},"m":[1,2,3]}`)
	first, err := CanonicalizeJSON(raw)
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	second, err := CanonicalizeJSON(raw)
	if err != nil {
		t.Fatalf("canonicalize failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("canonicalization is not deterministic")
	}
}

func TestMarshalCanonical(t *testing.T) {
	type payload struct {
		B int `json:"b"`
		A int `json:"a"`
	}
	got, err := MarshalCanonical(payload{B: 1, A: 2})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := []byte(`{"a":2,"b":1}`)
	if !bytes.Equal(got, want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCanonicalizeJSON_InvalidInput(t *testing.T) {
	_, err := CanonicalizeJSON([]byte("not json"))
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}
