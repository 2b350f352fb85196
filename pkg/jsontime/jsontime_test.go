package jsontime

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMilli_JSON(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	ep := Milli(now)

	data, err := json.Marshal(ep)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var restored Milli
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if !restored.Time().Equal(now) {
		t.Errorf("roundtrip: got %v, want %v", restored.Time(), now)
	}
}

func TestMilli_MarshalValue(t *testing.T) {
	ep := Milli(time.UnixMilli(1700000000123))
	data, err := json.Marshal(ep)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(data) != "1700000000123" {
		t.Errorf("Marshal = %s; want 1700000000123", data)
	}
}

func TestMilli_Ordering(t *testing.T) {
	a := Milli(time.UnixMilli(1000))
	b := Milli(time.UnixMilli(2000))

	if !a.Before(b) {
		t.Error("a.Before(b) = false; want true")
	}
	if !b.After(a) {
		t.Error("b.After(a) = false; want true")
	}
	if b.Sub(a) != time.Second {
		t.Errorf("b.Sub(a) = %v; want 1s", b.Sub(a))
	}
}

func TestMilli_IsZero(t *testing.T) {
	var ep Milli
	if !ep.IsZero() {
		t.Error("zero Milli IsZero() = false; want true")
	}
	if NowEpochMilli().IsZero() {
		t.Error("NowEpochMilli().IsZero() = true; want false")
	}
}
