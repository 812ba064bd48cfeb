package types

import (
	"testing"
	"time"
)

func TestPathValueAndConverted(t *testing.T) {
	var p Path
	if p.Value() != 0 {
		t.Fatalf("expected zero value for nil conversion")
	}
	if p.Converted() {
		t.Fatalf("path without conversion_at should not be converted")
	}

	v := 42.5
	now := time.Now()
	p.ConversionValue = &v
	p.ConversionAt = &now
	if p.Value() != 42.5 || !p.Converted() {
		t.Fatalf("unexpected path state: %+v", p)
	}
}

func TestRawEventIsConversion(t *testing.T) {
	empty := ""
	purchase := "purchase"
	if (RawEvent{}).IsConversion() {
		t.Fatal("nil conversion type is not a conversion")
	}
	if (RawEvent{ConversionType: &empty}).IsConversion() {
		t.Fatal("blank conversion type is not a conversion")
	}
	if !(RawEvent{ConversionType: &purchase}).IsConversion() {
		t.Fatal("expected conversion")
	}
}
