package utils

import "testing"

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"amel@example.com", true},
		{"  amel@example.com ", true},
		{"Amel <amel@example.com>", false},
		{"amel@localhost", false},
		{"not-an-email", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidEmail(tt.in); got != tt.want {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPhoneHelpers(t *testing.T) {
	if got := DigitsOnly(" +216 (12) 345-678 "); got != "+21612345678" {
		t.Fatalf("DigitsOnly = %q", got)
	}
	if !IsValidPhone("+216 12 345 678") {
		t.Fatal("expected valid phone")
	}
	if IsValidPhone("+12 34") {
		t.Fatal("expected short phone to be invalid")
	}
}

func TestOrDefault(t *testing.T) {
	if OrDefault("  ", "Not specified") != "Not specified" {
		t.Fatal("blank should fall back")
	}
	if OrDefault("French", "Not specified") != "French" {
		t.Fatal("value should be kept")
	}
}
