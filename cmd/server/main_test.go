package main

import "testing"

func TestValidatePINStrength(t *testing.T) {
	cases := []struct {
		pin string
		ok  bool
	}{
		{"492817", true},
		{"12345", false},
		{"123456", false},
		{"111111", false},
		{"999999", false},
		{"345678", false},
		{"876543", false},
		{"804152", true},
	}
	for _, tc := range cases {
		err := validatePINStrength(tc.pin)
		if tc.ok && err != nil {
			t.Errorf("pin %q: unexpected error %v", tc.pin, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("pin %q: expected rejection", tc.pin)
		}
	}
}
