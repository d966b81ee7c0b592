package policy

import (
	"errors"
	"testing"
)

func TestDefaultBounds(t *testing.T) {
	tests := []struct {
		seconds    int
		wantReason string
	}{
		{0, "too short"},
		{4, "too short"},
		{5, ""},
		{30, ""},
		{600, ""},
		{601, "too long"},
		{36000, "too long"},
	}

	p := Default()
	for _, tt := range tests {
		err := p.Validate(tt.seconds)
		if tt.wantReason == "" {
			if err != nil {
				t.Errorf("Validate(%d) = %v, want ok", tt.seconds, err)
			}
			continue
		}
		var rej *Rejection
		if !errors.As(err, &rej) {
			t.Fatalf("Validate(%d) = %v, want Rejection", tt.seconds, err)
		}
		if rej.Reason != tt.wantReason {
			t.Errorf("Validate(%d) reason = %q, want %q", tt.seconds, rej.Reason, tt.wantReason)
		}
		if !errors.Is(err, ErrRejected) {
			t.Errorf("Validate(%d) should match ErrRejected", tt.seconds)
		}
	}
}

func TestValidateIsOkIffWithinBounds(t *testing.T) {
	p := Default()
	for d := 0; d <= 700; d++ {
		ok := p.Validate(d) == nil
		want := d >= 5 && d <= 600
		if ok != want {
			t.Fatalf("Validate(%d) ok=%v, want %v", d, ok, want)
		}
	}
}

func TestCustomBounds(t *testing.T) {
	p := NewDuration(10, 20)
	if err := p.Validate(10); err != nil {
		t.Errorf("lower bound should be inclusive: %v", err)
	}
	if err := p.Validate(21); err == nil {
		t.Error("expected 21 to be rejected")
	}
}
