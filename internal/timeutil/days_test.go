package timeutil

import (
	"testing"
	"time"
)

func TestNormalizeDay_Abbreviations(t *testing.T) {
	sets := map[string][]string{
		"short": {"M", "Tu", "W", "Th", "F", "Sa", "Su"},
		"three": {"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
	}
	for name, tokens := range sets {
		t.Run(name, func(t *testing.T) {
			seen := make(map[string]bool)
			for i, tok := range tokens {
				got, ok := NormalizeDay(tok)
				if !ok {
					t.Fatalf("NormalizeDay(%q) did not resolve", tok)
				}
				if got != weekdays[i] {
					t.Errorf("NormalizeDay(%q) = %q, want %q", tok, got, weekdays[i])
				}
				if seen[got] {
					t.Errorf("NormalizeDay(%q) = %q collides with another token", tok, got)
				}
				seen[got] = true
			}
		})
	}
}

func TestNormalizeDay(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Monday", "Monday", true},
		{"  friday ", "Friday", true},
		{"WEDNESDAY", "Wednesday", true},
		{"Thurs.", "Thursday", true},
		{"tue,", "Tuesday", true},
		{"Tuesday (week A)", "Tuesday", true},
		{"Every Monday and Friday", "Monday", true},
		{"Someday", "", false},
		{"T", "", false},
		{"S", "", false},
		{"", "", false},
		{"Holiday", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeDay(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("NormalizeDay(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTimeWeekday(t *testing.T) {
	if wd, ok := TimeWeekday("Monday"); !ok || wd != time.Monday {
		t.Errorf("TimeWeekday(Monday) = %v, %v", wd, ok)
	}
	if wd, ok := TimeWeekday("Sunday"); !ok || wd != time.Sunday {
		t.Errorf("TimeWeekday(Sunday) = %v, %v", wd, ok)
	}
	if _, ok := TimeWeekday("Funday"); ok {
		t.Error("expected unknown day to fail")
	}
}
