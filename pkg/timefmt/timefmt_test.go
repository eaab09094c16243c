package timefmt

import "testing"

func TestFormatMillis(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		ms   int64
		want string
	}{
		{name: "finished at zero", ms: 0, want: "Finished"},
		{name: "finished when negative", ms: -5000, want: "Finished"},
		{name: "sub second", ms: 420, want: "<1s"},
		{name: "seconds only", ms: 42_000, want: "42s"},
		{name: "minutes and seconds", ms: 125_000, want: "2m 5s"},
		{name: "no seconds at one hour", ms: 3_605_000, want: "1h"},
		{name: "hours and minutes", ms: 7_560_000, want: "2h 6m"},
		{name: "days", ms: 100 * 3_600_000, want: "4d 4h"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatMillis(tt.ms); got != tt.want {
				t.Fatalf("FormatMillis(%d) = %q, want %q", tt.ms, got, tt.want)
			}
		})
	}
}
