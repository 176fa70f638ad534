package service

import "testing"

func TestRedactKeys(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "redacts apiKey in URL",
			in:   `Get "https://api.the-odds-api.com/v4/sports?apiKey=secret123&regions=us": connection refused`,
			want: `Get "https://api.the-odds-api.com/v4/sports?apiKey=[REDACTED]&regions=us": connection refused`,
		},
		{
			name: "redacts apiKey at end of URL",
			in:   `https://api.the-odds-api.com/v4/sports?apiKey=secret123`,
			want: `https://api.the-odds-api.com/v4/sports?apiKey=[REDACTED]`,
		},
		{
			name: "redacts api_key variant",
			in:   `https://example.com/data?api_key=secret`,
			want: `https://example.com/data?api_key=[REDACTED]`,
		},
		{
			name: "redacts case-insensitively",
			in:   `https://example.com/data?APIKEY=secret`,
			want: `https://example.com/data?APIKEY=[REDACTED]`,
		},
		{
			name: "no key unchanged",
			in:   "connection refused",
			want: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactKeys(tt.in); got != tt.want {
				t.Errorf("RedactKeys() = %q, want %q", got, tt.want)
			}
		})
	}
}
