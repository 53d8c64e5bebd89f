package objectstore

import "testing"

func TestParseURL(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{
			name:       "simple",
			url:        "s3://data-bucket/customers.csv",
			wantBucket: "data-bucket",
			wantKey:    "customers.csv",
		},
		{
			name:       "nested key",
			url:        "s3://b/charts/abc123/plot.png",
			wantBucket: "b",
			wantKey:    "charts/abc123/plot.png",
		},
		{
			name:    "wrong scheme",
			url:     "https://example.com/x.csv",
			wantErr: true,
		},
		{
			name:    "missing key",
			url:     "s3://bucket-only",
			wantErr: true,
		},
		{
			name:    "empty",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := ParseURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseURL(%q) = (%q, %q), want error", tt.url, bucket, key)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseURL(%q) error: %v", tt.url, err)
			}
			if bucket != tt.wantBucket || key != tt.wantKey {
				t.Errorf("ParseURL(%q) = (%q, %q), want (%q, %q)",
					tt.url, bucket, key, tt.wantBucket, tt.wantKey)
			}
		})
	}
}

func TestURL(t *testing.T) {
	if got := URL("b", "charts/x.png"); got != "s3://b/charts/x.png" {
		t.Errorf("URL() = %q", got)
	}
}
