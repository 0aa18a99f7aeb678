package repositories

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "addresses.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestReadAddressSeeds(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		want    []string
		wantErr bool
	}{
		{
			name: "normalizes whitespace",
			body: `[{"address": " 221B  Baker St "}, {"address": "10 Downing St"}]`,
			want: []string{"221B Baker St", "10 Downing St"},
		},
		{name: "empty list", body: `[]`, want: []string{}},
		{name: "blank address", body: `[{"address": "   "}]`, wantErr: true},
		{name: "bad json", body: `{"address":`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := readAddressSeeds(writeSeed(t, tc.body))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestReadAddressSeedsMissingFile(t *testing.T) {
	if _, err := readAddressSeeds(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
