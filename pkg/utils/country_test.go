package utils

import "testing"

func TestCountryCodeRoundTrip(t *testing.T) {
	cases := map[string]string{
		"iceland":           "ICELAND",
		"united-kingdom-uk": "UNITED_KINGDOM_UK",
		"france":            "FRANCE",
	}
	for filename, code := range cases {
		if got := CountryFilenameToCode(filename); got != code {
			t.Fatalf("CountryFilenameToCode(%q)=%q; want %q", filename, got, code)
		}
		if got := CountryCodeToFilename(code); got != filename {
			t.Fatalf("CountryCodeToFilename(%q)=%q; want %q", code, got, filename)
		}
	}
}
