package utils

import "strings"

// CountryFilenameToCode converts a source-list filename stem to a country
// code: "united-kingdom-uk" -> "UNITED_KINGDOM_UK".
func CountryFilenameToCode(filename string) string {
	return strings.ReplaceAll(strings.ToUpper(filename), "-", "_")
}

// CountryCodeToFilename converts a country code to its filename stem:
// "UNITED_KINGDOM_UK" -> "united-kingdom-uk".
func CountryCodeToFilename(code string) string {
	return strings.ReplaceAll(strings.ToLower(code), "_", "-")
}
