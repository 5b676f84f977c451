package utils

import "github.com/microcosm-cc/bluemonday"

var (
	sanitizer       = bluemonday.UGCPolicy()
	strictSanitizer = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// SanitizeStrict strips all markup. Used for titles and categories where no
// HTML is ever legitimate.
func SanitizeStrict(input string) string {
	return strictSanitizer.Sanitize(input)
}
