package guard

import (
	"regexp"
)

// based on: https://stackoverflow.com/a/48769624, with no trailing period allowed
var urlRegex = regexp.MustCompile(`(?:(?:https?|ftp):\/\/)?[\w/\-?=%.]+\.[\w/\-&?=%.]*[\w/\-&?=%]+`)

// ExtractTextURLs returns every URL-shaped substring in raw text, including
// bare domains without a scheme.
func ExtractTextURLs(raw string) []string {
	return urlRegex.FindAllString(raw, -1)
}
