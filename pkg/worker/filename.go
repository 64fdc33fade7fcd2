package worker

import (
	"crypto/md5"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"dreambatch/pkg/genapi"
)

// maxNameLength caps the sanitized prompt folder name, counted in runes.
// Longer prompts keep a prefix plus a short hash so distinct prompts stay
// distinct.
const maxNameLength = 50

var invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeName converts an arbitrary prompt string into a safe folder
// name. Length is counted and cut in runes so multi-byte prompts never
// truncate mid-character. The result is deterministic: the same input
// always produces the same name.
func SanitizeName(name string) string {
	sanitized := invalidNameChars.ReplaceAllString(name, "_")
	sanitized = strings.Trim(sanitized, " .")
	if runes := []rune(sanitized); len(runes) > maxNameLength {
		hash := fmt.Sprintf("%x", md5.Sum([]byte(name)))[:8]
		sanitized = string(runes[:maxNameLength-9]) + "_" + hash
	}
	if sanitized == "" {
		return "unnamed"
	}
	return sanitized
}

// ImageRelPath derives the output path for one generated image, relative
// to the worker's output directory. It is a pure function of the prompt
// text, the 1-based image index, and the format hint in the URL.
func ImageRelPath(prompt string, index int, imageURL string) string {
	ext := genapi.ExtensionFromURL(imageURL)
	return filepath.Join(SanitizeName(prompt), fmt.Sprintf("image_%d%s", index, ext))
}
