package settings

import (
	"regexp"
	"sort"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{([^{}\s]+)\}`)

// Render substitutes {name} placeholders in content. Overrides win over
// defaults for the same name. Substituted text is never expanded again, and
// placeholders without a value are left as they are.
//
// Rendering is not idempotent when a value itself contains {name} text.
func Render(content string, defaults, overrides map[string]string) string {
	effective := make(map[string]string, len(defaults)+len(overrides))
	for k, v := range defaults {
		effective[k] = v
	}
	for k, v := range overrides {
		effective[k] = v
	}
	if len(effective) == 0 {
		return content
	}

	keys := make([]string, 0, len(effective))
	for k := range effective {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", effective[k])
	}
	return strings.NewReplacer(pairs...).Replace(content)
}

// Placeholders lists the distinct placeholder names in content in order of
// first appearance
func Placeholders(content string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}
	return names
}

// Unresolved lists placeholders in content that have neither a default nor an override
func Unresolved(content string, defaults, overrides map[string]string) []string {
	var missing []string
	for _, name := range Placeholders(content) {
		if _, ok := overrides[name]; ok {
			continue
		}
		if _, ok := defaults[name]; ok {
			continue
		}
		missing = append(missing, name)
	}
	return missing
}
