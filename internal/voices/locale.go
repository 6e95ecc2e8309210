package voices

import (
	"strings"

	"golang.org/x/text/language"
)

// localeVars are consulted in order, like gettext does.
var localeVars = []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"}

// PreferredLanguages returns BCP 47 tags, most preferred first. A non-empty
// override (comma or colon separated) wins; otherwise the POSIX locale variables are
// read through getenv. Falls back to en-US.
func PreferredLanguages(override string, getenv func(string) string) []string {
	var raw []string
	if strings.TrimSpace(override) != "" {
		raw = strings.FieldsFunc(override, func(r rune) bool { return r == ',' || r == ':' })
	} else {
		for _, name := range localeVars {
			v := getenv(name)
			if v == "" {
				continue
			}
			if name == "LANGUAGE" {
				raw = append(raw, strings.Split(v, ":")...)
				continue
			}
			raw = append(raw, v)
		}
	}

	seen := make(map[string]bool)
	var out []string
	for _, r := range raw {
		tag, ok := canonical(r)
		if !ok || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) == 0 {
		return []string{"en-US"}
	}
	return out
}

// canonical turns "en_GB.UTF-8@euro" into "en-GB". C and POSIX are skipped.
func canonical(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	if s == "" || s == "C" || s == "POSIX" {
		return "", false
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return "", false
	}
	return tag.String(), true
}
