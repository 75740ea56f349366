package passenger

import (
	"regexp"
	"strings"
)

var (
	formDatePattern = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
	isoDatePattern  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

// ToISODate converts a form date "dd/mm/yyyy" into Odoo's "yyyy-mm-dd".
// Input that does not match the pattern exactly is returned unchanged, which
// lets already-ISO values through. Day and month ranges are not checked.
func ToISODate(s string) string {
	m := formDatePattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return m[3] + "-" + m[2] + "-" + m[1]
}

// FromISODate is the inverse of ToISODate, used when records are loaded.
// Non-matching input is returned unchanged.
func FromISODate(s string) string {
	m := isoDatePattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return m[3] + "/" + m[2] + "/" + m[1]
}

// Canonical enumeration values stored upstream.
const (
	SexMale        = "MALE"
	SexFemale      = "FEMALE"
	MaritalSingle  = "SINGLE"
	MaritalMarried = "MARRIED"
	RatherNotSay   = "RATHER_NOT_SAY"
)

var ratherNotSaySynonyms = map[string]bool{
	"rather not say":    true,
	"rather_not_say":    true,
	"prefer not to say": true,
}

// normalizeEnum trims and lower-cases s, maps it through known, and falls back
// to the trimmed original. ok is false for empty input.
func normalizeEnum(s string, known map[string]string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", false
	}
	key := strings.ToLower(trimmed)
	if ratherNotSaySynonyms[key] {
		return RatherNotSay, true
	}
	if v, ok := known[key]; ok {
		return v, true
	}
	return trimmed, true
}

var sexValues = map[string]string{
	"male":   SexMale,
	"female": SexFemale,
}

var maritalValues = map[string]string{
	"single":  MaritalSingle,
	"married": MaritalMarried,
}

// NormalizeSex maps free-form sex values to MALE, FEMALE or RATHER_NOT_SAY.
// Unknown non-empty values are returned trimmed; empty input yields ok == false.
func NormalizeSex(s string) (string, bool) {
	return normalizeEnum(s, sexValues)
}

// NormalizeMaritalStatus maps free-form values to SINGLE, MARRIED or
// RATHER_NOT_SAY, with the same fallback rules as NormalizeSex.
func NormalizeMaritalStatus(s string) (string, bool) {
	return normalizeEnum(s, maritalValues)
}
