package regexdetector

import "strings"

// germanIDLetters are the letters German ID numbers are allowed to use,
// ported from original_source's GermanIDNumber.valid_letters (the German ID
// alphabet excludes visually ambiguous letters like O, I, A, etc).
const germanIDLetters = "CFGHJKLMNPRTVWXYZ"

// validGermanIDNumber checks the format rules from
// custom_types/german_id_number.py: 9 characters, first a valid letter, the
// rest letters-or-digits with at least one digit.
func validGermanIDNumber(value string) bool {
	if len(value) != 9 {
		return false
	}
	if !strings.ContainsRune(germanIDLetters, rune(value[0])) {
		return false
	}
	hasDigit := false
	for _, c := range value[1:] {
		switch {
		case c >= '0' && c <= '9':
			hasDigit = true
		case strings.ContainsRune(germanIDLetters, c):
		default:
			return false
		}
	}
	return hasDigit
}

// validGermanMedicalInsuranceID ports the weighted-checksum validation from
// custom_types/german_medical_insurance_id.py: a letter followed by 9
// digits, the last digit a mod-10 checksum over alternating 1/2 weights.
func validGermanMedicalInsuranceID(value string) bool {
	if len(value) != 10 {
		return false
	}
	first := value[0]
	if first >= 'a' && first <= 'z' {
		first -= 'a' - 'A'
	}
	if first < 'A' || first > 'Z' {
		return false
	}
	for i := 1; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}

	letterValue := int(first-'A') + 1
	seq := []int{letterValue / 10, letterValue % 10}
	for i := 1; i < len(value)-1; i++ {
		seq = append(seq, int(value[i]-'0'))
	}
	checksum := int(value[len(value)-1] - '0')
	weights := []int{1, 2, 1, 2, 1, 2, 1, 2, 1, 2}
	sum := 0
	for i, d := range seq {
		sum += d * weights[i]
	}
	return sum%10 == checksum
}

// validGermanLicensePlate checks the "naive" format from
// custom_types/german_license_plate.py: 1-3 uppercase letters, a hyphen,
// 1-2 uppercase letters, 1-4 digits. The regex detector already matches
// this shape; this exists so non-regex callers can reuse the same rule.
func validGermanLicensePlate(value string) bool {
	parts := strings.SplitN(value, "-", 2)
	if len(parts) != 2 {
		return false
	}
	handle, rest := parts[0], parts[1]
	if len(handle) < 1 || len(handle) > 3 || !isUpperAlpha(handle) {
		return false
	}
	i := 0
	for i < len(rest) && rest[i] >= 'A' && rest[i] <= 'Z' {
		i++
	}
	if i < 1 || i > 2 {
		return false
	}
	digits := rest[i:]
	if len(digits) < 1 || len(digits) > 4 {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isUpperAlpha(s string) bool {
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
