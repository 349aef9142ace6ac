package domain

import (
	"strings"
)

// SubjectFormat selects how subject references are validated.
type SubjectFormat string

const (
	SubjectFormatOpaque  SubjectFormat = "opaque"
	SubjectFormatAadhaar SubjectFormat = "aadhaar"
)

const maxSubjectReferenceLength = 256

// NormalizeSubjectReference validates ref against format and returns its
// canonical form.
func NormalizeSubjectReference(ref string, format SubjectFormat) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || len(ref) > maxSubjectReferenceLength {
		return "", ErrInvalidSubjectReference
	}

	if format != SubjectFormatAadhaar {
		return ref, nil
	}

	clean := strings.NewReplacer(" ", "", "-", "").Replace(ref)
	if len(clean) != 12 {
		return "", ErrInvalidSubjectReference
	}
	for _, r := range clean {
		if r < '0' || r > '9' {
			return "", ErrInvalidSubjectReference
		}
	}
	if !verhoeffValid(clean) {
		return "", ErrInvalidSubjectReference
	}
	return clean, nil
}

// MaskSubjectReference keeps only the last four characters, for logs.
func MaskSubjectReference(ref string) string {
	if len(ref) <= 4 {
		return strings.Repeat("*", len(ref))
	}
	return strings.Repeat("*", len(ref)-4) + ref[len(ref)-4:]
}

var verhoeffD = [10][10]int{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	{1, 2, 3, 4, 0, 6, 7, 8, 9, 5},
	{2, 3, 4, 0, 1, 7, 8, 9, 5, 6},
	{3, 4, 0, 1, 2, 8, 9, 5, 6, 7},
	{4, 0, 1, 2, 3, 9, 5, 6, 7, 8},
	{5, 9, 8, 7, 6, 0, 4, 3, 2, 1},
	{6, 5, 9, 8, 7, 1, 0, 4, 3, 2},
	{7, 6, 5, 9, 8, 2, 1, 0, 4, 3},
	{8, 7, 6, 5, 9, 3, 2, 1, 0, 4},
	{9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
}

var verhoeffP = [8][10]int{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	{1, 5, 7, 6, 2, 8, 3, 0, 9, 4},
	{5, 8, 0, 3, 7, 9, 6, 1, 4, 2},
	{8, 9, 1, 6, 0, 4, 3, 5, 2, 7},
	{9, 4, 5, 3, 1, 2, 8, 7, 6, 0},
	{4, 2, 8, 6, 5, 7, 3, 9, 0, 1},
	{2, 7, 9, 3, 8, 0, 6, 4, 1, 5},
	{7, 0, 4, 6, 9, 1, 3, 2, 5, 8},
}

// verhoeffValid checks the trailing Verhoeff check digit of a digit string.
func verhoeffValid(digits string) bool {
	c := 0
	for i := 0; i < len(digits); i++ {
		digit := int(digits[len(digits)-1-i] - '0')
		c = verhoeffD[c][verhoeffP[i%8][digit]]
	}
	return c == 0
}
