package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Family is one top-level device group of the composite status.
type Family string

const (
	FamilyHue    Family = "hue"
	FamilyWemo   Family = "wemo"
	FamilyRinnai Family = "rinnai"
	FamilyGarage Family = "garage"
)

var AllFamilies = []Family{FamilyHue, FamilyWemo, FamilyRinnai, FamilyGarage}

func (f Family) Valid() bool {
	return slices.Contains(AllFamilies, f)
}

func (f Family) String() string {
	return string(f)
}

func ParseFamily(s string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFamily, s)
	}
	return f, nil
}

// ParseFamilies parses a comma separated family list. An empty list means all families.
func ParseFamilies(csv string) ([]Family, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, nil
	}
	var families []Family
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := ParseFamily(part)
		if err != nil {
			return nil, err
		}
		families = append(families, f)
	}
	return NormalizeFamilies(families)
}

// NormalizeFamilies validates, deduplicates and orders a family subset.
// A nil result means all families.
func NormalizeFamilies(families []Family) ([]Family, error) {
	if len(families) == 0 {
		return nil, nil
	}
	var result []Family
	for _, f := range families {
		if !f.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, string(f))
		}
	}
	for _, f := range AllFamilies {
		if slices.Contains(families, f) {
			result = append(result, f)
		}
	}
	if len(result) == len(AllFamilies) {
		return nil, nil
	}
	return result, nil
}

func FamiliesCSV(families []Family) string {
	parts := make([]string, len(families))
	for i, f := range families {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}
