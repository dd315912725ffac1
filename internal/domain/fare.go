package domain

import "strings"

type FareClass string

const (
	FareNormal  FareClass = "normal"
	FareReduced FareClass = "reduced"
	FareSenior  FareClass = "senior"
	FareStudent FareClass = "student"
)

// Single-character fare codes used in the compact seat encoding.
const (
	FareCodeNormal  byte = 'N'
	FareCodeReduced byte = 'U'
	FareCodeSenior  byte = 'S'
	FareCodeStudent byte = 'T'
)

// FareCode maps a free-form fare name such as "Bilet ulgowy" or "student" to its code.
// Unrecognised names fall back to the normal fare.
func FareCode(name string) byte {
	name = strings.ToLower(name)

	switch {
	case strings.Contains(name, "ulg"), strings.Contains(name, "reduc"):
		return FareCodeReduced
	case strings.Contains(name, "senior"):
		return FareCodeSenior
	case strings.Contains(name, "stud"):
		return FareCodeStudent
	default:
		return FareCodeNormal
	}
}

func FareFromCode(code byte) FareClass {
	switch code {
	case FareCodeReduced, 'u':
		return FareReduced
	case FareCodeSenior, 's':
		return FareSenior
	case FareCodeStudent, 't':
		return FareStudent
	default:
		return FareNormal
	}
}

// ParseFareClass normalises a free-form fare name to one of the canonical classes.
func ParseFareClass(name string) FareClass {
	return FareFromCode(FareCode(name))
}
