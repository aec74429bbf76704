package enums

import "fmt"

// PackageType identifies what a catalog package delivers.
type PackageType string

const (
	PackageTypeData          PackageType = "data"
	PackageTypeAirtime       PackageType = "airtime"
	PackageTypeCable         PackageType = "cable"
	PackageTypeResultChecker PackageType = "result_checker"
	PackageTypeAFA           PackageType = "afa"
)

var validPackageTypes = []PackageType{
	PackageTypeData,
	PackageTypeAirtime,
	PackageTypeCable,
	PackageTypeResultChecker,
	PackageTypeAFA,
}

// String implements fmt.Stringer.
func (p PackageType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PackageType.
func (p PackageType) IsValid() bool {
	for _, candidate := range validPackageTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// Label returns the storefront display name.
func (p PackageType) Label() string {
	switch p {
	case PackageTypeData:
		return "Data Bundle"
	case PackageTypeAirtime:
		return "Airtime"
	case PackageTypeCable:
		return "Cable TV"
	case PackageTypeResultChecker:
		return "Result Checker"
	case PackageTypeAFA:
		return "AFA Registration"
	default:
		return string(p)
	}
}

// ParsePackageType converts raw input into a PackageType.
func ParsePackageType(value string) (PackageType, error) {
	for _, candidate := range validPackageTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid package type %q", value)
}
