package model

// RevenueBands is the fixed revenue enumeration, ordered by magnitude.
var RevenueBands = []string{
	"0-500K",
	"500K-1M",
	"1M-5M",
	"5M-10M",
	"10M-25M",
	"25M-75M",
	"75M-200M",
	"200M-500M",
	"500M-1B",
	"1B-10B",
	"10B-100B",
	"100B-1T",
}

// EmployeeBands is the fixed headcount enumeration, ordered by magnitude.
var EmployeeBands = []string{
	"0-1 Employees",
	"2-10 Employees",
	"11-50 Employees",
	"51-200 Employees",
	"201-500 Employees",
	"501-1,000 Employees",
	"1,001-5,000 Employees",
	"5,001-10,000 Employees",
	"10,001+ Employees",
}

// UnknownBand is the only non-enumerated size value a record may carry.
const UnknownBand = "unknown"

// revenueBandFloors holds the inclusive lower bound (USD) of each revenue band.
var revenueBandFloors = []float64{
	0, 500e3, 1e6, 5e6, 10e6, 25e6, 75e6, 200e6, 500e6, 1e9, 10e9, 100e9,
}

// employeeBandFloors holds the inclusive lower bound of each employee band.
var employeeBandFloors = []int{0, 2, 11, 51, 201, 501, 1001, 5001, 10001}

// RevenueBandIndex returns the position of band in RevenueBands, or -1.
func RevenueBandIndex(band string) int {
	for i, b := range RevenueBands {
		if b == band {
			return i
		}
	}
	return -1
}

// EmployeeBandIndex returns the position of band in EmployeeBands, or -1.
func EmployeeBandIndex(band string) int {
	for i, b := range EmployeeBands {
		if b == band {
			return i
		}
	}
	return -1
}

// IsRevenueBand reports whether band is a member of the revenue enumeration.
func IsRevenueBand(band string) bool { return RevenueBandIndex(band) >= 0 }

// IsEmployeeBand reports whether band is a member of the employee enumeration.
func IsEmployeeBand(band string) bool { return EmployeeBandIndex(band) >= 0 }

// RevenueBandFloor returns the lower bound in USD of a revenue band.
func RevenueBandFloor(band string) (float64, bool) {
	i := RevenueBandIndex(band)
	if i < 0 {
		return 0, false
	}
	return revenueBandFloors[i], true
}

// EmployeeBandFloor returns the lower bound headcount of an employee band.
func EmployeeBandFloor(band string) (int, bool) {
	i := EmployeeBandIndex(band)
	if i < 0 {
		return 0, false
	}
	return employeeBandFloors[i], true
}

// RevenueBandFor maps a positive USD amount onto its revenue band. Amounts
// of a trillion or more fall outside the enumeration.
func RevenueBandFor(usd float64) (string, bool) {
	if usd <= 0 || usd >= 1e12 {
		return "", false
	}
	for i := len(revenueBandFloors) - 1; i >= 0; i-- {
		if usd >= revenueBandFloors[i] {
			return RevenueBands[i], true
		}
	}
	return "", false
}

// EmployeeBandFor maps a headcount onto its employee band.
func EmployeeBandFor(count int) (string, bool) {
	if count < 0 {
		return "", false
	}
	for i := len(employeeBandFloors) - 1; i >= 0; i-- {
		if count >= employeeBandFloors[i] {
			return EmployeeBands[i], true
		}
	}
	return "", false
}
