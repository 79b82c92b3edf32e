package rules

import "strings"

type LoanType string

const (
	LoanPersonal  LoanType = "personal"
	LoanHome      LoanType = "home"
	LoanCar       LoanType = "car"
	LoanEducation LoanType = "education"
	LoanBusiness  LoanType = "business"
)

// ParseLoanType accepts both the short enum form ("home") and the verbose
// form some clients send ("home_loan").
func ParseLoanType(s string) (LoanType, bool) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "_loan")
	switch t := LoanType(s); t {
	case LoanPersonal, LoanHome, LoanCar, LoanEducation, LoanBusiness:
		return t, true
	}
	return "", false
}

// Policy holds the underwriting thresholds for one loan type.
type Policy struct {
	MinIncome           Money   `yaml:"-"`
	MinIncomeRupees     float64 `yaml:"min_income"`
	MinAge              int     `yaml:"min_age"`
	MaxAge              int     `yaml:"max_age"`
	MaxDTI              float64 `yaml:"max_dti"`
	MinEmploymentMonths int     `yaml:"min_employment_months"`
	MaxLoanMultiplier   int     `yaml:"max_loan_multiplier"`
	AnnualRate          float64 `yaml:"interest_rate"`
	MinTenureYears      int     `yaml:"min_tenure_years"`
	MaxTenureYears      int     `yaml:"max_tenure_years"`
}

// PolicyTable maps loan types to underwriting policies. It is read-only after
// construction and safe to share across sessions.
type PolicyTable map[LoanType]Policy

// DefaultPolicies returns the built-in underwriting table.
func DefaultPolicies() PolicyTable {
	return PolicyTable{
		LoanPersonal: {
			MinIncomeRupees: 15000, MinAge: 21, MaxAge: 65, MaxDTI: 0.4,
			MinEmploymentMonths: 6, MaxLoanMultiplier: 20, AnnualRate: 10.5,
			MinTenureYears: 1, MaxTenureYears: 5,
		},
		LoanHome: {
			MinIncomeRupees: 25000, MinAge: 21, MaxAge: 70, MaxDTI: 0.5,
			MinEmploymentMonths: 12, MaxLoanMultiplier: 60, AnnualRate: 8.5,
			MinTenureYears: 5, MaxTenureYears: 30,
		},
		LoanCar: {
			MinIncomeRupees: 20000, MinAge: 21, MaxAge: 65, MaxDTI: 0.45,
			MinEmploymentMonths: 6, MaxLoanMultiplier: 10, AnnualRate: 9.0,
			MinTenureYears: 1, MaxTenureYears: 7,
		},
		LoanEducation: {
			MinIncomeRupees: 0, MinAge: 18, MaxAge: 35, MaxDTI: 0.4,
			MinEmploymentMonths: 0, MaxLoanMultiplier: 15, AnnualRate: 8.0,
			MinTenureYears: 1, MaxTenureYears: 15,
		},
		LoanBusiness: {
			MinIncomeRupees: 100000, MinAge: 18, MaxAge: 60, MaxDTI: 0.4,
			MinEmploymentMonths: 12, MaxLoanMultiplier: 30, AnnualRate: 12.0,
			MinTenureYears: 1, MaxTenureYears: 10,
		},
	}
}

// Finish converts config-file rupee amounts into paise. Policies loaded from
// yaml carry MinIncomeRupees only.
func (t PolicyTable) Finish() {
	for k, p := range t {
		p.MinIncome = FromRupees(p.MinIncomeRupees)
		t[k] = p
	}
}
