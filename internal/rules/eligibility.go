package rules

import (
	"fmt"
	"math"
)

// ratioEpsilon is the tolerance for DTI comparisons against the policy cap.
const ratioEpsilon = 1e-9

// Profile is the accumulated financial picture of one session. Zero values
// mean "not provided yet".
type Profile struct {
	MonthlyIncome          Money    `json:"monthly_income"`
	Age                    int      `json:"age"`
	EmploymentMonths       int      `json:"employment_months"`
	ExistingEMI            Money    `json:"existing_loans_emi"`
	ExistingCardMinPayment Money    `json:"existing_credit_cards_min_payment"`
	LoanAmountRequested    Money    `json:"loan_amount_requested"`
	LoanTenureMonths       int      `json:"loan_tenure_months"`
	LoanType               LoanType `json:"loan_type,omitempty"`
}

// Verdict is the outcome of an eligibility evaluation.
type Verdict struct {
	IsEligible       bool     `json:"is_eligible"`
	EligibleAmount   Money    `json:"eligible_amount"`
	SuggestedEMI     Money    `json:"suggested_emi"`
	DTIRatio         float64  `json:"dti_ratio"`
	TenureYears      int      `json:"tenure_years"`
	MaxTenureYears   int      `json:"max_tenure_years"`
	TenureWasDefault bool     `json:"tenure_was_default"`
	RejectionReasons []string `json:"rejection_reasons,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
	ApprovalMessage  string   `json:"approval_message,omitempty"`
}

// Outcome is either a verdict or a request for the fields still needed to
// produce one. Missing fields are a recoverable condition, not an error.
type Outcome struct {
	Missing []string `json:"missing,omitempty"`
	Verdict *Verdict `json:"verdict,omitempty"`
}

func (o Outcome) NeedsInfo() bool { return len(o.Missing) > 0 }

// Engine evaluates profiles against a policy table. Evaluate is pure: it
// performs no I/O and identical profiles yield identical verdicts.
type Engine struct {
	policies PolicyTable
}

func NewEngine(policies PolicyTable) *Engine {
	if policies == nil {
		policies = DefaultPolicies()
	}
	policies.Finish()
	return &Engine{policies: policies}
}

func (e *Engine) Policy(t LoanType) (Policy, bool) {
	p, ok := e.policies[t]
	return p, ok
}

// EMI computes the reducing-balance monthly installment for a principal at an
// annual percentage rate over a number of months.
//
//	EMI = P·r·(1+r)^n / ((1+r)^n − 1), r = annual/12/100
func EMI(principal Money, annualRate float64, months int) Money {
	if principal <= 0 || months <= 0 {
		return 0
	}
	r := annualRate / 12 / 100
	if r == 0 {
		return Money(math.Round(float64(principal) / float64(months)))
	}
	growth := math.Pow(1+r, float64(months))
	emi := float64(principal) * r * growth / (growth - 1)
	return Money(math.Round(emi))
}

// DTI returns total monthly debt service over monthly income.
func DTI(income, existingEMI, cardMinPayment, proposedEMI Money) float64 {
	if income <= 0 {
		return math.Inf(1)
	}
	return float64(existingEMI+cardMinPayment+proposedEMI) / float64(income)
}

// MaxPrincipalForDTI solves the annuity formula backward: the largest
// principal whose EMI keeps total debt service at or under maxDTI of income.
func MaxPrincipalForDTI(income Money, annualRate, maxDTI float64, existingDebt Money, months int) Money {
	budget := float64(income)*maxDTI - float64(existingDebt)
	if budget <= 0 || months <= 0 {
		return 0
	}
	r := annualRate / 12 / 100
	if r == 0 {
		return Money(math.Round(budget * float64(months)))
	}
	growth := math.Pow(1+r, float64(months))
	principal := budget * (growth - 1) / (r * growth)
	return Money(math.Round(principal))
}

// requiredFields are the profile fields without which no verdict is computed.
// Tenure deliberately is not among them: it falls back to the policy maximum.
func requiredFields(p Profile) []string {
	var missing []string
	if p.MonthlyIncome <= 0 {
		missing = append(missing, "monthly income")
	}
	if p.Age <= 0 {
		missing = append(missing, "age")
	}
	if p.LoanType == "" {
		missing = append(missing, "loan type")
	}
	return missing
}

// Evaluate runs the full eligibility check for a profile.
func (e *Engine) Evaluate(p Profile) Outcome {
	if missing := requiredFields(p); len(missing) > 0 {
		return Outcome{Missing: missing}
	}

	policy, ok := e.policies[p.LoanType]
	if !ok {
		return Outcome{Verdict: &Verdict{
			RejectionReasons: []string{fmt.Sprintf("unsupported loan type %q", p.LoanType)},
		}}
	}

	var reasons, warnings []string

	if p.MonthlyIncome < policy.MinIncome {
		reasons = append(reasons, fmt.Sprintf(
			"Minimum income required: %s/month. Your income: %s/month",
			policy.MinIncome, p.MonthlyIncome))
	}
	if p.Age < policy.MinAge {
		reasons = append(reasons, fmt.Sprintf(
			"Minimum age required: %d years. Your age: %d years", policy.MinAge, p.Age))
	} else if p.Age > policy.MaxAge {
		reasons = append(reasons, fmt.Sprintf(
			"Maximum age allowed: %d years. Your age: %d years", policy.MaxAge, p.Age))
	}
	// Employment is checked only when stated; it is not required for a
	// verdict and zero means "not provided".
	if p.EmploymentMonths > 0 && p.EmploymentMonths < policy.MinEmploymentMonths {
		reasons = append(reasons, fmt.Sprintf(
			"Minimum employment duration: %d months. Your employment: %d months",
			policy.MinEmploymentMonths, p.EmploymentMonths))
	}

	tenureYears := p.LoanTenureMonths / 12
	tenureWasDefault := false
	if tenureYears <= 0 {
		tenureYears = policy.MaxTenureYears
		tenureWasDefault = true
	}
	months := tenureYears * 12

	existingDebt := p.ExistingEMI + p.ExistingCardMinPayment
	maxByIncome := p.MonthlyIncome * Money(policy.MaxLoanMultiplier)
	maxByDTI := MaxPrincipalForDTI(p.MonthlyIncome, policy.AnnualRate, policy.MaxDTI, existingDebt, months)

	eligible := min(maxByIncome, maxByDTI)
	if p.LoanAmountRequested > 0 {
		if p.LoanAmountRequested > eligible {
			warnings = append(warnings, fmt.Sprintf(
				"Requested amount %s exceeds eligible amount %s. Capped to eligible amount.",
				p.LoanAmountRequested, eligible))
		} else {
			eligible = p.LoanAmountRequested
		}
	}

	var emi Money
	var dti float64
	if eligible > 0 {
		emi = EMI(eligible, policy.AnnualRate, months)
		dti = DTI(p.MonthlyIncome, p.ExistingEMI, p.ExistingCardMinPayment, emi)
		if dti > policy.MaxDTI+ratioEpsilon {
			reasons = append(reasons, fmt.Sprintf(
				"Debt-to-Income ratio %.1f%% exceeds maximum allowed %.1f%%",
				dti*100, policy.MaxDTI*100))
		}
	} else {
		dti = DTI(p.MonthlyIncome, p.ExistingEMI, p.ExistingCardMinPayment, 0)
	}

	if !tenureWasDefault {
		if tenureYears < policy.MinTenureYears {
			reasons = append(reasons, fmt.Sprintf("Minimum tenure: %d years", policy.MinTenureYears))
		} else if tenureYears > policy.MaxTenureYears {
			reasons = append(reasons, fmt.Sprintf("Maximum tenure: %d years", policy.MaxTenureYears))
		}
	}

	v := &Verdict{
		IsEligible:       len(reasons) == 0 && eligible > 0,
		EligibleAmount:   eligible,
		SuggestedEMI:     emi,
		DTIRatio:         dti,
		TenureYears:      tenureYears,
		MaxTenureYears:   policy.MaxTenureYears,
		TenureWasDefault: tenureWasDefault,
		RejectionReasons: reasons,
		Warnings:         warnings,
	}
	if v.IsEligible {
		v.ApprovalMessage = fmt.Sprintf(
			"Congratulations! You are eligible for a %s loan of %s with EMI of %s/month for %d years at %.1f%% interest rate.",
			p.LoanType, eligible, emi, tenureYears, policy.AnnualRate)
		if len(warnings) > 0 {
			v.ApprovalMessage += " Note: " + warnings[0]
		}
	}
	return Outcome{Verdict: v}
}
