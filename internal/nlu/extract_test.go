package nlu

import (
	"testing"

	"loan-advisor/internal/rules"
)

func TestDetectIntent(t *testing.T) {
	cases := []struct {
		text string
		want Intent
	}{
		{"I want a personal loan", IntentApplyLoan},
		{"need 5 lakh urgently", IntentApplyLoan},
		{"am I eligible for this", IntentCheckEligibility},
		{"do i qualify", IntentCheckEligibility},
		{"what is an EMI", IntentAskQuestion},
		{"my salary is 50000", IntentProvideInfo},
		// An application mention outranks an eligibility mention in the
		// same message.
		{"i want to know if i am eligible", IntentApplyLoan},
	}
	for _, c := range cases {
		if got := DetectIntent(c.text); got != c.want {
			t.Errorf("DetectIntent(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestExtractLoanAmountLakh(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"I need a personal loan of 5 lakh", 500000},
		{"loan of 2.5 lakh", 250000},
		{"loan of 1 crore", 10000000},
	}
	for _, c := range cases {
		_, d := Extract(c.text)
		if d.LoanAmount == nil {
			t.Errorf("Extract(%q): no loan amount", c.text)
			continue
		}
		if got := d.LoanAmount.Rupees(); got != c.want {
			t.Errorf("Extract(%q) loan amount = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestExtractBareNumberDisambiguation(t *testing.T) {
	// A bare number near loan language is an amount, not income.
	_, d := Extract("i want a loan of 200000")
	if d.LoanAmount == nil || d.LoanAmount.Rupees() != 200000 {
		t.Errorf("loan amount = %v, want 200000", d.LoanAmount)
	}
	if d.MonthlyIncome != nil {
		t.Errorf("income = %v, want none", d.MonthlyIncome)
	}

	// The same magnitude near salary language is income, not an amount.
	_, d = Extract("my salary is 40000")
	if d.MonthlyIncome == nil || d.MonthlyIncome.Rupees() != 40000 {
		t.Errorf("income = %v, want 40000", d.MonthlyIncome)
	}
	if d.LoanAmount == nil {
		// No loan language at all, so no amount either.
	} else {
		t.Errorf("loan amount = %v, want none", d.LoanAmount)
	}
}

func TestExtractAmountAndIncomeTogether(t *testing.T) {
	_, d := Extract("i need a loan of 300000 because my salary is 40000")
	if d.LoanAmount == nil || d.LoanAmount.Rupees() != 300000 {
		t.Fatalf("loan amount = %v, want 300000", d.LoanAmount)
	}
	if d.MonthlyIncome == nil || d.MonthlyIncome.Rupees() != 40000 {
		t.Fatalf("income = %v, want 40000", d.MonthlyIncome)
	}
}

func TestExtractIncomeShorthand(t *testing.T) {
	_, d := Extract("my salary is 50k")
	if d.MonthlyIncome == nil || d.MonthlyIncome.Rupees() != 50000 {
		t.Errorf("income = %v, want 50000", d.MonthlyIncome)
	}
}

func TestExtractAge(t *testing.T) {
	_, d := Extract("i am 30 years old")
	if d.Age == nil || *d.Age != 30 {
		t.Fatalf("age = %v, want 30", d.Age)
	}
	// An age statement must not double as employment duration.
	if d.EmploymentMonths != nil {
		t.Errorf("employment = %v, want none from an age statement", *d.EmploymentMonths)
	}
}

func TestExtractAgeOutOfRange(t *testing.T) {
	for _, text := range []string{"my age is 150", "my age is 15"} {
		_, d := Extract(text)
		if d.Age != nil {
			t.Errorf("Extract(%q) age = %d, want discarded", text, *d.Age)
		}
	}
}

func TestExtractTenure(t *testing.T) {
	_, d := Extract("i want the loan for 5 years")
	if d.TenureMonths == nil || *d.TenureMonths != 60 {
		t.Errorf("tenure = %v, want 60 months", d.TenureMonths)
	}
}

func TestExtractEmployment(t *testing.T) {
	_, d := Extract("i have been working for 3 years")
	if d.EmploymentMonths == nil || *d.EmploymentMonths != 36 {
		t.Errorf("employment = %v, want 36 months", d.EmploymentMonths)
	}
}

func TestExtractExistingDebts(t *testing.T) {
	intent, d := Extract("my existing loan emi is 8000")
	if intent != IntentProvideInfo {
		t.Errorf("intent = %v, want provide_info", intent)
	}
	if d.ExistingEMI == nil || d.ExistingEMI.Rupees() != 8000 {
		t.Errorf("existing emi = %v, want 8000", d.ExistingEMI)
	}

	_, d = Extract("my credit card minimum payment is 2000")
	if d.CardMinPayment == nil || d.CardMinPayment.Rupees() != 2000 {
		t.Errorf("card payment = %v, want 2000", d.CardMinPayment)
	}
}

func TestExtractLoanType(t *testing.T) {
	cases := []struct {
		text string
		want rules.LoanType
	}{
		{"i want a home loan", rules.LoanHome},
		{"looking for a car loan", rules.LoanCar},
		{"need an education loan to study abroad", rules.LoanEducation},
		{"business loan for my shop", rules.LoanBusiness},
		{"personal loan please", rules.LoanPersonal},
	}
	for _, c := range cases {
		_, d := Extract(c.text)
		if d.LoanType == nil {
			t.Errorf("Extract(%q): no loan type", c.text)
			continue
		}
		if *d.LoanType != c.want {
			t.Errorf("Extract(%q) loan type = %v, want %v", c.text, *d.LoanType, c.want)
		}
	}
}

func TestExtractHandlesCommas(t *testing.T) {
	_, d := Extract("loan of ₹5,00,000")
	if d.LoanAmount == nil || d.LoanAmount.Rupees() != 500000 {
		t.Errorf("loan amount = %v, want 500000", d.LoanAmount)
	}
}

func TestExtractNothing(t *testing.T) {
	_, d := Extract("hello there")
	if !d.Empty() {
		t.Errorf("deltas = %+v, want empty", d.Fields())
	}
}

func TestExtractTerseApplication(t *testing.T) {
	// Telegraphic style without "is"/"my": the bare-number income rule must
	// still pick up the figure next to the income keyword.
	_, d := Extract("I need a personal loan of 5 lakh rupees, income 50000, age 30")
	if d.LoanAmount == nil || d.LoanAmount.Rupees() != 500000 {
		t.Errorf("loan amount = %v, want 500000", d.LoanAmount)
	}
	if d.MonthlyIncome == nil || d.MonthlyIncome.Rupees() != 50000 {
		t.Errorf("income = %v, want 50000", d.MonthlyIncome)
	}
	if d.Age == nil || *d.Age != 30 {
		t.Errorf("age = %v, want 30", d.Age)
	}
	if d.LoanType == nil || *d.LoanType != rules.LoanPersonal {
		t.Errorf("loan type = %v, want personal", d.LoanType)
	}
}

func TestExtractFullApplication(t *testing.T) {
	intent, d := Extract("I need a personal loan of 5 lakh, my income is 50000 and I am 30 years old")
	if intent != IntentApplyLoan {
		t.Errorf("intent = %v, want apply_loan", intent)
	}
	if d.LoanAmount == nil || d.LoanAmount.Rupees() != 500000 {
		t.Errorf("loan amount = %v, want 500000", d.LoanAmount)
	}
	if d.MonthlyIncome == nil || d.MonthlyIncome.Rupees() != 50000 {
		t.Errorf("income = %v, want 50000", d.MonthlyIncome)
	}
	if d.Age == nil || *d.Age != 30 {
		t.Errorf("age = %v, want 30", d.Age)
	}
	if d.LoanType == nil || *d.LoanType != rules.LoanPersonal {
		t.Errorf("loan type = %v, want personal", d.LoanType)
	}
	if f := d.Fields(); f["loan_amount_requested"] != 500000.0 {
		t.Errorf("Fields() = %v", f)
	}
}
