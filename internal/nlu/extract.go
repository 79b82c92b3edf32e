// Package nlu maps free-form loan-advisory text to an intent and a set of
// structured slot deltas. Extraction is pattern based: every slot carries a
// priority-ordered rule list and the first matching rule wins, so a
// high-confidence match can never be displaced by a weaker one in the same
// turn. A slot with no match is simply absent, never an error.
package nlu

import (
	"regexp"
	"strconv"
	"strings"

	"loan-advisor/internal/logger"
	"loan-advisor/internal/rules"
)

type Slot string

const (
	SlotLoanAmount       Slot = "loan_amount_requested"
	SlotMonthlyIncome    Slot = "monthly_income"
	SlotTenure           Slot = "loan_tenure_months"
	SlotAge              Slot = "age"
	SlotLoanType         Slot = "loan_type"
	SlotEmploymentMonths Slot = "employment_months"
	SlotExistingEMI      Slot = "existing_loans_emi"
	SlotCardMinPayment   Slot = "existing_credit_cards_min_payment"
)

// Deltas holds the slots found in one message. Nil means "not mentioned".
type Deltas struct {
	LoanAmount       *rules.Money
	MonthlyIncome    *rules.Money
	TenureMonths     *int
	Age              *int
	LoanType         *rules.LoanType
	EmploymentMonths *int
	ExistingEMI      *rules.Money
	CardMinPayment   *rules.Money

	Confidence map[Slot]float64
}

func (d Deltas) Empty() bool { return len(d.Confidence) == 0 }

// Fields flattens the deltas for audit records and API payloads, currency in
// rupees.
func (d Deltas) Fields() map[string]any {
	f := map[string]any{}
	if d.LoanAmount != nil {
		f[string(SlotLoanAmount)] = d.LoanAmount.Rupees()
	}
	if d.MonthlyIncome != nil {
		f[string(SlotMonthlyIncome)] = d.MonthlyIncome.Rupees()
	}
	if d.TenureMonths != nil {
		f[string(SlotTenure)] = *d.TenureMonths
	}
	if d.Age != nil {
		f[string(SlotAge)] = *d.Age
	}
	if d.LoanType != nil {
		f[string(SlotLoanType)] = string(*d.LoanType)
	}
	if d.EmploymentMonths != nil {
		f[string(SlotEmploymentMonths)] = *d.EmploymentMonths
	}
	if d.ExistingEMI != nil {
		f[string(SlotExistingEMI)] = d.ExistingEMI.Rupees()
	}
	if d.CardMinPayment != nil {
		f[string(SlotCardMinPayment)] = d.CardMinPayment.Rupees()
	}
	return f
}

// numberRule is one (matcher, conversion, confidence) entry in a slot's
// ordered rule list. Bounds apply to the converted value; a zero hi means
// unbounded. The guard can veto a candidate based on surrounding context.
type numberRule struct {
	re    *regexp.Regexp
	mult  float64
	conf  float64
	lo    float64
	hi    float64
	guard func(text string, m []int, raw float64) bool
}

// firstNumber walks the rule list in order and returns the first candidate
// that parses, passes its guard and lands inside its plausibility bounds.
func firstNumber(text string, ruleSet []numberRule) (float64, float64, bool) {
	for _, r := range ruleSet {
		for _, m := range r.re.FindAllStringSubmatchIndex(text, -1) {
			raw, err := strconv.ParseFloat(text[m[2]:m[3]], 64)
			if err != nil {
				continue
			}
			if r.guard != nil && !r.guard(text, m, raw) {
				continue
			}
			v := raw * r.mult
			if r.lo != 0 && v < r.lo {
				continue
			}
			if r.hi != 0 && v > r.hi {
				continue
			}
			return v, r.conf, true
		}
	}
	return 0, 0, false
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// window returns the text surrounding a match, used for keyword-context
// disambiguation of bare numbers.
func window(text string, m []int, before, after int) string {
	lo := max(m[0]-before, 0)
	hi := min(m[1]+after, len(text))
	return text[lo:hi]
}

var (
	loanKeywords   = []string{"loan", "for", "of", "want", "need", "looking", "borrow"}
	incomeKeywords = []string{"income", "salary", "earning"}

	loanAmountRules = []numberRule{
		{re: regexp.MustCompile(`loan.*?(\d+(?:\.\d+)?)\s*(?:lakh|lac|l)s?\b`), mult: 1e5, conf: 0.9},
		{re: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:lakh|lac|l)s?\s*(?:loan|for|of)`), mult: 1e5, conf: 0.85},
		{re: regexp.MustCompile(`loan.*?(\d+(?:\.\d+)?)\s*(?:crore|cr)s?\b`), mult: 1e7, conf: 0.9},
		{re: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:crore|cr)s?\s*(?:loan|for|of)`), mult: 1e7, conf: 0.85},
		{re: regexp.MustCompile(`loan.*?(?:of|for|amount)?\s*(?:₹|rupees?|rs\.?)\s*(\d+(?:\.\d+)?)`), mult: 1, conf: 0.85},
		// Bare "5 lakh" with no explicit loan anchor: only when income language
		// is absent and either a loan keyword sits nearby or the magnitude is a
		// plausible loan figure.
		{re: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:lakh|lac|l)s?\b`), mult: 1e5, conf: 0.6,
			guard: func(text string, m []int, raw float64) bool {
				if containsAny(text, incomeKeywords...) {
					return false
				}
				return containsAny(window(text, m, 50, 20), loanKeywords...) || (raw >= 1 && raw <= 100)
			}},
		{re: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:crore|cr)s?\b`), mult: 1e7, conf: 0.6,
			guard: func(text string, m []int, raw float64) bool {
				if containsAny(text, incomeKeywords...) {
					return false
				}
				return containsAny(window(text, m, 50, 20), loanKeywords...) || (raw >= 1 && raw <= 10)
			}},
		// Last resort: a bare large number in a message that talks about a
		// loan, unless the number itself sits in income context.
		{re: regexp.MustCompile(`\b(\d{5,})\b`), mult: 1, conf: 0.5, lo: 1e5, hi: 1e8,
			guard: func(text string, m []int, _ float64) bool {
				return strings.Contains(text, "loan") && !containsAny(window(text, m, 30, 10), incomeKeywords...)
			}},
	}

	incomeRules = []numberRule{
		{re: regexp.MustCompile(`(?:income|salary|earning|earn|make|get).*?(\d+(?:\.\d+)?)\s*k\b`), mult: 1000, conf: 0.9},
		{re: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*k\s*(?:income|salary|per month|monthly)`), mult: 1000, conf: 0.85},
		{re: regexp.MustCompile(`(?:income|salary|earning|earn|make|get).*?(?:is|of|₹|rupees?|rs\.?)\s*(\d+(?:\.\d+)?)`), mult: 1, conf: 0.85, lo: 1e4, hi: 1e6},
		{re: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:k|thousand)\s*(?:per month|monthly|pm)\b`), mult: 1000, conf: 0.8},
		{re: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:per month|monthly|pm)\b`), mult: 1, conf: 0.7, lo: 1e4, hi: 1e6},
		{re: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*k\b`), mult: 1000, conf: 0.6,
			guard: func(text string, m []int, _ float64) bool {
				return !containsAny(text, "loan", "borrow")
			}},
		// Bare medium number in a message with income language. No proximity
		// veto: loan figures in the same message are caught earlier by the
		// higher-priority amount rules, and the 10k..5l bounds reject most
		// loan-sized numbers ("loan of 5 lakh ... income 50000" keeps both).
		{re: regexp.MustCompile(`\b(\d{4,6})\b`), mult: 1, conf: 0.5, lo: 1e4, hi: 5e5,
			guard: func(text string, m []int, _ float64) bool {
				return containsAny(text, incomeKeywords...)
			}},
	}

	tenureRules = []numberRule{
		// The preposition must sit directly before the number, or a later age
		// mention ("loan ... i am 30 years old") reads as a tenure.
		{re: regexp.MustCompile(`loan.*?(?:for|of|with|tenure)\s+(\d+)\s*(?:years?|yrs?|y)\b`), mult: 12, conf: 0.9, lo: 12, hi: 360},
		{re: regexp.MustCompile(`tenure.*?(\d+)\s*(?:years?|yrs?)\b`), mult: 12, conf: 0.9, lo: 12, hi: 360},
		{re: regexp.MustCompile(`repay.*?(?:in|for|over)\s+(\d+)\s*(?:years?|yrs?)\b`), mult: 12, conf: 0.85, lo: 12, hi: 360},
		{re: regexp.MustCompile(`(\d+)\s*(?:years?|yrs?)\s*(?:loan|tenure|repayment)`), mult: 12, conf: 0.85, lo: 12, hi: 360},
		{re: regexp.MustCompile(`loan.*?(?:for|of|with)\s+(\d+)\s*(?:months?|mon)\b`), mult: 1, conf: 0.85, lo: 12, hi: 360},
		{re: regexp.MustCompile(`tenure.*?(\d+)\s*(?:months?|mon)\b`), mult: 1, conf: 0.85, lo: 12, hi: 360},
		{re: regexp.MustCompile(`(\d+)\s*(?:years?|yrs?|y)\b`), mult: 12, conf: 0.6, lo: 12, hi: 360,
			guard: func(text string, m []int, _ float64) bool {
				ctx := window(text, m, 15, 15)
				if containsAny(ctx, "age", "aged", " am ", "years old", "yrs old") {
					return false
				}
				return containsAny(ctx, "loan", "tenure", "repay", "emi", "for", "of")
			}},
		{re: regexp.MustCompile(`(\d+)\s*(?:months?|mon)\b`), mult: 1, conf: 0.5, lo: 12, hi: 360},
	}

	ageRules = []numberRule{
		{re: regexp.MustCompile(`(?:age|aged)\s*(?:is|of)?\s*(\d{1,3})\b`), mult: 1, conf: 0.9},
		{re: regexp.MustCompile(`am\s+(\d{1,3})\s+(?:years?\s+)?old\b`), mult: 1, conf: 0.9},
		{re: regexp.MustCompile(`(\d{1,3})\s+years?\s+old\b`), mult: 1, conf: 0.85},
		{re: regexp.MustCompile(`(\d{1,3})\s+years?\s+of\s+age\b`), mult: 1, conf: 0.85},
	}

	// ageStatementRes mark messages whose year figures are the speaker's age,
	// suppressing employment-duration extraction for that turn.
	ageStatementRes = []*regexp.Regexp{
		regexp.MustCompile(`\d+\s+years?\s+old`),
		regexp.MustCompile(`age\s*(?:is|of)?\s*\d+`),
		regexp.MustCompile(`aged\s+\d+`),
		regexp.MustCompile(`\d+\s+years?\s+of\s+age`),
	}

	employmentRules = []numberRule{
		{re: regexp.MustCompile(`(?:working|employed|experience|job).*?(?:for|since|of)?\s*(\d+)\s*(?:years?|yrs?|y)\b`), mult: 12, conf: 0.9, lo: 1, hi: 600},
		{re: regexp.MustCompile(`(?:working|employed|experience|job).*?(?:for|since|of)?\s*(\d+)\s*(?:months?|mon)\b`), mult: 1, conf: 0.85, lo: 1, hi: 600},
		{re: regexp.MustCompile(`(\d+)\s*(?:years?|yrs?|y)\s*(?:of|in|at|with).*?(?:experience|employment|working|job)`), mult: 12, conf: 0.85, lo: 1, hi: 600},
		{re: regexp.MustCompile(`(\d+)\s*(?:months?|mon)\s*(?:of|in|at|with).*?(?:experience|employment|working|job)`), mult: 1, conf: 0.8, lo: 1, hi: 600},
		{re: regexp.MustCompile(`(\d+)\s*(?:years?|yrs?|y)\b`), mult: 12, conf: 0.5, lo: 1, hi: 600,
			guard: func(text string, m []int, _ float64) bool {
				return !strings.HasPrefix(strings.TrimSpace(text[m[1]:]), "old")
			}},
		{re: regexp.MustCompile(`(\d+)\s*(?:months?|mon)\b`), mult: 1, conf: 0.5, lo: 1, hi: 600},
	}

	existingEMIRules = []numberRule{
		{re: regexp.MustCompile(`(?:existing|current|old|previous).*?(?:loan|emi).*?(?:is|of|₹|rupees?|rs\.?)\s*(\d+(?:\.\d+)?)`), mult: 1, conf: 0.85, lo: 1000, hi: 5e5},
		{re: regexp.MustCompile(`(?:loan|emi).*?(?:existing|current|old|previous).*?(?:is|of|₹|rupees?|rs\.?)\s*(\d+(?:\.\d+)?)`), mult: 1, conf: 0.8, lo: 1000, hi: 5e5},
		{re: regexp.MustCompile(`(?:pay|paying|have|have a).*?(\d+(?:\.\d+)?)\s*(?:per month|monthly|pm|emi)\b`), mult: 1, conf: 0.7, lo: 1000, hi: 5e5},
		{re: regexp.MustCompile(`emi.*?(?:is|of|₹|rupees?|rs\.?)\s*(\d+(?:\.\d+)?)`), mult: 1, conf: 0.7, lo: 1000, hi: 5e5},
	}

	cardPaymentRules = []numberRule{
		{re: regexp.MustCompile(`(?:credit card|card).*?(?:payment|minimum|min).*?(?:is|of|₹|rupees?|rs\.?)\s*(\d+(?:\.\d+)?)`), mult: 1, conf: 0.85, lo: 500, hi: 1e5},
		{re: regexp.MustCompile(`(?:credit card|card).*?(\d+(?:\.\d+)?)\s*(?:per month|monthly|pm)\b`), mult: 1, conf: 0.7, lo: 500, hi: 1e5},
	}

	// loanTypeRules: specific types before generic ones, first match wins.
	loanTypeRules = []struct {
		loanType rules.LoanType
		keywords []string
	}{
		{rules.LoanBusiness, []string{"business loan", "business", "commercial loan", "startup loan"}},
		{rules.LoanEducation, []string{"education loan", "student loan", "study loan", "education", "student"}},
		{rules.LoanCar, []string{"car loan", "vehicle loan", "auto loan", "car", "vehicle", "auto"}},
		{rules.LoanHome, []string{"home loan", "housing loan", "house loan", "home", "house", "housing"}},
		{rules.LoanPersonal, []string{"personal loan", "personal", "unsecured loan"}},
	}
)

// Extract detects the message intent and the slot deltas present in cleaned
// text. It returns only what this message contains; merging into session
// state is the orchestrator's concern.
func Extract(cleaned string) (Intent, Deltas) {
	intent := DetectIntent(cleaned)
	text := strings.ToLower(strings.ReplaceAll(cleaned, ",", ""))

	d := Deltas{Confidence: map[Slot]float64{}}

	if v, conf, ok := firstNumber(text, loanAmountRules); ok {
		d.LoanAmount = moneyPtr(v)
		d.Confidence[SlotLoanAmount] = conf
	}
	if v, conf, ok := firstNumber(text, incomeRules); ok {
		d.MonthlyIncome = moneyPtr(v)
		d.Confidence[SlotMonthlyIncome] = conf
	}
	if v, conf, ok := firstNumber(text, ageRules); ok {
		age := int(v)
		if age >= 18 && age <= 100 {
			d.Age = &age
			d.Confidence[SlotAge] = conf
		} else {
			logger.Warn("nlu.age_out_of_range", "age", age)
		}
	}
	if !isAgeStatement(text) {
		if v, conf, ok := firstNumber(text, employmentRules); ok {
			months := int(v)
			// A duration equal to age×12 is almost certainly the age restated.
			if d.Age == nil || months != *d.Age*12 {
				d.EmploymentMonths = &months
				d.Confidence[SlotEmploymentMonths] = conf
			}
		}
	}
	if v, conf, ok := firstNumber(text, tenureRules); ok {
		months := int(v)
		d.TenureMonths = &months
		d.Confidence[SlotTenure] = conf
	}
	if lt, ok := detectLoanType(text); ok {
		d.LoanType = &lt
		d.Confidence[SlotLoanType] = 0.8
	}
	if v, conf, ok := firstNumber(text, existingEMIRules); ok {
		d.ExistingEMI = moneyPtr(v)
		d.Confidence[SlotExistingEMI] = conf
	}
	if v, conf, ok := firstNumber(text, cardPaymentRules); ok {
		d.CardMinPayment = moneyPtr(v)
		d.Confidence[SlotCardMinPayment] = conf
	}

	return intent, d
}

func isAgeStatement(text string) bool {
	for _, re := range ageStatementRes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func detectLoanType(text string) (rules.LoanType, bool) {
	for _, rule := range loanTypeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.loanType, true
			}
		}
	}
	return "", false
}

func moneyPtr(rupees float64) *rules.Money {
	m := rules.FromRupees(rupees)
	return &m
}
