package nlu

import "strings"

// Intent classifies what the user wants from a single message. It is derived
// per message and never persisted.
type Intent string

const (
	IntentApplyLoan        Intent = "apply_loan"
	IntentCheckEligibility Intent = "check_eligibility"
	IntentAskQuestion      Intent = "ask_question"
	IntentProvideInfo      Intent = "provide_info"
)

// intentRules are scanned in declaration order; the first group with a
// keyword hit wins.
var intentRules = []struct {
	intent   Intent
	keywords []string
}{
	{IntentApplyLoan, []string{"apply", "want", "need", "looking for", "interested in", "get a loan"}},
	{IntentCheckEligibility, []string{"eligible", "eligibility", "can i get", "qualify", "qualification", "check"}},
	{IntentAskQuestion, []string{"what", "how", "why", "when", "where", "?", "explain", "tell me"}},
}

// DetectIntent scans the message against the priority-ordered keyword groups.
func DetectIntent(text string) Intent {
	lower := strings.ToLower(text)
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.intent
			}
		}
	}
	return IntentProvideInfo
}
