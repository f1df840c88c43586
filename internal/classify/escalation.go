package classify

import "strings"

type Escalation struct {
	RequiresEscalation bool   `json:"requires_escalation"`
	Reason             string `json:"reason,omitempty"`
}

// EscalationCheck scans text against the built-in trigger list.
func EscalationCheck(subject, description string) Escalation {
	return DefaultRules().EscalationCheck(subject, description)
}

// EscalationCheck reports the first trigger found in subject+description.
func (r RuleSet) EscalationCheck(subject, description string) Escalation {
	text := strings.ToLower(subject + " " + description)
	for _, trigger := range r.EscalationTriggers {
		if trigger == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(trigger)) {
			return Escalation{
				RequiresEscalation: true,
				Reason:             "Matched escalation trigger: " + trigger,
			}
		}
	}
	return Escalation{}
}
