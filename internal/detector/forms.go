package detector

import (
	"fmt"
	"strings"

	"github.com/nao1215/patternscan/internal/model"
)

var (
	marketingNameKeywords = []string{"newsletter", "marketing", "promo", "offer", "email"}
	sensitiveNameKeywords = []string{"phone", "address", "birth", "age", "income", "ssn"}
)

// formSelector references a form by its index in the snapshot.
func formSelector(i int) string {
	return fmt.Sprintf("form:nth-of-type(%d)", i+1)
}

// detectPrecheckedConsent flags forms that opt users into marketing by default.
func detectPrecheckedConsent(s *model.PageSnapshot) []model.Finding {
	var findings []model.Finding
	for i, f := range s.Forms {
		count := 0
		for _, in := range f.Inputs {
			if in.Type != "checkbox" || !in.Checked {
				continue
			}
			if containsAny(strings.ToLower(in.Name), marketingNameKeywords) {
				count++
			}
		}
		if count == 0 {
			continue
		}
		r := rule(RulePrecheckedMarketing)
		findings = append(findings, r.finding(
			fmt.Sprintf("Form #%d has %d pre-checked marketing consent checkbox(es).", i+1, count),
			formSelector(i),
		))
	}
	return findings
}

// detectRequiredFields flags forms where required fields are not marked in
// their placeholders.
func detectRequiredFields(s *model.PageSnapshot) []model.Finding {
	var findings []model.Finding
	for i, f := range s.Forms {
		required, marked := 0, 0
		for _, in := range f.Inputs {
			if in.Required {
				required++
			}
			placeholder := strings.ToLower(in.Placeholder)
			if strings.Contains(placeholder, "*") || strings.Contains(placeholder, "required") {
				marked++
			}
		}
		gap := required - marked
		if gap <= 0 {
			continue
		}
		r := rule(RuleUnclearRequiredFields)
		r.Confidence = min(requiredFieldsBaseConfidence+requiredFieldsStep*gap, requiredFieldsMaxConfidence)
		findings = append(findings, r.finding(
			fmt.Sprintf("Form #%d has %d required field(s) but only %d are marked as required.", i+1, required, marked),
			formSelector(i),
		))
	}
	return findings
}

// detectDataCollection flags forms that ask for many sensitive fields.
func detectDataCollection(s *model.PageSnapshot) []model.Finding {
	var findings []model.Finding
	for i, f := range s.Forms {
		sensitive := make([]string, 0)
		for _, in := range f.Inputs {
			if containsAny(strings.ToLower(in.Name), sensitiveNameKeywords) {
				sensitive = append(sensitive, in.Name)
			}
		}
		if len(sensitive) <= sensitiveFieldThreshold {
			continue
		}
		r := rule(RuleExcessiveDataCollection)
		findings = append(findings, r.finding(
			fmt.Sprintf("Form #%d requests %d sensitive fields: %s.", i+1, len(sensitive), quote(strings.Join(sensitive, ", "))),
			formSelector(i),
		))
	}
	return findings
}
