package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/patternscan/internal/model"
)

// HTML element name constants for form field detection.
const (
	htmlElementInput    = "input"
	htmlElementSelect   = "select"
	htmlElementTextarea = "textarea"
)

// nonDataInputs are input types that never carry user data.
var nonDataInputs = map[string]bool{
	"hidden": true,
	"submit": true,
	"button": true,
	"reset":  true,
	"image":  true,
}

func extractForms(d *document, s *model.PageSnapshot) {
	d.doc.Find("form").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(s.Forms) >= model.MaxForms {
			return false
		}
		method := strings.ToLower(strings.TrimSpace(sel.AttrOr("method", "")))
		if method == "" {
			method = "get"
		}
		form := model.Form{
			Action:     strings.TrimSpace(sel.AttrOr("action", "")),
			Method:     method,
			SubmitText: submitText(sel),
			Inputs:     make([]model.FormInput, 0),
		}
		sel.Find("input, select, textarea").EachWithBreak(func(_ int, in *goquery.Selection) bool {
			if len(form.Inputs) >= model.MaxInputsPerForm {
				return false
			}
			input, ok := formInput(in)
			if ok {
				form.Inputs = append(form.Inputs, input)
			}
			return true
		})
		s.Forms = append(s.Forms, form)
		return true
	})
}

// formInput maps a field element. It returns false for non-data inputs.
func formInput(sel *goquery.Selection) (model.FormInput, bool) {
	var fieldType string
	switch goquery.NodeName(sel) {
	case htmlElementSelect:
		fieldType = htmlElementSelect
	case htmlElementTextarea:
		fieldType = htmlElementTextarea
	default:
		fieldType = strings.ToLower(strings.TrimSpace(sel.AttrOr("type", "")))
		if fieldType == "" {
			fieldType = "text"
		}
	}
	if nonDataInputs[fieldType] {
		return model.FormInput{}, false
	}

	name := strings.TrimSpace(sel.AttrOr("name", ""))
	if name == "" {
		name = strings.TrimSpace(sel.AttrOr("id", ""))
	}

	return model.FormInput{
		Type:        fieldType,
		Name:        fragment(name),
		Placeholder: fragment(sel.AttrOr("placeholder", "")),
		Required:    hasAttr(sel, "required") || sel.AttrOr("aria-required", "") == "true",
		Checked:     hasAttr(sel, "checked"),
	}, true
}

// submitText returns the label of the form's first submit control.
func submitText(form *goquery.Selection) string {
	submit := form.Find(`button[type="submit"], input[type="submit"], button:not([type])`).First()
	if submit.Length() == 0 {
		return ""
	}
	if goquery.NodeName(submit) == htmlElementInput {
		return fragment(submit.AttrOr("value", "Submit"))
	}
	return fragment(submit.Text())
}
