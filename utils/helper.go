package utils

import (
	"bytes"
	"errors"
	"math"
	"regexp"
	"strings"
	"text/template"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func IsValidEmail(email string) bool {
	// Basic email validation regex pattern
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	regex := regexp.MustCompile(pattern)
	return regex.MatchString(email)
}

func ProcessValidationErrors(err error) map[string]string {

	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

// execute given template string and return generated string
func ExecTemplate(tString string, data map[string]interface{}) (string, error) {
	t, err := template.New("tmpl").Parse(tString)
	if err != nil {
		return "", errors.New("error parsing template: " + err.Error())
	}
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return "", errors.New("failed to execute template: " + err.Error())
	}
	return b.String(), nil
}

// Clamp01 clamps a score component into [0, 1].
func Clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Round3 rounds a composite score for output. Scores are reported at
// three decimal places so identical inputs serialize identically.
func Round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

// Round2Float rounds a percentage-style value to two decimal places.
func Round2Float(f float64) float64 {
	return math.Round(f*100) / 100
}

// FormatMoney renders an amount with two decimal places and thousands
// separators, e.g. 1234.5 -> "1,234.50". No currency symbol.
func FormatMoney(d decimal.Decimal) string {
	s := d.Round(2).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	parts := strings.SplitN(s, ".", 2)
	intPart := parts[0]

	var b strings.Builder
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(intPart[i])
	}
	out := b.String() + "." + parts[1]
	if neg {
		out = "-" + out
	}
	return out
}
