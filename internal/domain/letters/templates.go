package letters

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"peopleops/internal/domain/payroll"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pages = template.Must(template.New("letters").
	Funcs(template.FuncMap{
		"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	}).
	ParseFS(templateFS, "templates/*.tmpl"))

type letterData struct {
	CompanyName string
	Name        string
	Email       string
	Date        string
	Breakdown   payroll.Breakdown
}

func assembleHTML(kind, companyName string, target Target, b payroll.Breakdown, now time.Time) (string, error) {
	var name string
	switch kind {
	case KindJoining:
		name = "joining.tmpl"
	case KindSalary:
		name = "salary.tmpl"
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	data := letterData{
		CompanyName: companyName,
		Name:        target.Name,
		Email:       target.Email,
		Date:        now.Format("2 January 2006"),
		Breakdown:   b,
	}
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
