package payroll

import "math"

// Component percentages, applied to the annual CTC (basic) or to the
// annual basic (the rest).
const (
	basicShare = 0.40
	hraShare   = 0.50
	pfShare    = 0.12
	pfWageCap  = 180000.0 // statutory annual cap on PF wages
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeBreakdown decomposes an annual CTC into earnings, deductions and
// benefits. Basic is 40% of CTC, HRA 50% of basic, employer PF 12% of
// capped basic carried as a benefit inside the CTC, and the special
// allowance absorbs the remainder so the rows always sum back to the CTC.
// Employee PF mirrors employer PF as a deduction from gross.
func ComputeBreakdown(annualCTC float64) (Breakdown, error) {
	if annualCTC <= 0 {
		return Breakdown{}, ErrInvalidCTC
	}

	basic := round2(annualCTC * basicShare)
	hra := round2(basic * hraShare)

	pfWage := basic
	if pfWage > pfWageCap {
		pfWage = pfWageCap
	}
	employerPF := round2(pfWage * pfShare)
	employeePF := round2(pfWage * pfShare)

	special := round2(annualCTC - basic - hra - employerPF)
	if special < 0 {
		special = 0
	}

	row := func(code, name string, yearly float64) MoneyRow {
		return MoneyRow{Code: code, Name: name, Yearly: yearly, Monthly: round2(yearly / 12)}
	}

	b := Breakdown{
		AnnualCTC:  round2(annualCTC),
		MonthlyCTC: round2(annualCTC / 12),
		Earnings: []MoneyRow{
			row(ComponentBasic, "Basic", basic),
			row(ComponentHRA, "House Rent Allowance", hra),
			row(ComponentSpecial, "Special Allowance", special),
		},
		Deductions: []MoneyRow{
			row(ComponentPFEmployee, "Provident Fund (Employee)", employeePF),
		},
		Benefits: []MoneyRow{
			row(ComponentPFEmployer, "Provident Fund (Employer)", employerPF),
		},
	}

	for _, r := range b.Earnings {
		b.GrossMonthly += r.Monthly
	}
	for _, r := range b.Deductions {
		b.DeductionsTotal += r.Monthly
	}
	b.GrossMonthly = round2(b.GrossMonthly)
	b.DeductionsTotal = round2(b.DeductionsTotal)
	b.NetMonthly = round2(b.GrossMonthly - b.DeductionsTotal)
	return b, nil
}
