// Package worksheet renders an audited rating run as a printable PDF that
// walks the premium from base rate to modal premium.
package worksheet

import (
	"errors"
	"fmt"
	"sort"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/railzwaylabs/ratebook/internal/calculator"
	ratingdomain "github.com/railzwaylabs/ratebook/internal/rating/domain"
	ratingrundomain "github.com/railzwaylabs/ratebook/internal/ratingrun/domain"
	"github.com/shopspring/decimal"
)

var ErrMissingRun = errors.New("worksheet_missing_run")

var (
	colorPrimary = &props.Color{Red: 24, Green: 60, Blue: 110}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorError   = &props.Color{Red: 160, Green: 30, Blue: 30}
)

// Run is the decoded audit record a worksheet is drawn from.
type Run struct {
	Record *ratingrundomain.RatingRun
	Input  *ratingdomain.InputSnapshot
	Output *ratingdomain.OutputSnapshot
}

func Render(run Run) ([]byte, error) {
	if run.Record == nil {
		return nil, ErrMissingRun
	}
	if run.Input == nil {
		run.Input = &ratingdomain.InputSnapshot{}
	}
	if run.Output == nil {
		run.Output = &ratingdomain.OutputSnapshot{}
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(12).WithRightMargin(12).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Rating worksheet "+run.Record.ID.String(), true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(headerRow(run))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRows(run)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	out := run.Output
	switch {
	case out.Error != nil:
		m.AddRows(errorRows(out.Error)...)
	case out.Result == nil:
		m.AddRows(noteRow("No result was recorded for this run.", colorGray))
	case !out.Result.Eligible:
		m.AddRows(noteRow("Ineligible: "+out.Result.IneligibleReason, colorError))
	case out.Result.Result != nil:
		m.AddRows(pipelineRows(out.Result.Result)...)
	}

	if out.Result != nil && len(out.Result.Extensions) > 0 {
		m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
		m.AddRows(extensionRows(out.Result.Extensions)...)
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(row.New(6).Add(col.New(12).Add(
		text.New("Input hash "+run.Record.InputHash, props.Text{Size: 6.5, Color: colorGray, Top: 1}),
	)))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("worksheet: generate document: %w", err)
	}
	return doc.GetBytes(), nil
}

func headerRow(run Run) core.Row {
	return row.New(16).Add(
		col.New(7).Add(
			text.New("RATING WORKSHEET", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Run "+run.Record.ID.String(), props.Text{Size: 8, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New(string(run.Record.Status), props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Right, Top: 1, Color: statusColor(run.Record.Status),
			}),
			text.New("Rated "+run.Record.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST"), props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

func statusColor(status ratingrundomain.Status) *props.Color {
	switch status {
	case ratingrundomain.StatusSuccess:
		return colorPrimary
	case ratingrundomain.StatusError:
		return colorError
	default:
		return colorGray
	}
}

func summaryRows(run Run) []core.Row {
	rec := run.Record
	version := "-"
	if rec.RateTableVersion != nil {
		version = fmt.Sprintf("v%d", *rec.RateTableVersion)
	}
	carrier := "-"
	if run.Output.Result != nil && run.Output.Result.Carrier != "" {
		carrier = run.Output.Result.Carrier
	}

	return []core.Row{
		pairRow("Scenario", rec.ScenarioID.String(), "Product type", rec.ProductType),
		pairRow("Rate table", version, "Carrier", carrier),
		pairRow("Engine", rec.EngineVersion, "Rating date", nonEmpty(run.Input.RatingDate, "-")),
		pairRow("Payment mode", nonEmpty(run.Input.Payload.PaymentMode, "-"), "Requested by", nonEmpty(rec.UserID, "-")),
	}
}

func pairRow(k1, v1, k2, v2 string) core.Row {
	label := func(s string) core.Col {
		return col.New(2).Add(text.New(s, props.Text{Style: fontstyle.Bold, Size: 8, Top: 1, Color: colorGray}))
	}
	value := func(s string) core.Col {
		return col.New(4).Add(text.New(s, props.Text{Size: 8, Top: 1}))
	}
	return row.New(6).Add(label(k1), value(v1), label(k2), value(v2))
}

func errorRows(detail *ratingdomain.ErrorDetail) []core.Row {
	return []core.Row{
		noteRow(fmt.Sprintf("Run failed (%s): %s", detail.Kind, detail.Code), colorError),
		row.New(8).Add(col.New(12).Add(
			text.New(detail.Message, props.Text{Size: 8, Top: 1, Color: colorGray}),
		)),
	}
}

func noteRow(msg string, color *props.Color) core.Row {
	return row.New(10).Add(col.New(12).Add(
		text.New(msg, props.Text{Style: fontstyle.Bold, Size: 10, Top: 2, Color: color}),
	))
}

func stepHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2,
		}))
	}
	return row.New(8).Add(
		h("Step", 5, align.Left),
		h("Mode", 2, align.Center),
		h("Value", 2, align.Right),
		h("Premium", 3, align.Right),
	)
}

func stepRow(step, mode, value, premium string, bold bool) core.Row {
	style := fontstyle.Normal
	if bold {
		style = fontstyle.Bold
	}
	return row.New(6).Add(
		col.New(5).Add(text.New(step, props.Text{Size: 8, Top: 1, Style: style})),
		col.New(2).Add(text.New(mode, props.Text{Size: 8, Top: 1, Align: align.Center})),
		col.New(2).Add(text.New(value, props.Text{Size: 8, Top: 1, Align: align.Right})),
		col.New(3).Add(text.New(premium, props.Text{Size: 8, Top: 1, Align: align.Right, Style: style})),
	)
}

func pipelineRows(res *calculator.Result) []core.Row {
	rows := []core.Row{
		stepHeaderRow(),
		stepRow("Base rate "+res.BaseRateKey, "", res.BaseRateValue.String(), "", false),
		stepRow("Exposure", "", res.Exposure.String(), "", false),
		stepRow("Base premium", "", "", money(res.BasePremium), true),
	}
	for _, f := range res.FactorsApplied {
		rows = append(rows, stepRow(
			fmt.Sprintf("Factor %s = %s", f.FactorCode, f.OptionValue),
			string(f.ApplyMode), f.Value.String(), money(f.PremiumAfter), false,
		))
	}
	rows = append(rows, stepRow("Factored premium", "", "", money(res.PremiumFactored), true))

	for _, r := range res.RidersApplied {
		label := "Rider " + nonEmpty(r.Label, r.RiderCode)
		if r.Default {
			label += " (default)"
		}
		rows = append(rows, stepRow(label, string(r.ApplyMode), r.Value.String(), "+"+money(r.Amount), false))
	}
	rows = append(rows, stepRow("Premium with riders", "", "", money(res.PremiumWithRiders), true))

	for _, f := range res.FeesApplied {
		rows = append(rows, stepRow(
			fmt.Sprintf("%s %s", f.FeeType, nonEmpty(f.Label, f.FeeCode)),
			string(f.ApplyMode), f.Value.String(), signed(f.Amount), false,
		))
	}
	rows = append(rows,
		line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.2}),
		stepRow("Annual premium", "", "", money(res.PremiumAnnual), true),
		stepRow("Modal "+res.ModalMode, "factor", res.ModalFactor.String(), "", false),
		stepRow("Modal fee", "", "", money(res.ModalFee), false),
		row.New(9).Add(
			col.New(9).Add(text.New("MODAL PREMIUM", props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 2, Right: 2,
			})),
			col.New(3).Add(text.New(money(res.PremiumModal), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 2,
			})),
		),
	)
	return rows
}

func extensionRows(ext map[string]any) []core.Row {
	keys := make([]string, 0, len(ext))
	for k := range ext {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := []core.Row{row.New(7).Add(col.New(12).Add(
		text.New("PRODUCT DETAILS", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2}),
	))}
	for _, k := range keys {
		rows = append(rows, row.New(5).Add(
			col.New(5).Add(text.New(k, props.Text{Size: 8, Top: 0.5, Color: colorGray})),
			col.New(7).Add(text.New(fmt.Sprint(ext[k]), props.Text{Size: 8, Top: 0.5})),
		))
	}
	return rows
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
