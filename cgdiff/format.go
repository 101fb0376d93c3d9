// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgdiff

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/google/safehtml/template"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/grpc/cgperf/internal/texttab"
)

var printer = message.NewPrinter(language.English)

// FormatCount formats n with thousands separators. If signed is set,
// non-negative values get a leading "+".
func FormatCount(n int64, signed bool) string {
	u := uint64(n)
	sign := ""
	if n < 0 {
		u = uint64(-n)
		sign = "-"
	} else if signed {
		sign = "+"
	}
	return sign + printer.Sprintf("%d", u)
}

// FormatPercent formats a percentage with an explicit sign and three
// decimal places.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%+.3f", p)
}

// Column widths of the text table. Wider values widen their column.
const (
	countWidth   = 14
	percentWidth = 7
)

// FormatText writes r as an aligned text table.
func (r *Report) FormatText(w io.Writer) error {
	count := texttab.MinWidth(countWidth)
	percent := texttab.MinWidth(percentWidth)
	tab := texttab.New(" | ")
	tab.Row().
		Cell("file1", texttab.Right, count).
		Cell("file2", texttab.Right, count).
		Cell("delta", texttab.Right, count).
		Cell("%", texttab.Right, percent).
		Cell("name")
	for _, row := range r.Rows {
		tab.Row().
			Cell(FormatCount(row.Baseline, false), texttab.Right, count).
			Cell(FormatCount(row.Candidate, false), texttab.Right, count).
			Cell(FormatCount(row.Delta, true), texttab.Right, count).
			Cell(FormatPercent(row.Percent), texttab.Right, percent).
			Cell(row.Name)
	}
	if err := tab.Format(w); err != nil {
		return err
	}
	if r.GeoMean != nil {
		_, err := fmt.Fprintf(w, "geomean ratio: %s\n", r.GeoMean)
		return err
	}
	return nil
}

func (g *GeoMeanRatio) String() string {
	if g.N == 0 || math.IsNaN(g.Ratio) {
		return "n/a (no keys with counts in both files)"
	}
	return fmt.Sprintf("%.3fx over %d keys", g.Ratio, g.N)
}

// FormatCSV writes r in CSV form. Numbers are written without
// separators.
func (r *Report) FormatCSV(w io.Writer) error {
	o := csv.NewWriter(w)
	o.Write([]string{"file1", "file2", "delta", "percent", "name"})
	for _, row := range r.Rows {
		o.Write([]string{
			strconv.FormatInt(row.Baseline, 10),
			strconv.FormatInt(row.Candidate, 10),
			strconv.FormatInt(row.Delta, 10),
			strconv.FormatFloat(row.Percent, 'f', 3, 64),
			row.Name,
		})
	}
	if r.GeoMean != nil && r.GeoMean.N > 0 {
		o.Write([]string{"", "", "", strconv.FormatFloat(r.GeoMean.Ratio, 'f', 6, 64), "geomean ratio"})
	}
	o.Flush()
	return o.Error()
}

const htmlText = `<table class="cgdiff">
<caption>{{.Event}}</caption>
<thead>
<tr><th>file1<th>file2<th>delta<th>%<th>name
</thead>
<tbody>
{{range .Rows -}}
{{if .Totals}}<tr class="totals">{{else if gt .Delta 0}}<tr class="worse">{{else if lt .Delta 0}}<tr class="better">{{else}}<tr>{{end -}}
<td>{{count .Baseline false}}<td>{{count .Candidate false}}<td>{{count .Delta true}}<td>{{percent .Percent}}<td>{{.Name}}
{{end -}}
</tbody>
{{- with .GeoMean}}
<tfoot>
<tr><td colspan="5">geomean ratio: {{.String}}
</tfoot>
{{- end}}
</table>
`

var htmlTemplate = template.Must(template.New("cgdiff").Funcs(template.FuncMap{
	"count":   FormatCount,
	"percent": FormatPercent,
}).Parse(htmlText))

// FormatHTML writes r as an HTML table.
func (r *Report) FormatHTML(w io.Writer) error {
	return htmlTemplate.Execute(w, r)
}

// FormatText writes the summary: the two totals, each followed by its
// label, and their difference.
func (s *Summary) FormatText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%16s %s\n%16s %s\n%16s (%s%%)\n",
		FormatCount(s.Baseline, false), s.BaselineName,
		FormatCount(s.Candidate, false), s.CandidateName,
		FormatCount(s.Delta, true), FormatPercent(s.Percent))
	return err
}
