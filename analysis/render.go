package analysis

import (
	"io"
	"sort"
	"strings"
	"text/template"

	"logreplay/resource"
	"logreplay/share"
	"logreplay/spelldata"

	"github.com/pkg/errors"
)

const summaryTemplate = `run {{.RunID}}  profile {{.Profile}}  player {{.Player}}  ({{dur .Elapsed}})
events {{fn .Statistic.EventsIn}} in, {{fn .Statistic.Skipped}} skipped, {{fn .Statistic.EventsOut}} out, {{fn .Statistic.Fabricated}} fabricated
links {{fn .Statistic.Links}}{{range .Relations}}  {{.Name}}={{fn .Count}}{{end}}
{{range $t := .Tables}}
[{{.Name}}]
{{printf "%-32s %-9s %7s %7s %9s %9s %9s %7s" "source" "role" "casts" "events" "generated" "wasted" "effective" "share"}}
{{range .Rows}}{{printf "%-32s %-9s %7s %7s %9s %9s %9s %7s" .Label .Role (fn .Triggers) (fn .Events) (fn .Generated) (fn .Wasted) (fn .Effective) (pct .Generated $t.Generated)}}
{{end}}{{printf "%-32s %-9s %7s %7s %9s %9s %9s" "total" "" "" (fn .Total.Events) (fn .Total.Generated) (fn .Total.Wasted) (fn .Total.Effective)}}
{{end}}`

var tmplSummary = template.Must(
	template.New("summary").
		Funcs(share.TemplateFuncMap).
		Parse(summaryTemplate),
)

type summaryView struct {
	*Result
	Relations []relationView
	Tables    []tableView
}

type relationView struct {
	Name  string
	Count int
}

type tableView struct {
	Name      string
	Rows      []rowView
	Total     resource.Summary
	Generated int
}

type rowView struct {
	resource.Summary
	Label string
	Role  string
}

func newSummaryView(r *Result, c *spelldata.Catalog) *summaryView {
	v := &summaryView{Result: r}

	for rel, n := range r.LinkStats {
		v.Relations = append(v.Relations, relationView{Name: string(rel), Count: n})
	}
	sort.Slice(v.Relations, func(i, k int) bool { return v.Relations[i].Name < v.Relations[k].Name })

	for _, a := range r.Attributions {
		t := tableView{
			Name:  a.Table,
			Total: a.Total(),
		}
		t.Generated = t.Total.Generated

		for _, s := range a.Rows {
			t.Rows = append(t.Rows, rowView{Summary: s, Label: label(s, c), Role: s.Role.String()})
		}
		t.Rows = append(t.Rows, rowView{Summary: a.Unknown, Label: resource.Unknown})

		v.Tables = append(v.Tables, t)
	}

	return v
}

func label(s resource.Summary, c *spelldata.Catalog) string {
	if s.Ability == 0 || c == nil {
		return s.Name
	}
	name := c.Name(s.Ability)
	if strings.EqualFold(name, s.Name) {
		return name
	}
	return s.Name + " (" + name + ")"
}

// Render writes the text summary of a result. Nothing is written when the
// template fails.
func Render(w io.Writer, r *Result, c *spelldata.Catalog) error {
	buf := getBuffer()
	defer putBuffer(buf)

	err := tmplSummary.Execute(buf, newSummaryView(r, c))
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = buf.WriteTo(w)
	return errors.WithStack(err)
}

func RenderString(r *Result, c *spelldata.Catalog) (string, error) {
	var sb strings.Builder
	if err := Render(&sb, r, c); err != nil {
		return "", err
	}
	return sb.String(), nil
}
