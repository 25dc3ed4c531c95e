package share

import (
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	TemplateFuncMap = template.FuncMap{
		"fn": func(value interface{}) string {
			switch e := value.(type) {
			case float32:
				return humanize.CommafWithDigits(float64(e), 1)
			case float64:
				return humanize.CommafWithDigits(e, 1)
			case int:
				return humanize.Comma(int64(e))
			case int64:
				return humanize.Comma(e)
			}
			return ""
		},
		"pct": func(part, whole int) string {
			if whole == 0 {
				return "-"
			}
			return humanize.FtoaWithDigits(float64(part)*100/float64(whole), 1) + "%"
		},
		"dur": func(d time.Duration) string {
			return d.Round(time.Millisecond).String()
		},
	}
)
