package stat

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/yatsu/githubstat/internal/domain"
	"github.com/yatsu/githubstat/internal/gateway"
)

// ViewsClones collects the trailing daily time series of page views and
// git clones. Unlike the other sources its rows carry the series' own
// dates rather than the reference date, so re-fetching the overlapping
// window on consecutive days merges cleanly by date.
type ViewsClones struct{}

func (ViewsClones) Kind() domain.Kind { return domain.KindViewsClones }

func (ViewsClones) Columns() []string {
	return []string{"date", "views_total", "views_unique", "clones_total", "clones_unique"}
}

func (ViewsClones) KeyColumns() []string { return []string{"date"} }

func (ViewsClones) Collect(ctx context.Context, f gateway.Fetcher, _ time.Time) ([]domain.Record, error) {
	views, err := f.Views(ctx)
	if err != nil {
		return nil, err
	}
	clones, err := f.Clones(ctx)
	if err != nil {
		return nil, err
	}
	return viewsClonesRows(views, clones), nil
}

type trafficCounts struct {
	viewsTotal   int
	viewsUnique  int
	clonesTotal  int
	clonesUnique int
}

// viewsClonesRows joins the two series on calendar day. A day present
// in only one series keeps zeros for the other.
func viewsClonesRows(views, clones []gateway.TrafficDay) []domain.Record {
	byDay := make(map[string]*trafficCounts)
	ensure := func(day string) *trafficCounts {
		if _, ok := byDay[day]; !ok {
			byDay[day] = &trafficCounts{}
		}
		return byDay[day]
	}
	for _, v := range views {
		c := ensure(v.Day.UTC().Format(domain.DateLayout))
		c.viewsTotal = v.Total
		c.viewsUnique = v.Uniques
	}
	for _, cl := range clones {
		c := ensure(cl.Day.UTC().Format(domain.DateLayout))
		c.clonesTotal = cl.Total
		c.clonesUnique = cl.Uniques
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	rows := make([]domain.Record, 0, len(days))
	for _, day := range days {
		c := byDay[day]
		rows = append(rows, domain.Record{
			"date":          day,
			"views_total":   strconv.Itoa(c.viewsTotal),
			"views_unique":  strconv.Itoa(c.viewsUnique),
			"clones_total":  strconv.Itoa(c.clonesTotal),
			"clones_unique": strconv.Itoa(c.clonesUnique),
		})
	}
	return rows
}
