package main

import (
	"time"

	"github.com/spf13/pflag"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/cli"
)

// eventFilters are the event selection flags shared by export and events list.
type eventFilters struct {
	from     string
	to       string
	category string
	module   string
	action   string
	user     string
	statuses []string
	limit    int
	offset   int
}

func (f *eventFilters) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.from, "from", "", "created at or after (RFC3339 or YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "created at or before (RFC3339 or YYYY-MM-DD)")
	fs.StringVar(&f.category, "category", "", "filter by category")
	fs.StringVar(&f.module, "module", "", "filter by module")
	fs.StringVar(&f.action, "action", "", "filter by action")
	fs.StringVar(&f.user, "user", "", "filter by user")
	fs.StringSliceVar(&f.statuses, "status", nil, "filter by status: active, marked_for_deletion, deleted")
	fs.IntVar(&f.limit, "limit", 0, "maximum events")
	fs.IntVar(&f.offset, "offset", 0, "events to skip")
}

// query builds the event query. A "to" date without a time covers the
// whole day.
func (f *eventFilters) query() (*audit.EventQuery, error) {
	q := &audit.EventQuery{
		Category: f.category,
		Module:   f.module,
		Action:   f.action,
		UserID:   f.user,
		Limit:    f.limit,
		Offset:   f.offset,
	}

	if f.from != "" {
		t, _, err := parseTimeFlag(f.from)
		if err != nil {
			return nil, cli.NewConfigError("from", err.Error())
		}
		q.CreatedFrom = &t
	}
	if f.to != "" {
		t, dateOnly, err := parseTimeFlag(f.to)
		if err != nil {
			return nil, cli.NewConfigError("to", err.Error())
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
		}
		q.CreatedTo = &t
	}
	for _, s := range f.statuses {
		status, err := audit.ParseLifecycleStatus(s)
		if err != nil {
			return nil, cli.NewConfigError("status", err.Error())
		}
		q.Statuses = append(q.Statuses, status)
	}
	return q, nil
}

func parseTimeFlag(s string) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse(audit.DateLayout, s); err == nil {
		return t.UTC(), true, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	return t.UTC(), false, err
}
