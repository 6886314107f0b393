package main

import (
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/ap-survey/apdb/internal/apdberr"
)

var sinceParser = buildSinceParser()

func buildSinceParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// parseSince turns a --visit-time value into a time.Time, trying RFC3339
// first and falling back to natural-language phrases ("3 days ago",
// "yesterday") via olebedev/when. Empty input means "now".
func parseSince(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	result, err := sinceParser.Parse(s, now)
	if err != nil {
		return time.Time{}, apdberr.NewDataError("parseSince", "parsing --visit-time %q: %v", s, err)
	}
	if result == nil {
		return time.Time{}, apdberr.NewDataError("parseSince", "could not understand --visit-time %q", s)
	}
	return result.Time, nil
}
