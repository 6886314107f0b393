package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ap-survey/apdb/internal/apdb"
	"github.com/ap-survey/apdb/internal/apdberr"
	"github.com/ap-survey/apdb/internal/frame"
)

var (
	getSourcesRA        float64
	getSourcesDec       float64
	getSourcesRadius    float64
	getSourcesObjectIDs string
	getSourcesSince     string
)

var getSourcesCmd = &cobra.Command{
	Use:   "get-sources",
	Short: "Fetch DiaSources in a cone region",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGetSources(true)
	},
}

var getForcedSourcesCmd = &cobra.Command{
	Use:   "get-forced-sources",
	Short: "Fetch DiaForcedSources in a cone region",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGetSources(false)
	},
}

func init() {
	for _, c := range []*cobra.Command{getSourcesCmd, getForcedSourcesCmd} {
		c.Flags().Float64Var(&getSourcesRA, "ra", 0, "cone center right ascension, degrees")
		c.Flags().Float64Var(&getSourcesDec, "dec", 0, "cone center declination, degrees")
		c.Flags().Float64Var(&getSourcesRadius, "radius", 1.0, "cone radius, degrees")
		c.Flags().StringVar(&getSourcesObjectIDs, "object-ids", "", "comma-separated diaObjectId list to restrict the read to")
		c.Flags().StringVar(&getSourcesSince, "visit-time", "", "visit time the read's history window is measured from (RFC3339 or natural language, default now)")
	}
}

func runGetSources(sources bool) error {
	ctx, cancel := signalContext()
	defer cancel()

	store, _, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	visitTime, err := parseSince(getSourcesSince, time.Now())
	if err != nil {
		return err
	}
	ids, err := parseObjectIDs(getSourcesObjectIDs)
	if err != nil {
		return err
	}
	region := coneRegion(getSourcesRA, getSourcesDec, getSourcesRadius)

	var res frame.Result
	if sources {
		res, err = store.GetDiaSources(ctx, region, ids, visitTime)
	} else {
		res, err = store.GetDiaForcedSources(ctx, region, ids, visitTime)
	}
	if err != nil {
		return err
	}
	if apdb.IsAbsent(res) {
		FatalError("this backend's history window is disabled for this table (read_*_months: 0)")
	}
	printResult(res)
	return nil
}

// parseObjectIDs splits a comma-separated --object-ids flag value into
// int64s; an empty string means "no object filter."
func parseObjectIDs(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, apdberr.NewDataError("parseObjectIDs", "invalid diaObjectId %q: %v", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
