package main

import (
	"math"

	"github.com/spf13/cobra"

	"github.com/ap-survey/apdb/internal/pixel"
)

var (
	getObjectsRA     float64
	getObjectsDec    float64
	getObjectsRadius float64
)

var getObjectsCmd = &cobra.Command{
	Use:   "get-objects",
	Short: "Fetch DiaObjects in a cone region",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		store, _, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		region := coneRegion(getObjectsRA, getObjectsDec, getObjectsRadius)
		result, err := store.GetDiaObjects(ctx, region)
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	},
}

func init() {
	getObjectsCmd.Flags().Float64Var(&getObjectsRA, "ra", 0, "cone center right ascension, degrees")
	getObjectsCmd.Flags().Float64Var(&getObjectsDec, "dec", 0, "cone center declination, degrees")
	getObjectsCmd.Flags().Float64Var(&getObjectsRadius, "radius", 1.0, "cone radius, degrees")
}

// coneRegion builds the pixel.Region a --ra/--dec/--radius flag triple
// describes: always a pixel.Circle of the given radius around (ra, dec).
func coneRegion(raDeg, decDeg, radiusDeg float64) pixel.Region {
	center := pixel.DirectionFromRaDec(raDeg*math.Pi/180, decDeg*math.Pi/180)
	return pixel.Circle{Center: center, RadiusRad: radiusDeg * math.Pi / 180}
}
