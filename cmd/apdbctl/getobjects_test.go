package main

import (
	"testing"

	"github.com/ap-survey/apdb/internal/pixel"
)

func TestConeRegionContainsItsOwnCenter(t *testing.T) {
	region := coneRegion(45, -10, 2)
	center := pixel.DirectionFromRaDec(45*3.141592653589793/180, -10*3.141592653589793/180)
	if !region.Contains(center) {
		t.Error("coneRegion() does not contain its own center")
	}
}

func TestConeRegionExcludesAntipode(t *testing.T) {
	region := coneRegion(0, 0, 1)
	antipode := pixel.DirectionFromRaDec(3.141592653589793, 0)
	if region.Contains(antipode) {
		t.Error("coneRegion() unexpectedly contains the antipodal direction")
	}
}
