// Command export writes the test case geometries to a GeoJSON feature
// collection, for inspection in a GIS or for cross-checking the expected
// areas with other tools.
// Run from the module root directory.
package main

import (
	"maps"
	"os"
	"slices"

	"github.com/paulmach/orb/geojson"

	"seehuhn.de/go/zonal/geometry"
	"seehuhn.de/go/zonal/testcases"
)

func main() {
	fc := geojson.NewFeatureCollection()

	for _, category := range slices.Sorted(maps.Keys(testcases.All)) {
		for _, tc := range testcases.All[category] {
			fc.Append(toFeature(category, tc))
		}
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		panic(err)
	}
	if err := os.MkdirAll("testdata", 0755); err != nil {
		panic(err)
	}
	if err := os.WriteFile("testdata/testcases.geojson", data, 0644); err != nil {
		panic(err)
	}
}

func toFeature(category string, tc testcases.TestCase) *geojson.Feature {
	f := geojson.NewFeature(geometry.ToOrb(tc.Geometry))
	f.ID = category + "_" + tc.Name
	f.Properties["category"] = category
	f.Properties["name"] = tc.Name
	f.Properties["area"] = tc.Area
	f.Properties["grid"] = map[string]any{
		"origin":      []float64{tc.Grid.Origin.X, tc.Grid.Origin.Y},
		"cell_width":  tc.Grid.CellWidth,
		"cell_height": tc.Grid.CellHeight,
		"cols":        tc.Grid.Cols,
		"rows":        tc.Grid.Rows,
	}
	if b := tc.Buffer; b != nil {
		f.Properties["buffer_width"] = b.Width
		f.Properties["buffer_cap"] = b.Cap.String()
		f.Properties["buffer_join"] = b.Join.String()
		f.Properties["miter_limit"] = b.MiterLimit
	}
	return f
}
