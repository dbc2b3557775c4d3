package testcases

// All contains all test cases organized by category.
var All = map[string][]TestCase{
	"fill":      fillCases,
	"grid":      gridCases,
	"buffer":    bufferCases,
	"precision": precisionCases,
	"complex":   complexCases,
	"subpath":   subpathCases,
	"large":     largeCases,
}
