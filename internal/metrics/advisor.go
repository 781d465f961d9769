package metrics

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	advisorThresholdSeconds = 30.0
	testDirFileThreshold    = 50
)

var vendorDirNames = map[string]bool{
	"vendor":      true,
	"third_party": true,
	"third-party": true,
	"thirdparty":  true,
}

var testDirNames = map[string]bool{
	"test":      true,
	"tests":     true,
	"__tests__": true,
	"testdata":  true,
	"spec":      true,
}

// Advisor suggests exclusion patterns when a base time estimate is
// large enough that trimming the tree is worth the user's attention
// (§4.9: only fires when the base estimate exceeds 30s).
type Advisor struct{}

// NewAdvisor builds an Advisor.
func NewAdvisor() *Advisor {
	return &Advisor{}
}

// Suggest scans paths (relative, slash-separated) and returns
// human-readable exclusion suggestions, or nil if baseEstimateSeconds
// doesn't clear the threshold or nothing stands out.
func (a *Advisor) Suggest(paths []string, baseEstimateSeconds float64) []string {
	if baseEstimateSeconds <= advisorThresholdSeconds {
		return nil
	}

	var (
		nodeModules int
		gitDir      int
		vendorCount = map[string]int{}
		testCount   = map[string]int{}
	)

	for _, p := range paths {
		segs := strings.Split(filepath.ToSlash(p), "/")
		for _, seg := range segs {
			switch {
			case seg == "node_modules":
				nodeModules++
			case seg == ".git":
				gitDir++
			case vendorDirNames[seg]:
				vendorCount[seg]++
			case testDirNames[seg]:
				testCount[seg]++
			}
		}
	}

	var suggestions []string
	if nodeModules > 0 {
		suggestions = append(suggestions, fmt.Sprintf("exclude node_modules/ (%d files)", nodeModules))
	}
	if gitDir > 0 {
		suggestions = append(suggestions, fmt.Sprintf("exclude .git/ (%d files)", gitDir))
	}
	for name, count := range vendorCount {
		suggestions = append(suggestions, fmt.Sprintf("exclude %s/ (%d files)", name, count))
	}
	for name, count := range testCount {
		if count > testDirFileThreshold {
			suggestions = append(suggestions, fmt.Sprintf("exclude %s/ (%d files)", name, count))
		}
	}
	return suggestions
}
