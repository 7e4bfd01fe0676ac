package main

import (
	"strings"
	"testing"
)

const baselineOutput = `goos: linux
goarch: amd64
pkg: github.com/MrEthical07/goShop
BenchmarkMetricsInc-8           	100000000	        10.0 ns/op	       0 B/op	       0 allocs/op
BenchmarkMetricsInc-8           	100000000	        12.0 ns/op	       0 B/op	       0 allocs/op
BenchmarkMetricsInc-8           	100000000	        11.0 ns/op	       0 B/op	       0 allocs/op
BenchmarkRender-8               	   50000	     20000 ns/op	    8192 B/op	       3 allocs/op
PASS
`

func TestParseBenchmarksKeepsTrackedSamples(t *testing.T) {
	benchmarks := tracked{"BenchmarkMetricsInc": {"ns/op", "allocs/op"}}
	samples, err := parseBenchmarks(strings.NewReader(baselineOutput), benchmarks)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := samples["BenchmarkMetricsInc"]["ns/op"]; len(got) != 3 || median(got) != 11 {
		t.Fatalf("unexpected ns/op samples %v", got)
	}
	if _, ok := samples["BenchmarkRender"]; ok {
		t.Fatalf("untracked benchmarks must be skipped")
	}
}

func TestCompareFlagsRegressions(t *testing.T) {
	benchmarks := tracked{
		"BenchmarkMetricsInc": {"ns/op", "allocs/op"},
		"BenchmarkRender":     {"ns/op"},
	}
	base, _ := parseBenchmarks(strings.NewReader(baselineOutput), benchmarks)
	candidate, _ := parseBenchmarks(strings.NewReader(strings.NewReplacer(
		"20000 ns/op", "30000 ns/op",
		"12.0 ns/op", "11.5 ns/op",
	).Replace(baselineOutput)), benchmarks)

	rows, failures := compare(base, candidate, benchmarks, 0.30)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %+v", rows)
	}
	if len(failures) != 1 || !strings.Contains(failures[0], "BenchmarkRender ns/op regressed by +50.00%") {
		t.Fatalf("unexpected failures %v", failures)
	}
}

func TestCompareZeroAllocBaseline(t *testing.T) {
	benchmarks := tracked{"BenchmarkMetricsInc": {"allocs/op"}}
	base, _ := parseBenchmarks(strings.NewReader(baselineOutput), benchmarks)
	candidate, _ := parseBenchmarks(strings.NewReader(strings.ReplaceAll(baselineOutput, "0 allocs/op", "1 allocs/op")), benchmarks)

	_, failures := compare(base, candidate, benchmarks, 0.30)
	if len(failures) != 1 || !strings.Contains(failures[0], "went from 0 to 1") {
		t.Fatalf("expected an allocation regression, got %v", failures)
	}
}

func TestCompareMissingSamples(t *testing.T) {
	_, failures := compare(sampleSet{}, sampleSet{}, tracked{"BenchmarkX": {"ns/op"}}, 0.3)
	if len(failures) != 1 || !strings.Contains(failures[0], "missing samples") {
		t.Fatalf("unexpected failures %v", failures)
	}
}

func TestParseTracked(t *testing.T) {
	got, err := parseTracked(defaultTracked)
	if err != nil {
		t.Fatalf("default list: %v", err)
	}
	if units := got["BenchmarkMetricsInc"]; len(units) != 2 || units[1] != "allocs/op" {
		t.Fatalf("unexpected units %v", units)
	}
	for _, bad := range []string{"", ";", "BenchmarkX", "BenchmarkX:"} {
		if _, err := parseTracked(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
	if normalizeName("BenchmarkRender-16") != "BenchmarkRender" || normalizeName("BenchmarkA-b") != "BenchmarkA-b" {
		t.Fatalf("unexpected name normalization")
	}
}
