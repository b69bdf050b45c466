package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type BenchmarkResult struct {
	Name       string  `json:"name"`
	Approach   string  `json:"approach"`
	Category   string  `json:"category"`
	Scenario   string  `json:"scenario"`
	Iterations int64   `json:"iterations"`
	NsPerOp    float64 `json:"ns_per_op"`
	BytesPerOp int64   `json:"bytes_per_op"`
	AllocsOp   int64   `json:"allocs_per_op"`
}

type CategoryResults struct {
	Category string
	Results  []BenchmarkResult
}

var approachColors = map[string]text.Colors{
	"Singleton": {text.FgGreen, text.Bold},
	"OnceValue": {text.FgCyan},
	"Do":        {text.FgYellow},
	"Dig":       {text.FgMagenta},
	"Fx":        {text.FgBlue},
}

var categoryTitles = map[string]string{
	"Get_Warm":     "Access after creation (single goroutine)",
	"Get_Parallel": "Access after creation (all CPUs)",
	"Get_Cold":     "First access, including construction",
}

var categoryOrder = []string{"Get_Warm", "Get_Parallel", "Get_Cold"}

func main() {
	exportJSONFlag := slices.Contains(os.Args[1:], "--json")

	benchDir := ".."
	if len(os.Args) > 1 && os.Args[1] != "--json" {
		benchDir = os.Args[1]
	}

	fmt.Println(text.Colors{text.Bold, text.FgCyan}.Sprint("Singleton access benchmark suite"))
	fmt.Println(text.Faint.Sprint("Running benchmarks..."))
	fmt.Println()

	cmd := exec.Command("go", "test", "-run=^$", "-bench=.", "-benchmem", "-count=3", "-benchtime=100ms")
	cmd.Dir = benchDir
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Benchmark failed: %s\n", string(exitErr.Stderr))
		}
		os.Exit(1)
	}

	results := parseResults(output)
	grouped := groupByCategory(results)

	for _, cat := range grouped {
		printCategory(cat)
	}

	printSummary(grouped)

	if exportJSONFlag {
		exportJSON(results)
	}
}

func parseResults(output []byte) []BenchmarkResult {
	var results []BenchmarkResult
	benchPattern := regexp.MustCompile(`^Benchmark(\w+)-\d+\s+(\d+)\s+([\d.]+) ns/op\s+(\d+) B/op\s+(\d+) allocs/op`)
	namePattern := regexp.MustCompile(`^([^_]+)_([^_]+)_(\w+)$`)

	seen := make(map[string][]BenchmarkResult)
	var order []string

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		matches := benchPattern.FindStringSubmatch(scanner.Text())
		if matches == nil {
			continue
		}

		name := matches[1]
		iterations, _ := strconv.ParseInt(matches[2], 10, 64)
		nsPerOp, _ := strconv.ParseFloat(matches[3], 64)
		bytesPerOp, _ := strconv.ParseInt(matches[4], 10, 64)
		allocsOp, _ := strconv.ParseInt(matches[5], 10, 64)

		var category, scenario, approach string
		if parts := namePattern.FindStringSubmatch(name); parts != nil {
			category, scenario, approach = parts[1], parts[2], parts[3]
		} else {
			category = name
			approach = name
		}

		if _, ok := seen[name]; !ok {
			order = append(order, name)
		}
		seen[name] = append(
			seen[name], BenchmarkResult{
				Name:       name,
				Approach:   approach,
				Category:   category,
				Scenario:   scenario,
				Iterations: iterations,
				NsPerOp:    nsPerOp,
				BytesPerOp: bytesPerOp,
				AllocsOp:   allocsOp,
			},
		)
	}

	for _, name := range order {
		runs := seen[name]

		var totalNs float64
		var totalBytes, totalAllocs int64
		for _, r := range runs {
			totalNs += r.NsPerOp
			totalBytes += r.BytesPerOp
			totalAllocs += r.AllocsOp
		}
		count := float64(len(runs))

		avg := runs[0]
		avg.NsPerOp = totalNs / count
		avg.BytesPerOp = int64(float64(totalBytes) / count)
		avg.AllocsOp = int64(float64(totalAllocs) / count)
		results = append(results, avg)
	}

	return results
}

func groupByCategory(results []BenchmarkResult) []CategoryResults {
	groups := make(map[string][]BenchmarkResult)
	var extra []string
	for _, r := range results {
		key := r.Category
		if r.Scenario != "" {
			key += "_" + r.Scenario
		}
		if _, ok := groups[key]; !ok && !slices.Contains(categoryOrder, key) {
			extra = append(extra, key)
		}
		groups[key] = append(groups[key], r)
	}

	var ordered []CategoryResults
	for _, key := range append(slices.Clone(categoryOrder), extra...) {
		rs, ok := groups[key]
		if !ok {
			continue
		}
		sort.Slice(
			rs, func(i, j int) bool {
				return rs[i].NsPerOp < rs[j].NsPerOp
			},
		)
		ordered = append(ordered, CategoryResults{Category: key, Results: rs})
	}

	return ordered
}

func printCategory(cat CategoryResults) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(formatCategoryTitle(cat.Category))
	t.AppendHeader(table.Row{"#", "Approach", "Time/op", "B/op", "Allocs/op", "Relative"})
	t.SetColumnConfigs(
		[]table.ColumnConfig{
			{Number: 3, Align: text.AlignRight},
			{Number: 4, Align: text.AlignRight},
			{Number: 5, Align: text.AlignRight},
			{Number: 6, Align: text.AlignRight},
		},
	)

	if len(cat.Results) == 0 {
		t.AppendRow(table.Row{"", "no results"})
		t.Render()
		fmt.Println()
		return
	}

	fastest := cat.Results[0].NsPerOp
	for i, r := range cat.Results {
		relative := "fastest"
		if i > 0 && fastest > 0 {
			relative = fmt.Sprintf("%.1fx slower", r.NsPerOp/fastest)
		}

		t.AppendRow(
			table.Row{
				i + 1,
				colorize(r.Approach),
				formatNs(r.NsPerOp),
				r.BytesPerOp,
				r.AllocsOp,
				relative,
			},
		)
	}

	t.Render()
	fmt.Println()
}

func colorize(approach string) string {
	if c, ok := approachColors[approach]; ok {
		return c.Sprint(approach)
	}
	return approach
}

func formatCategoryTitle(cat string) string {
	if title, ok := categoryTitles[cat]; ok {
		return title
	}
	return strings.ReplaceAll(cat, "_", " ")
}

func formatNs(ns float64) string {
	if ns >= 1_000_000 {
		return fmt.Sprintf("%.2f ms", ns/1_000_000)
	}
	if ns >= 1_000 {
		return fmt.Sprintf("%.2f µs", ns/1_000)
	}
	return fmt.Sprintf("%.1f ns", ns)
}

func printSummary(groups []CategoryResults) {
	wins := make(map[string]int)
	for _, cat := range groups {
		if len(cat.Results) > 0 {
			wins[cat.Results[0].Approach]++
		}
	}

	type approachWins struct {
		name string
		wins int
	}

	var sorted []approachWins
	for name, count := range wins {
		sorted = append(sorted, approachWins{name, count})
	}
	sort.Slice(
		sorted, func(i, j int) bool {
			if sorted[i].wins != sorted[j].wins {
				return sorted[i].wins > sorted[j].wins
			}
			return sorted[i].name < sorted[j].name
		},
	)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Summary")
	t.AppendHeader(table.Row{"Approach", "Fastest in"})
	for _, a := range sorted {
		t.AppendRow(table.Row{colorize(a.name), fmt.Sprintf("%d/%d categories", a.wins, len(groups))})
	}
	t.Render()
	fmt.Println()

	legend := table.NewWriter()
	legend.SetOutputMirror(os.Stdout)
	legend.SetStyle(table.StyleLight)
	legend.AppendHeader(table.Row{"Approach", "What it measures"})
	legend.AppendRows(
		[]table.Row{
			{colorize("Singleton"), "this library (github.com/danpasecinic/singleton)"},
			{colorize("OnceValue"), "sync.OnceValue from the standard library"},
			{colorize("Do"), "generics-based DI (github.com/samber/do)"},
			{colorize("Dig"), "reflection-based DI (go.uber.org/dig)"},
			{colorize("Fx"), "full application framework (go.uber.org/fx)"},
		},
	)
	legend.Render()
}

func exportJSON(results []BenchmarkResult) {
	output := struct {
		Benchmarks []BenchmarkResult `json:"benchmarks"`
	}{
		Benchmarks: results,
	}

	data, _ := json.MarshalIndent(output, "", "  ")
	_ = os.WriteFile("benchmark_results.json", data, 0644)
	fmt.Println(text.Faint.Sprint("Results exported to benchmark_results.json"))
}
