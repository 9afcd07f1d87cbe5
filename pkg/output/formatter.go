// Package output renders discovery and validation results for the
// terminal.
package output

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/netneighbors/netneighbors/pkg/discovery"
	"github.com/netneighbors/netneighbors/pkg/model"
	"github.com/netneighbors/netneighbors/pkg/validate"
)

// PrintValidationReport prints a seed validation summary with colors
func PrintValidationReport(report *validate.Report) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	bold.Println("Seed Validation")
	bold.Println("===============")
	fmt.Printf("Input: %d domain(s)\n", report.Total)

	if len(report.Found) == report.WellFormed && len(report.Malformed) == 0 {
		green.Printf("Found in graph: %d/%d\n", len(report.Found), report.WellFormed)
	} else {
		fmt.Printf("Found in graph: %d/%d\n", len(report.Found), report.WellFormed)
	}

	if len(report.Malformed) > 0 {
		red.Printf("Malformed: %d\n", len(report.Malformed))
		for _, domain := range report.Malformed {
			yellow.Printf("  %s\n", domain)
		}
	}
	if len(report.NotFound) > 0 {
		yellow.Printf("Not found: %d\n", len(report.NotFound))
		for _, domain := range report.NotFound {
			fmt.Printf("  %s\n", domain)
		}
	}

	if len(report.Found) > 0 && len(report.Malformed) == 0 && len(report.NotFound) == 0 {
		green.Println("✓ All seeds resolve in the link graph")
	}
}

// PrintDiscoveryResult prints ranked discovery entries with colors
func PrintDiscoveryResult(result *discovery.Result, direction model.Direction) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Printf("Discovered %s\n", direction)
	bold.Println("=====================")
	fmt.Printf("Resolved seeds: %d\n", result.ResolvedSeeds)
	if len(result.DroppedSeeds) > 0 {
		yellow.Printf("Dropped seeds: %d\n", len(result.DroppedSeeds))
		for _, seed := range result.DroppedSeeds {
			fmt.Printf("  %s\n", seed)
		}
	}
	fmt.Println()

	if result.NoValidSeeds() {
		yellow.Println("No seeds resolve in the link graph; nothing to discover")
		return
	}
	if len(result.Entries) == 0 {
		yellow.Println("No domains meet the connection threshold")
		return
	}

	for _, entry := range result.Entries {
		cyan.Printf("%-40s", entry.Domain)
		fmt.Printf(" %4d connection(s) ", entry.Connections)
		if entry.Percentage >= 50 {
			green.Printf("%6.2f%%\n", entry.Percentage)
		} else {
			fmt.Printf("%6.2f%%\n", entry.Percentage)
		}
	}
	fmt.Println()
	fmt.Printf("Total: %d domain(s), %d edge(s)\n", len(result.Entries), len(result.Edges))
}

// PrintIntersectionResult prints a shared-backlinker graph summary
func PrintIntersectionResult(graph *model.Graph, sharedKind model.NodeKind) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Println("Shared Backlinkers")
	bold.Println("==================")

	shared := 0
	for _, node := range graph.SortedNodes() {
		if node.Kind != sharedKind {
			continue
		}
		shared++
		cyan.Printf("%-40s", node.ID)
		fmt.Printf(" %d connection(s)", node.Connections)
		kinds := make([]string, 0, len(node.GroupConnections))
		for kind := range node.GroupConnections {
			kinds = append(kinds, string(kind))
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Printf(" %s=%d", kind, node.GroupConnections[model.NodeKind(kind)])
		}
		fmt.Println()
	}

	if shared == 0 {
		yellow.Println("No domain backlinks both groups at the given thresholds")
		return
	}
	green.Printf("✓ %d shared connector(s), %d node(s), %d edge(s)\n",
		shared, len(graph.Nodes), len(graph.Edges))
}
