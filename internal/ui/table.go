package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"mlprep/internal/warehouse"
)

// StepRow is one line of a run summary.
type StepRow struct {
	Step     string
	Output   string
	Detail   string
	Duration time.Duration
	Err      error
}

// KeyValueTable renders two-column rows in the order given.
func KeyValueTable(rows [][2]string) string {
	var buf strings.Builder

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Key", "Value"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, row := range rows {
		table.Append([]string{row[0], row[1]})
	}

	table.Render()
	return buf.String()
}

// PartitionTable renders the partition sizes with their share of the total.
// TRAIN, VALIDATE and TEST come first; any other labels follow sorted.
func PartitionTable(partitions map[string]int64) string {
	var buf strings.Builder

	var total int64
	for _, n := range partitions {
		total += n
	}

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Split", "Rows", "Share"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetFooter([]string{"Total", fmt.Sprintf("%d", total), ""})

	for _, label := range partitionOrder(partitions) {
		n := partitions[label]
		share := 0.0
		if total > 0 {
			share = float64(n) * 100 / float64(total)
		}
		table.Append([]string{partitionLabel(label), fmt.Sprintf("%d", n), fmt.Sprintf("%.1f%%", share)})
	}

	table.Render()
	return buf.String()
}

// StepTable renders the summary of a pipeline run.
func StepTable(rows []StepRow) string {
	var buf strings.Builder

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Step", "Status", "Output", "Detail", "Duration"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, row := range rows {
		status := color.GreenString("OK")
		if row.Err != nil {
			status = color.RedString("FAILED")
		}
		table.Append([]string{row.Step, status, row.Output, row.Detail, formatDuration(row.Duration)})
	}

	table.Render()
	return buf.String()
}

func partitionOrder(partitions map[string]int64) []string {
	known := []string{warehouse.PartitionTrain, warehouse.PartitionValidate, warehouse.PartitionTest}
	var order, rest []string
	for _, label := range known {
		if _, ok := partitions[label]; ok {
			order = append(order, label)
		}
	}
	for label := range partitions {
		if label != warehouse.PartitionTrain && label != warehouse.PartitionValidate && label != warehouse.PartitionTest {
			rest = append(rest, label)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func partitionLabel(label string) string {
	switch label {
	case warehouse.PartitionTrain:
		return color.GreenString(label)
	case warehouse.PartitionValidate:
		return color.YellowString(label)
	case warehouse.PartitionTest:
		return color.CyanString(label)
	default:
		return label
	}
}
