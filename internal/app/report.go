package app

import (
	"context"
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/hitoshi/presence-analyzer/internal/model"
	"github.com/hitoshi/presence-analyzer/internal/presence"
)

// writeReport は1ユーザーの3種類の統計を表形式で出力する。
func writeReport(ctx context.Context, out io.Writer, comps *components, userID int) error {
	mean, err := comps.presence.MeanTimeWeekday(ctx, userID)
	if err != nil {
		return fmt.Errorf("user %d: %w", userID, err)
	}
	total, err := comps.presence.PresenceWeekday(ctx, userID)
	if err != nil {
		return fmt.Errorf("user %d: %w", userID, err)
	}
	startEnd, err := comps.presence.PresenceStartEnd(ctx, userID)
	if err != nil {
		return fmt.Errorf("user %d: %w", userID, err)
	}

	heading := color.New(color.FgCyan, color.Bold).SprintFunc()

	fmt.Fprintf(out, "%s\n\n", heading(reportTitle(ctx, comps, userID)))

	fmt.Fprintln(out, heading("Mean presence time by weekday"))
	writeRows(out, mean)

	fmt.Fprintln(out, heading("Total presence time by weekday"))
	// 先頭行は列見出し
	writeRows(out, total[1:])

	fmt.Fprintln(out, heading("Mean start and end by weekday"))
	if len(startEnd) == 0 {
		fmt.Fprintln(out, "  (no records)")
	}
	writeRows(out, startEnd)

	return nil
}

// reportTitle はレジストリから名前を引く。見つからない場合はIDのみを使う。
func reportTitle(ctx context.Context, comps *components, userID int) string {
	byID, err := comps.registry.ByID(ctx)
	if err == nil {
		if u, ok := byID[userID]; ok && u.Name != "" {
			return fmt.Sprintf("User %d: %s", userID, u.Name)
		}
	}
	return fmt.Sprintf("User %d", userID)
}

func writeRows(out io.Writer, rows []presence.Row) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		fmt.Fprintf(tw, "  %v", row[0])
		for _, v := range row[1:] {
			fmt.Fprintf(tw, "\t%s", formatSeconds(v))
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
	fmt.Fprintln(out)
}

// formatSeconds は秒数をHH:MM:SSで表す。負の値には符号を付ける。
// 24時間を超える合計もそのまま時間に積む。
func formatSeconds(v any) string {
	var secs int
	switch n := v.(type) {
	case int:
		secs = n
	case float64:
		secs = int(math.Round(n))
	default:
		return fmt.Sprint(v)
	}
	if secs < 0 {
		return "-" + model.TimeOfDay(-secs).String()
	}
	return model.TimeOfDay(secs).String()
}
