package presence

import (
	"time"

	"github.com/montanaflynn/stats"

	"github.com/hitoshi/presence-analyzer/internal/model"
)

// startEndDays は出社・退社時刻の平均を算出する曜日数（月〜金）。
const startEndDays = 5

// Row は曜日別集計結果の1行。JSONでは配列としてエンコードされる。
type Row []any

// weekdayAbbr は月曜始まりの曜日略称。
var weekdayAbbr = [DaysInWeek]string{
	time.Monday.String()[:3],
	time.Tuesday.String()[:3],
	time.Wednesday.String()[:3],
	time.Thursday.String()[:3],
	time.Friday.String()[:3],
	time.Saturday.String()[:3],
	time.Sunday.String()[:3],
}

// WeekdayAbbr は曜日インデックス（月曜=0）の略称を返す。
func WeekdayAbbr(weekday int) string {
	return weekdayAbbr[weekday]
}

// Mean は算術平均を返す。空の場合は0を返す。
func Mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	data := make(stats.Float64Data, len(values))
	for i, v := range values {
		data[i] = float64(v)
	}
	m, err := stats.Mean(data)
	if err != nil {
		return 0
	}
	return m
}

// Sum は合計を返す。空の場合は0を返す。
func Sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

// MeanTimeByWeekday は曜日ごとの平均在席時間（秒）を返す。
// 常に月曜始まりの7行。
func MeanTimeByWeekday(days model.UserPresence) []Row {
	buckets := GroupByWeekday(days)
	rows := make([]Row, 0, DaysInWeek)
	for weekday, b := range buckets {
		rows = append(rows, Row{WeekdayAbbr(weekday), Mean(b.Intervals)})
	}
	return rows
}

// PresenceByWeekday は曜日ごとの合計在席時間（秒）を返す。
// 先頭のヘッダー行と月曜始まりの7行で、常に8行。
func PresenceByWeekday(days model.UserPresence) []Row {
	buckets := GroupByWeekday(days)
	rows := make([]Row, 0, DaysInWeek+1)
	rows = append(rows, Row{"Weekday", "Presence (s)"})
	for weekday, b := range buckets {
		rows = append(rows, Row{WeekdayAbbr(weekday), Sum(b.Intervals)})
	}
	return rows
}

// StartEndByWeekday は曜日ごとの平均出社・退社時刻（0時からの秒数）を返す。
// 対象は月〜金のみで、レコードのない曜日は出力しない。
// 平均は整数の切り捨て除算。
func StartEndByWeekday(days model.UserPresence) []Row {
	buckets := GroupByWeekday(days)
	rows := make([]Row, 0, startEndDays)
	for weekday := 0; weekday < startEndDays; weekday++ {
		b := buckets[weekday]
		if b.Len() == 0 {
			continue
		}
		rows = append(rows, Row{
			WeekdayAbbr(weekday),
			Sum(b.Starts) / b.Len(),
			Sum(b.Ends) / b.Len(),
		})
	}
	return rows
}
