package presence

import "github.com/hitoshi/presence-analyzer/internal/model"

// DaysInWeek は1週間の曜日数。
const DaysInWeek = 7

// Bucket は1曜日分の在席データ（すべて秒）。
// 同一曜日内の並び順は保証しない。
type Bucket struct {
	Intervals []int
	Starts    []int
	Ends      []int
}

// Len はバケットに含まれる日数を返す。
func (b Bucket) Len() int {
	return len(b.Intervals)
}

// WeekdayBuckets は月曜=0〜日曜=6の曜日別バケット。
type WeekdayBuckets [DaysInWeek]Bucket

// GroupByWeekday は1人分の在席データを曜日別に振り分ける。
func GroupByWeekday(days model.UserPresence) WeekdayBuckets {
	var buckets WeekdayBuckets
	for date, p := range days {
		b := &buckets[date.Weekday()]
		b.Intervals = append(b.Intervals, p.Interval())
		b.Starts = append(b.Starts, p.Start.Seconds())
		b.Ends = append(b.Ends, p.End.Seconds())
	}
	return buckets
}
