package model

import (
	"fmt"
	"time"
)

// Date は時刻を持たない暦日を表す。マップのキーとして比較可能。
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate はtime.Timeから暦日部分を取り出す。
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time はUTCの0時を指すtime.Timeを返す。
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Weekday は月曜=0〜日曜=6の曜日インデックスを返す（先発グレゴリオ暦）。
func (d Date) Weekday() int {
	return (int(d.Time().Weekday()) + 6) % 7
}

// String はYYYY-MM-DD形式の文字列を返す。
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// TimeOfDay は0時からの経過秒数で表した時刻。
type TimeOfDay int

// NewTimeOfDay は時・分・秒からTimeOfDayを生成する。
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// Seconds は0時からの経過秒数を返す。
func (t TimeOfDay) Seconds() int {
	return int(t)
}

// String はHH:MM:SS形式の文字列を返す。
func (t TimeOfDay) String() string {
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s%3600/60, s%60)
}

// Presence は1日分の出社・退社時刻。
type Presence struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Interval は在席時間（秒）を返す。
// 退社時刻が出社時刻より前の場合は負の値になる（補正しない）。
func (p Presence) Interval() int {
	return p.End.Seconds() - p.Start.Seconds()
}

// PresenceRecord はCSVの1行分の在席レコード。
type PresenceRecord struct {
	UserID int
	Date   Date
	Start  TimeOfDay
	End    TimeOfDay
}

// UserPresence は1人分の日付ごとの在席データ。
type UserPresence map[Date]Presence

// TimeSeries はユーザーIDごとの在席データ。
// パース後はイミュータブルなスナップショットとして扱う。
type TimeSeries map[int]UserPresence

// Add はレコードを追加する。同じユーザー・日付のレコードは後勝ちで上書きされる。
func (ts TimeSeries) Add(rec PresenceRecord) {
	days, ok := ts[rec.UserID]
	if !ok {
		days = make(UserPresence)
		ts[rec.UserID] = days
	}
	days[rec.Date] = Presence{Start: rec.Start, End: rec.End}
}
