// Package presence は在席データの読み込みと曜日別の集計を提供する。
package presence

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/hitoshi/presence-analyzer/internal/model"
)

const (
	// 月と日は1桁でも受け付ける（"2013-9-10"）。
	dateLayout = "2006-1-2"
	timeLayout = "15:04:05"

	// fieldsPerRow はデータ行のフィールド数。これ以外の行はヘッダー・フッターとみなす。
	fieldsPerRow = 4
)

// SkipReason は行が採用されなかった理由。空文字列は採用を表す。
type SkipReason string

const (
	SkipFieldCount    SkipReason = "field_count"
	SkipMalformed     SkipReason = "malformed"
	SkipInvalidUserID SkipReason = "invalid_user_id"
	SkipInvalidDate   SkipReason = "invalid_date"
	SkipInvalidStart  SkipReason = "invalid_start"
	SkipInvalidEnd    SkipReason = "invalid_end"
)

// RowOutcome は1行分のパース結果。
// Reasonが空の場合のみRecordが有効。
type RowOutcome struct {
	Line   int
	Record model.PresenceRecord
	Reason SkipReason
}

// OK は行が採用された場合にtrueを返す。
func (o RowOutcome) OK() bool {
	return o.Reason == ""
}

// Report はパースした全行の結果をまとめたもの。
type Report struct {
	Outcomes []RowOutcome
}

// Accepted は採用された行数を返す。
func (r *Report) Accepted() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Skipped はスキップされた行数を返す。
func (r *Report) Skipped() int {
	return len(r.Outcomes) - r.Accepted()
}

// SkippedBy は指定した理由でスキップされた行数を返す。
func (r *Report) SkippedBy(reason SkipReason) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Reason == reason {
			n++
		}
	}
	return n
}

// Parse はCSVを読み込み、ユーザー・日付ごとの在席データを返す。
//
// 不正な行はログに記録してスキップし、パース全体は失敗させない。
// エラーを返すのは読み込み元のI/Oエラーの場合のみ。
func Parse(r io.Reader, logger *slog.Logger) (model.TimeSeries, *Report, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	data := make(model.TimeSeries)
	report := &Report{}
	line := 0

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			line = parseErr.StartLine
			logger.Debug("problem with line",
				slog.Int("line", line),
				slog.String("reason", string(SkipMalformed)),
				slog.String("error", err.Error()),
			)
			report.Outcomes = append(report.Outcomes, RowOutcome{Line: line, Reason: SkipMalformed})
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read presence data: %w", err)
		}

		line, _ = reader.FieldPos(0)

		outcome := parseRow(row)
		outcome.Line = line
		report.Outcomes = append(report.Outcomes, outcome)

		if !outcome.OK() {
			if outcome.Reason != SkipFieldCount {
				logger.Debug("problem with line",
					slog.Int("line", line),
					slog.String("reason", string(outcome.Reason)),
				)
			}
			continue
		}

		data.Add(outcome.Record)
	}

	return data, report, nil
}

// ParseFile はpathのCSVファイルを読み込む。
// ファイルが存在しない・読めない場合はエラーを返す。
func ParseFile(path string, logger *slog.Logger) (model.TimeSeries, *Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open presence data: %w", err)
	}
	defer f.Close()

	return Parse(f, logger)
}

// parseRow は1行分のフィールドをレコードに変換する。
func parseRow(row []string) RowOutcome {
	if len(row) != fieldsPerRow {
		return RowOutcome{Reason: SkipFieldCount}
	}

	userID, err := strconv.Atoi(row[0])
	if err != nil || userID <= 0 {
		return RowOutcome{Reason: SkipInvalidUserID}
	}

	date, err := time.Parse(dateLayout, row[1])
	if err != nil {
		return RowOutcome{Reason: SkipInvalidDate}
	}

	start, err := parseTimeOfDay(row[2])
	if err != nil {
		return RowOutcome{Reason: SkipInvalidStart}
	}

	end, err := parseTimeOfDay(row[3])
	if err != nil {
		return RowOutcome{Reason: SkipInvalidEnd}
	}

	return RowOutcome{
		Record: model.PresenceRecord{
			UserID: userID,
			Date:   model.NewDate(date),
			Start:  start,
			End:    end,
		},
	}
}

// parseTimeOfDay はHH:MM:SS形式の時刻をパースする。
func parseTimeOfDay(s string) (model.TimeOfDay, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return 0, err
	}
	return model.NewTimeOfDay(t.Hour(), t.Minute(), t.Second()), nil
}
