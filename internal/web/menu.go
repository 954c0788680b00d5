// Package web はダッシュボードのHTMLページ、メインメニュー、静的ファイルを提供する。
package web

// Entry はメインメニューの1項目。
type Entry struct {
	Name string
	URL  string
}

// IsActive はリクエストパスがこの項目のURLと一致する場合にtrueを返す。
func (e Entry) IsActive(path string) bool {
	return path == e.URL
}

// Menu は表示順に並んだメニュー項目。
type Menu []Entry

// Add は項目を末尾に追加したMenuを返す。
func (m Menu) Add(name, url string) Menu {
	return append(m, Entry{Name: name, URL: url})
}

// Lookup はURLに一致する項目を返す。
func (m Menu) Lookup(url string) (Entry, bool) {
	for _, e := range m {
		if e.URL == url {
			return e, true
		}
	}
	return Entry{}, false
}

// ダッシュボードのページURL。
const (
	PresenceWeekdayURL  = "/presence-weekday"
	PresenceMeanTimeURL = "/presence-mean-time"
	PresenceStartEndURL = "/presence-start-end"
)

// MainMenu はダッシュボードのメインメニューを返す。
func MainMenu() Menu {
	return Menu{}.
		Add("Presence by weekday", PresenceWeekdayURL).
		Add("Presence mean time", PresenceMeanTimeURL).
		Add("Presence start-end", PresenceStartEndURL)
}
