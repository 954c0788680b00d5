package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Page は1つのダッシュボードページの定義。
type Page struct {
	// URL はページのパス。メニュー項目のURLと一致する。
	URL string
	// Template はtemplates/配下のページテンプレート名。
	Template string
	// Endpoint はページのスクリプトがデータを取得するAPIのプレフィックス。
	Endpoint string
}

// Pages はダッシュボードの全ページ。
var Pages = []Page{
	{URL: PresenceWeekdayURL, Template: "presence_weekday.html", Endpoint: "/api/v1/presence_weekday/"},
	{URL: PresenceMeanTimeURL, Template: "presence_mean_time.html", Endpoint: "/api/v1/mean_time_weekday/"},
	{URL: PresenceStartEndURL, Template: "presence_start_end.html", Endpoint: "/api/v1/presence_start_end/"},
}

// pageData はテンプレートに渡すデータ。
type pageData struct {
	Title    string
	Path     string
	Menu     Menu
	Endpoint string
}

// Renderer は埋め込みテンプレートからページを描画する。
type Renderer struct {
	menu      Menu
	templates map[string]*template.Template
}

// NewRenderer は全ページのテンプレートをレイアウトと組み合わせてパースする。
func NewRenderer(menu Menu) (*Renderer, error) {
	r := &Renderer{
		menu:      menu,
		templates: make(map[string]*template.Template, len(Pages)),
	}
	for _, p := range Pages {
		tmpl, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+p.Template)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", p.Template, err)
		}
		r.templates[p.URL] = tmpl
	}
	return r, nil
}

// Render はpathに対応するページを描画する。未登録のパスはfalseを返す。
// 書き込み前にバッファへ描画し、テンプレートエラー時に中途半端なHTMLを返さない。
func (r *Renderer) Render(w http.ResponseWriter, path string) (bool, error) {
	page, ok := lookupPage(path)
	if !ok {
		return false, nil
	}
	tmpl := r.templates[page.URL]

	title := page.URL
	if entry, ok := r.menu.Lookup(page.URL); ok {
		title = entry.Name
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", pageData{
		Title:    title,
		Path:     path,
		Menu:     r.menu,
		Endpoint: page.Endpoint,
	}); err != nil {
		return true, fmt.Errorf("failed to render %s: %w", page.Template, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return true, err
}

// StaticHandler は/static/配下の埋め込みファイルを配信するハンドラーを返す。
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static assets are not embedded: %v", err))
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}

func lookupPage(path string) (Page, bool) {
	for _, p := range Pages {
		if p.URL == path {
			return p, true
		}
	}
	return Page{}, false
}
