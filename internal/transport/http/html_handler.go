package http

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/config"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/services"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="nl">
<head>
    <meta charset="utf-8">
    <title>{{.AppName}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .dashboard { padding: 10px; margin: 10px 0; border-radius: 4px; background-color: #d1ecf1; }
        code { background-color: #f4f4f4; padding: 1px 4px; }
    </style>
</head>
<body>
    <h1>{{.AppName}}</h1>
    <p>Versie {{.Version}}, gestart {{.Now}}</p>
    {{range .Dashboards}}
    <div class="dashboard">
        <h2>{{.Title}}</h2>
        <p>Verplichte kolommen:
        {{range .Schema.Fields}}{{if .Required}}<code>{{.Name}}</code> {{end}}{{end}}</p>
        <form method="post" enctype="multipart/form-data" action="/api/dashboards/{{.Name}}/datasets">
            <input type="file" name="files" accept=".csv,.xlsx" multiple>
            <button type="submit">Uploaden</button>
        </form>
        {{if .HasDefault}}<p><a href="/api/dashboards/{{.Name}}/datasets/default/view">Rapportagecijfers bekijken</a></p>{{end}}
    </div>
    {{end}}
    <h2>Status</h2>
    <ul>
        <li><a href="/api/health">Health</a></li>
        <li><a href="/api/version">Versie</a></li>
        <li><a href="/metrics">Metrics</a></li>
    </ul>
</body>
</html>
`))

type indexPage struct {
	AppName    string
	Version    string
	Now        string
	Dashboards []services.DashboardInfo
}

// ServeIndex serves a landing page with an upload form per dashboard
func ServeIndex(service DatasetServiceInterface, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := indexPage{
			AppName:    config.AppName,
			Version:    config.Version,
			Now:        time.Now().Format("2006-01-02 15:04:05"),
			Dashboards: service.Dashboards(),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if err := indexTemplate.Execute(w, page); err != nil {
			logger.ErrorContext(r.Context(), "Error rendering index page", slog.String("error", err.Error()))
		}
	}
}
