package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
)

const pageStyle = `body{font-family:sans-serif;max-width:32rem;margin:3rem auto}
label{display:block;margin:1rem 0 .25rem}
.error{color:#b00020}.success{color:#1b5e20}`

// indexPage renders the upload form. status is shown above the form with
// class "error" when non-empty.
func indexPage(couriers []CourierInfo, status string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<title>Courier Billing</title><style>`)
		b.WriteString(pageStyle)
		b.WriteString(`</style></head><body><h1>Courier Billing</h1>`)

		b.WriteString(`<form method="post" action="/upload" enctype="multipart/form-data">`)
		b.WriteString(`<label for="courierSelect">Courier</label><select id="courierSelect" name="courier">`)
		for _, c := range couriers {
			b.WriteString(`<option value="`)
			b.WriteString(templ.EscapeString(c.Key))
			b.WriteString(`">`)
			b.WriteString(templ.EscapeString(c.Label))
			b.WriteString(`</option>`)
		}
		b.WriteString(`</select>`)
		b.WriteString(`<label for="fileInput">Shipment workbook (.xlsx)</label>`)
		b.WriteString(`<input id="fileInput" type="file" name="file" accept=".xlsx" required>`)
		b.WriteString(`<p><button type="submit">Upload and download</button></p></form>`)

		b.WriteString(`<p id="status"`)
		if status != "" {
			b.WriteString(` class="error"`)
		}
		b.WriteString(`>`)
		b.WriteString(templ.EscapeString(status))
		b.WriteString(`</p></body></html>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// renderIndex writes the upload page with the given status code.
func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, code int, status string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := indexPage(courierInfos(), status).Render(r.Context(), w); err != nil {
		slog.Error("render index", "error", err)
	}
}
