package webchat

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"
)

// Render writes a templ component to the HTTP response.
//
// Sets Content-Type to text/html and renders the component using the
// request's context. Host pages that embed the widget script server-side
// use it together with ScriptTag:
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    webchat.Render(w, r, page(webchat.ScriptTag(url, nonce)))
//	}
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// ScriptTag renders a <script> element that injects the widget entry script.
//
// Emitting the tag server-side is an alternative to letting a Registry inject
// it. The injected tag carries the same marker attribute the browser loader
// polls, so a Registry on the page adopts it instead of injecting a second
// copy. The marker is advanced by listeners the inline script adds, not by
// event handler attributes, so a nonce-only Content-Security-Policy allows it.
func ScriptTag(url, nonce string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		src, err := json.Marshal(url)
		if err != nil {
			return err
		}
		var sb strings.Builder
		sb.WriteString(`<script`)
		if nonce != "" {
			sb.WriteString(` nonce="`)
			sb.WriteString(html.EscapeString(nonce))
			sb.WriteString(`"`)
		}
		sb.WriteString(`>(function () {
  var s = document.createElement('script');
  function mark(state) { s.setAttribute('data-webchat-state', state); }
  s.setAttribute('src', `)
		sb.Write(src)
		sb.WriteString(`);
  mark('loading');
`)
		if nonce != "" {
			n, err := json.Marshal(nonce)
			if err != nil {
				return err
			}
			sb.WriteString(`  s.setAttribute('nonce', `)
			sb.Write(n)
			sb.WriteString(");\n")
		}
		sb.WriteString(`  s.addEventListener('load', function () { mark('resolved'); });
  s.addEventListener('error', function () { mark('rejected'); });
  document.currentScript.after(s);
})();</script>`)
		_, err = io.WriteString(w, sb.String())
		return err
	})
}

// removeTrailingSlash drops a single trailing "/".
func removeTrailingSlash(s string) string {
	return strings.TrimSuffix(s, "/")
}
