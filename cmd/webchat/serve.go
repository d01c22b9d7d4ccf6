package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pthm/webchat"
	"github.com/pthm/webchat/htmlnode"
	"github.com/pthm/webchat/lib/encoding"
	"github.com/pthm/webchat/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>webchat</title></head>
<body>
<div id="webchat-styles"></div>
<div id="webchat-element"></div>
<script id="webchat-config" type="application/json"></script>
<div id="webchat-loader"></div>
</body>
</html>`

// bootstrapScript starts the widget once the entry script has run. The
// entry tag is injected by the script just before this one, so it exists but
// may still be loading.
const bootstrapScript = `(function () {
  var tag = document.querySelector('script[data-webchat-state]');
  var cfg = JSON.parse(document.getElementById('webchat-config').textContent);
  if (%t) { cfg.element = document.getElementById('webchat-element'); }
  function start() {
    window.loadWatsonAssistantChat(cfg).then(function (instance) { return instance.render(); });
  }
  if (tag.dataset.webchatState === 'resolved') { start(); } else { tag.addEventListener('load', start); }
})();`

type server struct {
	cfg           *webchat.Config
	hostURL       string
	customElement bool
	origins       []string

	reg     *webchat.Registry
	metrics *prometheus.Registry
	log     *zap.Logger
}

func newServer(cfg *webchat.Config, loader webchat.ScriptLoader) *server {
	promReg := prometheus.NewRegistry()
	obs := metrics.New(promReg)
	log := webchat.Logger().Named("serve")
	return &server{
		cfg:     cfg,
		origins: []string{"*"},
		reg: webchat.NewRegistry(loader,
			webchat.WithRegistryObserver(obs),
			webchat.WithRegistryLogger(log)),
		metrics: promReg,
		log:     log,
	}
}

func newServeCmd() *cobra.Command {
	var (
		file          string
		addr          string
		hostURL       string
		customElement bool
		origins       []string
	)
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve a development page that embeds the widget",
		Example: "  webchat serve -f widget.yaml\n  webchat serve -f widget.yaml --addr :9000 --custom-element",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(file)
			if err != nil {
				return err
			}
			s := newServer(cfg, newHTTPLoader(nil))
			s.hostURL = hostURL
			s.customElement = customElement
			if len(origins) > 0 {
				s.origins = origins
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return s.listen(ctx, addr)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Config file (.yaml, .yml, .json, .toml)")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().StringVar(&hostURL, "host-url", "", "Override the script host")
	cmd.Flags().BoolVar(&customElement, "custom-element", false, "Render into a page element instead of the floating container")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "Allowed CORS origins (default any)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (s *server) listen(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.routes(), ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr), zap.String("fingerprint", s.cfg.Fingerprint()))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		MaxAge:         300,
	}))

	r.Get("/", s.handlePage)
	r.Get("/c/{token}", s.handleTokenPage)
	r.Get("/config.json", s.handleConfig)
	r.Get("/share", s.handleShare)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/healthz/script", s.handleScript)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	return r
}

func (s *server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, s.cfg)
}

func (s *server) handleTokenPage(w http.ResponseWriter, r *http.Request) {
	values, err := encoding.ParseToken(chi.URLParam(r, "token"))
	if err != nil {
		http.Error(w, "invalid config token", http.StatusBadRequest)
		return
	}
	cfg := webchat.ConfigFromValues(values)
	// Where the script comes from is the server's decision, not the link's.
	cfg.CloudPrivateHostURL = s.cfg.CloudPrivateHostURL
	cfg.ClientVersion = s.cfg.ClientVersion
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.renderPage(w, r, cfg)
}

func (s *server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Values())
}

func (s *server) handleShare(w http.ResponseWriter, r *http.Request) {
	token, err := encoding.Token(s.cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": "/c/" + token})
}

func (s *server) handleScript(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	url := webchat.ScriptURL(s.cfg, s.hostURL)
	status := http.StatusOK
	body := map[string]string{"url": url}
	if err := s.reg.EnsureScript(ctx, url); err != nil {
		status = http.StatusBadGateway
		body["error"] = err.Error()
	}
	body["state"] = s.reg.State().String()
	writeJSON(w, status, body)
}

func (s *server) renderPage(w http.ResponseWriter, r *http.Request, cfg *webchat.Config) {
	doc, err := s.page(r.Context(), cfg)
	if err != nil {
		s.log.Error("rendering page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	if err := webchat.Render(w, r, doc.Component()); err != nil {
		s.log.Warn("writing page", zap.Error(err))
	}
}

// page fills pageTemplate for cfg.
func (s *server) page(ctx context.Context, cfg *webchat.Config) (*htmlnode.Document, error) {
	doc, err := htmlnode.ParseString(pageTemplate)
	if err != nil {
		return nil, err
	}
	values, err := json.Marshal(cfg.Values())
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	if err := doc.ByID("webchat-config").ReplaceChildren(ctx, raw(string(values))); err != nil {
		return nil, err
	}
	if s.customElement {
		if err := doc.ByID("webchat-styles").ReplaceChildren(ctx, webchat.CustomElementStyles()); err != nil {
			return nil, err
		}
	}
	loader := concat(
		webchat.ScriptTag(webchat.ScriptURL(cfg, s.hostURL), cfg.CSPNonce),
		inlineScript(fmt.Sprintf(bootstrapScript, s.customElement), cfg.CSPNonce),
	)
	if err := doc.ByID("webchat-loader").ReplaceChildren(ctx, loader); err != nil {
		return nil, err
	}
	return doc, nil
}

func raw(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

func inlineScript(body, nonce string) templ.Component {
	open := "<script>"
	if nonce != "" {
		open = `<script nonce="` + templ.EscapeString(nonce) + `">`
	}
	return raw(open + body + "</script>")
}

func concat(components ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, c := range components {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
