// Package webchatecho serves widget host pages from Echo.
//
// Mount adds a per-request CSP nonce and exposes the widget config as JSON:
//
//	e := echo.New()
//	webchatecho.Mount(e, cfg)
//
//	e.GET("/", func(c echo.Context) error {
//	    return webchatecho.Render(c, page(webchatecho.ScriptTag(c, cfg)))
//	})
package webchatecho

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/webchat"
)

const nonceKey = "webchat.nonce"

// Option configures Mount and MountGroup.
type Option func(*options)

type options struct {
	path    string
	hostURL string
}

// WithPath sets the route the config is served on. Defaults to
// "/webchat/config.json".
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithHostURL overrides where the widget script is fetched from. It feeds
// both the script URL and the CSP script-src.
func WithHostURL(url string) Option {
	return func(o *options) {
		o.hostURL = url
	}
}

// Mount installs the nonce middleware on e and serves cfg.
func Mount(e *echo.Echo, cfg *webchat.Config, opts ...Option) {
	o := newOptions(opts)
	e.Use(Nonce(cfg, o.hostURL))
	e.GET(o.path, configHandler(cfg, o.hostURL))
}

// MountGroup is Mount for a group, so the widget routes share its
// middleware.
func MountGroup(g *echo.Group, cfg *webchat.Config, opts ...Option) {
	o := newOptions(opts)
	g.Use(Nonce(cfg, o.hostURL))
	g.GET(o.path, configHandler(cfg, o.hostURL))
}

func newOptions(opts []Option) *options {
	o := &options{path: "/webchat/config.json"}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Nonce generates a CSP nonce per request and sets a Content-Security-Policy
// header allowing scripts carrying it plus the widget's script origin.
func Nonce(cfg *webchat.Config, hostURL string) echo.MiddlewareFunc {
	origin := scriptOrigin(webchat.ScriptURL(cfg, hostURL))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			nonce, err := newNonce()
			if err != nil {
				return fmt.Errorf("webchatecho: generate nonce: %w", err)
			}
			c.Set(nonceKey, nonce)
			c.Response().Header().Set(echo.HeaderContentSecurityPolicy, contentSecurityPolicy(nonce, origin))
			return next(c)
		}
	}
}

// NonceFrom returns the nonce Nonce stored on c, or "".
func NonceFrom(c echo.Context) string {
	s, _ := c.Get(nonceKey).(string)
	return s
}

// ScriptTag renders the widget script tag for cfg with the request's nonce.
// A nonce already set on cfg wins.
func ScriptTag(c echo.Context, cfg *webchat.Config, opts ...Option) templ.Component {
	o := newOptions(opts)
	nonce := cfg.CSPNonce
	if nonce == "" {
		nonce = NonceFrom(c)
	}
	return webchat.ScriptTag(webchat.ScriptURL(cfg, o.hostURL), nonce)
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return webchatecho.Render(c, myTemplate())
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	return component.Render(c.Request().Context(), c.Response())
}

// configHandler serves cfg's widget values with the request nonce applied,
// for pages that create the widget client-side.
func configHandler(cfg *webchat.Config, hostURL string) echo.HandlerFunc {
	url := webchat.ScriptURL(cfg, hostURL)
	return func(c echo.Context) error {
		values := cfg.Values()
		if _, ok := values["cspNonce"]; !ok {
			if nonce := NonceFrom(c); nonce != "" {
				values["cspNonce"] = nonce
			}
		}
		return c.JSON(http.StatusOK, map[string]any{
			"scriptURL":   url,
			"config":      values,
			"fingerprint": cfg.Fingerprint(),
		})
	}
}

func newNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// scriptOrigin trims raw to scheme://host, or "" if raw has neither.
func scriptOrigin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func contentSecurityPolicy(nonce, origin string) string {
	if origin == "" {
		return fmt.Sprintf("script-src 'nonce-%s'", nonce)
	}
	return fmt.Sprintf("script-src 'nonce-%s' %s", nonce, origin)
}
