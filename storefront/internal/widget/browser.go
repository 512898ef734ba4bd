package widget

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/affiliateplus/storefront/pkg/protocol"
)

//go:embed checkout.html
var pageFS embed.FS

var pageTmpl = template.Must(template.ParseFS(pageFS, "checkout.html"))

// Bridge message types sent by the checkout page.
const (
	msgCompleted = "completed"
	msgDismissed = "dismissed"
)

type bridgeMessage struct {
	Type    string                   `json:"type"`
	Payload protocol.PaymentResponse `json:"payload"`
}

// BundleSource provides the cached checkout script.
type BundleSource interface {
	Bundle() []byte
}

// Browser runs the provider's widget in the system browser. Each Open starts a
// loopback server that serves a checkout page and the cached SDK bundle; the
// page reports back over a WebSocket.
type Browser struct {
	addr   string
	bundle BundleSource
	logger *slog.Logger

	// Launch opens url for the user. Nil leaves opening the page to the user.
	Launch func(url string) error
	// OnURL, when set, is told the checkout page URL for each Open.
	OnURL func(url string)
}

// NewBrowser creates a browser widget listening on addr (e.g. "127.0.0.1:0").
// When launch is true the system browser is opened automatically.
func NewBrowser(addr string, bundle BundleSource, launch bool, logger *slog.Logger) *Browser {
	b := &Browser{
		addr:   addr,
		bundle: bundle,
		logger: logger.With("component", "browser-widget"),
	}
	if launch {
		b.Launch = openBrowser
	}
	return b
}

// Open serves a checkout page for opts and waits for the user to finish.
func (b *Browser) Open(ctx context.Context, opts protocol.CheckoutOptions) (<-chan protocol.PaymentResponse, error) {
	if err := validate(opts); err != nil {
		return nil, err
	}
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("encode checkout options: %w", err)
	}

	ln, err := net.Listen("tcp", b.addr)
	if err != nil {
		return nil, fmt.Errorf("widget listen: %w", err)
	}

	c := &checkoutPage{
		token:    uuid.New().String(),
		options:  template.JS(optsJSON),
		bundle:   b.bundle,
		logger:   b.logger,
		finished: make(chan *protocol.PaymentResponse, 1),
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
	}
	srv := &http.Server{
		Handler:           c.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Warn("widget server error", "error", err)
		}
	}()

	pageURL := fmt.Sprintf("http://%s/checkout/%s", ln.Addr().String(), c.token)
	b.logger.Info("checkout page ready", "url", pageURL)
	if b.OnURL != nil {
		b.OnURL(pageURL)
	}
	if b.Launch != nil {
		if err := b.Launch(pageURL); err != nil {
			b.logger.Warn("could not open browser, open the checkout page manually", "url", pageURL, "error", err)
		}
	}

	out := make(chan protocol.PaymentResponse, 1)
	go func() {
		defer close(out)
		var resp *protocol.PaymentResponse
		select {
		case resp = <-c.finished:
		case <-ctx.Done():
			b.logger.Debug("checkout abandoned", "reason", ctx.Err())
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)

		if resp != nil {
			out <- *resp
		}
	}()
	return out, nil
}

// checkoutPage serves one checkout session.
type checkoutPage struct {
	token    string
	options  template.JS
	bundle   BundleSource
	logger   *slog.Logger
	upgrader websocket.Upgrader

	once     sync.Once
	finished chan *protocol.PaymentResponse
}

func (c *checkoutPage) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/checkout/{token}", c.handlePage)
	r.Get("/checkout.js", c.handleScript)
	r.Get("/ws/{token}", c.handleSocket)
	return r
}

// finish records how the user left the widget. Only the first call counts.
func (c *checkoutPage) finish(resp *protocol.PaymentResponse) {
	c.once.Do(func() {
		c.finished <- resp
	})
}

func (c *checkoutPage) handlePage(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "token") != c.token {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	data := struct {
		Options    template.JS
		SocketPath string
	}{c.options, "/ws/" + c.token}
	if err := pageTmpl.Execute(w, data); err != nil {
		c.logger.Warn("render checkout page", "error", err)
	}
}

func (c *checkoutPage) handleScript(w http.ResponseWriter, r *http.Request) {
	bundle := c.bundle.Bundle()
	if len(bundle) == 0 {
		http.Error(w, "checkout script not loaded", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/javascript")
	_, _ = w.Write(bundle)
}

func (c *checkoutPage) handleSocket(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "token") != c.token {
		http.NotFound(w, r)
		return
	}
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.Warn("widget websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(64 << 10)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// The tab went away without reporting a payment.
			c.logger.Debug("widget socket closed", "error", err)
			c.finish(nil)
			return
		}

		var msg bridgeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("invalid widget message", "error", err)
			continue
		}
		switch msg.Type {
		case msgCompleted:
			c.logger.Info("payment completed in widget", "payment_id", msg.Payload.RazorpayPaymentID)
			resp := msg.Payload
			c.finish(&resp)
			return
		case msgDismissed:
			c.logger.Info("widget dismissed")
			c.finish(nil)
			return
		default:
			c.logger.Debug("ignoring widget message", "type", msg.Type)
		}
	}
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
