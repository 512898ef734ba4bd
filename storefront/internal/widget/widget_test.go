package widget

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/affiliateplus/storefront/pkg/protocol"
)

type staticBundle []byte

func (b staticBundle) Bundle() []byte { return b }

// browserUser plays the person in front of the browser: it loads the checkout
// page and then runs act against the page's socket.
func browserUser(t *testing.T, act func(conn *websocket.Conn)) func(string) error {
	t.Helper()
	return func(pageURL string) error {
		go func() {
			resp, err := http.Get(pageURL)
			if err != nil {
				t.Errorf("get page: %v", err)
				return
			}
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if !strings.Contains(string(body), `"order_id":"o1"`) {
				t.Errorf("page does not embed options: %s", body)
			}

			wsURL := "ws" + strings.TrimPrefix(strings.Replace(pageURL, "/checkout/", "/ws/", 1), "http")
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			if err != nil {
				t.Errorf("dial: %v", err)
				return
			}
			defer conn.Close()
			act(conn)
		}()
		return nil
	}
}

func newTestBrowser(launch func(string) error) *Browser {
	b := NewBrowser("127.0.0.1:0", staticBundle("window.Razorpay=function(){};"), false, slog.Default())
	b.Launch = launch
	return b
}

func orderOptions() protocol.CheckoutOptions {
	return protocol.CheckoutOptions{Key: "rzp_test", Amount: 10000, Currency: "INR", OrderID: "o1", Name: "Affiliate++"}
}

func receive(t *testing.T, ch <-chan protocol.PaymentResponse) (protocol.PaymentResponse, bool) {
	t.Helper()
	select {
	case resp, ok := <-ch:
		return resp, ok
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for widget")
		return protocol.PaymentResponse{}, false
	}
}

func TestBrowser_Completed(t *testing.T) {
	b := newTestBrowser(browserUser(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(bridgeMessage{Type: msgCompleted, Payload: protocol.PaymentResponse{
			RazorpayOrderID:   "o1",
			RazorpayPaymentID: "pay_1",
			RazorpaySignature: "sig",
		}})
	}))

	ch, err := b.Open(context.Background(), orderOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	resp, ok := receive(t, ch)
	if !ok {
		t.Fatal("expected a payment response")
	}
	if resp.RazorpayPaymentID != "pay_1" || resp.RazorpaySignature != "sig" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if _, ok := receive(t, ch); ok {
		t.Error("channel must close after one value")
	}
}

func TestBrowser_Dismissed(t *testing.T) {
	b := newTestBrowser(browserUser(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(bridgeMessage{Type: msgDismissed})
	}))

	ch, err := b.Open(context.Background(), orderOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := receive(t, ch); ok {
		t.Error("dismissal must close the channel without a value")
	}
}

func TestBrowser_SocketClosedIsDismissal(t *testing.T) {
	b := newTestBrowser(browserUser(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(map[string]string{"type": "heartbeat"})
	}))

	ch, err := b.Open(context.Background(), orderOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := receive(t, ch); ok {
		t.Error("closed socket must count as a dismissal")
	}
}

func TestBrowser_ContextCancel(t *testing.T) {
	var pageURL string
	b := newTestBrowser(nil)
	b.OnURL = func(u string) { pageURL = u }

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Open(ctx, orderOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if pageURL == "" {
		t.Fatal("expected OnURL to receive the page URL")
	}
	cancel()
	if _, ok := receive(t, ch); ok {
		t.Error("cancelled checkout must close without a value")
	}
}

func TestBrowser_ServesBundleAndRejectsUnknownToken(t *testing.T) {
	var pageURL string
	b := newTestBrowser(nil)
	b.OnURL = func(u string) { pageURL = u }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, err := b.Open(ctx, orderOptions()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	base := pageURL[:strings.Index(pageURL, "/checkout/")]

	resp, err := http.Get(base + "/checkout.js")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "window.Razorpay=function(){};" {
		t.Errorf("unexpected bundle: %q", body)
	}

	resp, err = http.Get(base + "/checkout/not-the-token")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestOpen_RequiresTarget(t *testing.T) {
	b := newTestBrowser(nil)
	if _, err := b.Open(context.Background(), protocol.CheckoutOptions{Key: "k"}); !errors.Is(err, ErrNoTarget) {
		t.Errorf("browser: expected ErrNoTarget, got %v", err)
	}
	s := NewSandbox(nil, false, slog.Default())
	if _, err := s.Open(context.Background(), protocol.CheckoutOptions{}); !errors.Is(err, ErrNoTarget) {
		t.Errorf("sandbox: expected ErrNoTarget, got %v", err)
	}
}

type fakePayer struct {
	got  protocol.SandboxPayRequest
	resp protocol.PaymentResponse
	err  error
}

func (f *fakePayer) SandboxPay(_ context.Context, req protocol.SandboxPayRequest) (protocol.PaymentResponse, error) {
	f.got = req
	return f.resp, f.err
}

func TestSandbox_Completes(t *testing.T) {
	p := &fakePayer{resp: protocol.PaymentResponse{RazorpaySubscriptionID: "sub_1", RazorpayPaymentID: "pay_9"}}
	s := NewSandbox(p, false, slog.Default())

	ch, err := s.Open(context.Background(), protocol.CheckoutOptions{SubscriptionID: "sub_1"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	resp, ok := receive(t, ch)
	if !ok || resp.RazorpaySubscriptionID != "sub_1" {
		t.Errorf("unexpected result %+v ok=%v", resp, ok)
	}
	if p.got.SubscriptionID != "sub_1" {
		t.Errorf("payer got %+v", p.got)
	}
}

func TestSandbox_DismissAndFailure(t *testing.T) {
	for name, s := range map[string]*Sandbox{
		"dismiss": NewSandbox(&fakePayer{}, true, slog.Default()),
		"failure": NewSandbox(&fakePayer{err: errors.New("declined")}, false, slog.Default()),
	} {
		t.Run(name, func(t *testing.T) {
			ch, err := s.Open(context.Background(), orderOptions())
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if _, ok := receive(t, ch); ok {
				t.Error("expected the channel to close without a value")
			}
		})
	}
}
