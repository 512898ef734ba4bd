package signature

import "testing"

func TestOrder_Deterministic(t *testing.T) {
	got := Order("secret", "order_1", "pay_1")
	if len(got) != 64 {
		t.Fatalf("expected a 64 char hex digest, got %q", got)
	}
	if got != Order("secret", "order_1", "pay_1") {
		t.Error("signature is not deterministic")
	}
	if got == Order("other", "order_1", "pay_1") {
		t.Error("signature must depend on the secret")
	}
}

func TestVerifyOrder(t *testing.T) {
	sig := Order("secret", "order_1", "pay_1")
	tampered := sig[:63] + "x"
	if !VerifyOrder("secret", "order_1", "pay_1", sig) {
		t.Error("expected valid signature")
	}
	cases := []struct {
		name                string
		order, payment, sig string
	}{
		{"wrong order", "order_2", "pay_1", sig},
		{"wrong payment", "order_1", "pay_2", sig},
		{"tampered", "order_1", "pay_1", tampered},
		{"empty", "order_1", "pay_1", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if VerifyOrder("secret", tc.order, tc.payment, tc.sig) {
				t.Error("expected invalid signature")
			}
		})
	}
}

func TestSubscription_OrderOfIDs(t *testing.T) {
	sig := Subscription("secret", "pay_1", "sub_1")
	if !VerifySubscription("secret", "pay_1", "sub_1", sig) {
		t.Error("expected valid signature")
	}
	// The subscription payload puts the payment id first.
	if sig != Order("secret", "pay_1", "sub_1") {
		t.Error("expected payment_id|subscription_id payload")
	}
	if VerifySubscription("secret", "sub_1", "pay_1", sig) {
		t.Error("swapped ids must not verify")
	}
}
