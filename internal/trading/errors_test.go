package trading

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesKindAndRoot(t *testing.T) {
	cases := []struct {
		kind     Kind
		sentinel error
	}{
		{KindValidation, ErrValidation},
		{KindConnection, ErrConnection},
		{KindOrder, ErrOrder},
	}

	for _, tc := range cases {
		err := fmt.Errorf("wrapped: %w", NewError(tc.kind, "op", "boom", nil))
		if !errors.Is(err, tc.sentinel) {
			t.Errorf("kind %s: expected errors.Is sentinel", tc.kind)
		}
		if !errors.Is(err, ErrTrading) {
			t.Errorf("kind %s: expected errors.Is ErrTrading", tc.kind)
		}
		kind, ok := KindOf(err)
		if !ok || kind != tc.kind {
			t.Errorf("KindOf mismatch: got %v,%v want %v", kind, ok, tc.kind)
		}
	}
}

func TestErrorDoesNotMatchOtherKinds(t *testing.T) {
	err := NewError(KindValidation, "validate", "bad price", nil)
	if errors.Is(err, ErrConnection) || errors.Is(err, ErrOrder) {
		t.Fatalf("validation error must not match other kinds")
	}
	if !IsValidation(err) || IsConnection(err) {
		t.Fatalf("helper predicates mismatch")
	}
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := &APIError{StatusCode: 400, Message: "invalid order"}
	err := NewError(KindOrder, "post_order", "", cause)

	apiErr, ok := AsAPIError(err)
	if !ok || apiErr.StatusCode != 400 {
		t.Fatalf("expected api error in chain, got %v", err)
	}
	if err.Error() != "order error [post_order]: "+cause.Error() {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestSentinelsShareRoot(t *testing.T) {
	for _, s := range []error{ErrValidation, ErrConnection, ErrOrder} {
		if !errors.Is(s, ErrTrading) {
			t.Errorf("%v should wrap ErrTrading", s)
		}
	}
}

func TestParseSide(t *testing.T) {
	side, err := ParseSide(" buy ")
	if err != nil || side != SideBuy {
		t.Fatalf("expected BUY, got %v %v", side, err)
	}
	side, err = ParseSide("SELL")
	if err != nil || side != SideSell {
		t.Fatalf("expected SELL, got %v %v", side, err)
	}
	if _, err := ParseSide("hold"); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
