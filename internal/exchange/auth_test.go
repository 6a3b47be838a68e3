package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"polymarket-execution/internal/trading"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestSignClobAuth_RecoversSigner(t *testing.T) {
	key, err := crypto.HexToECDSA(testKeyHex)
	if err != nil {
		t.Fatalf("HexToECDSA: %v", err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey)

	sigHex, err := signClobAuth(key, 137, 1700000000, 0)
	if err != nil {
		t.Fatalf("signClobAuth: %v", err)
	}
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("expected 65-byte signature, got %d", len(sig))
	}
	if sig[64] != 27 && sig[64] != 28 {
		t.Fatalf("expected v in {27,28}, got %d", sig[64])
	}

	hash, _, err := apitypes.TypedDataAndHash(clobAuthTypedData(137, address, 1700000000, 0))
	if err != nil {
		t.Fatalf("TypedDataAndHash: %v", err)
	}
	sig[64] -= 27
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		t.Fatalf("SigToPub: %v", err)
	}
	if crypto.PubkeyToAddress(*pub) != address {
		t.Fatalf("recovered address mismatch")
	}
}

func TestSignClobAuth_DependsOnChain(t *testing.T) {
	key, _ := crypto.HexToECDSA(testKeyHex)
	a, err := signClobAuth(key, 137, 1700000000, 0)
	if err != nil {
		t.Fatalf("signClobAuth: %v", err)
	}
	b, err := signClobAuth(key, 80002, 1700000000, 0)
	if err != nil {
		t.Fatalf("signClobAuth: %v", err)
	}
	if a == b {
		t.Fatalf("signatures for different chains must differ")
	}
}

func TestL1Headers(t *testing.T) {
	key, _ := crypto.HexToECDSA(testKeyHex)
	h, err := l1Headers(key, 137, 1700000000, 3)
	if err != nil {
		t.Fatalf("l1Headers: %v", err)
	}
	if h.Get(headerAddress) != crypto.PubkeyToAddress(key.PublicKey).Hex() {
		t.Errorf("unexpected address header %q", h.Get(headerAddress))
	}
	if h.Get(headerTimestamp) != "1700000000" || h.Get(headerNonce) != "3" {
		t.Errorf("unexpected timestamp/nonce headers %v", h)
	}
	if h.Get(headerSignature) == "" {
		t.Errorf("missing signature header")
	}
}

func TestL2Signature(t *testing.T) {
	rawSecret := []byte("super-secret-bytes")
	secret := base64.URLEncoding.EncodeToString(rawSecret)
	body := []byte(`{"orderID":"abc"}`)

	mac := hmac.New(sha256.New, rawSecret)
	mac.Write([]byte("1700000000DELETE/order" + string(body)))
	want := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	if got := l2Signature(secret, 1700000000, "DELETE", "/order", body); got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestDecodeSecret(t *testing.T) {
	raw := []byte{0xfb, 0xff, 0x01}
	if got := decodeSecret(base64.URLEncoding.EncodeToString(raw)); string(got) != string(raw) {
		t.Errorf("url encoding not decoded")
	}
	if got := decodeSecret(base64.StdEncoding.EncodeToString(raw)); string(got) != string(raw) {
		t.Errorf("std encoding not decoded")
	}
	if got := decodeSecret("not base64!"); string(got) != "not base64!" {
		t.Errorf("raw secret should be used as-is")
	}
}

func TestL2Headers(t *testing.T) {
	key, _ := crypto.HexToECDSA(testKeyHex)
	address := crypto.PubkeyToAddress(key.PublicKey)
	creds := trading.Credentials{APIKey: "key-1", Secret: "c2VjcmV0", Passphrase: "pass-1"}

	h := l2Headers(address, creds, 1700000000, "POST", "/order", []byte("{}"))
	if h.Get(headerAPIKey) != "key-1" || h.Get(headerPassphrase) != "pass-1" {
		t.Fatalf("credential headers missing: %v", h)
	}
	if h.Get(headerSignature) != l2Signature("c2VjcmV0", 1700000000, "POST", "/order", []byte("{}")) {
		t.Fatalf("signature header mismatch")
	}
}
