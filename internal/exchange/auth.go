package exchange

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"polymarket-execution/internal/trading"
)

const (
	headerAddress    = "POLY_ADDRESS"
	headerSignature  = "POLY_SIGNATURE"
	headerTimestamp  = "POLY_TIMESTAMP"
	headerNonce      = "POLY_NONCE"
	headerAPIKey     = "POLY_API_KEY"
	headerPassphrase = "POLY_PASSPHRASE"
)

// clobAuthTypedData 构造 L1 认证使用的 EIP-712 ClobAuth 结构。
func clobAuthTypedData(chainID int64, address common.Address, timestamp, nonce int64) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"ClobAuth": []apitypes.Type{
				{Name: "address", Type: "address"},
				{Name: "timestamp", Type: "string"},
				{Name: "nonce", Type: "uint256"},
				{Name: "message", Type: "string"},
			},
		},
		PrimaryType: "ClobAuth",
		Domain: apitypes.TypedDataDomain{
			Name:    clobAuthDomain,
			Version: clobAuthVersion,
			ChainId: math.NewHexOrDecimal256(chainID),
		},
		Message: apitypes.TypedDataMessage{
			"address":   address.Hex(),
			"timestamp": strconv.FormatInt(timestamp, 10),
			"nonce":     strconv.FormatInt(nonce, 10),
			"message":   clobAuthMessage,
		},
	}
}

// signClobAuth 返回 0x 前缀的 65 字节签名，v 取 27/28。
func signClobAuth(key *ecdsa.PrivateKey, chainID int64, timestamp, nonce int64) (string, error) {
	address := crypto.PubkeyToAddress(key.PublicKey)
	hash, _, err := apitypes.TypedDataAndHash(clobAuthTypedData(chainID, address, timestamp, nonce))
	if err != nil {
		return "", fmt.Errorf("exchange: 计算 ClobAuth 哈希失败: %w", err)
	}

	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return "", fmt.Errorf("exchange: ClobAuth 签名失败: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

func l1Headers(key *ecdsa.PrivateKey, chainID int64, timestamp, nonce int64) (http.Header, error) {
	signature, err := signClobAuth(key, chainID, timestamp, nonce)
	if err != nil {
		return nil, err
	}

	h := make(http.Header)
	h.Set(headerAddress, crypto.PubkeyToAddress(key.PublicKey).Hex())
	h.Set(headerSignature, signature)
	h.Set(headerTimestamp, strconv.FormatInt(timestamp, 10))
	h.Set(headerNonce, strconv.FormatInt(nonce, 10))
	return h, nil
}

// l2Signature 对 timestamp+method+path+body 做 HMAC-SHA256，输出 base64url。
func l2Signature(secret string, timestamp int64, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, decodeSecret(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write(body)
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

func l2Headers(address common.Address, creds trading.Credentials, timestamp int64, method, path string, body []byte) http.Header {
	h := make(http.Header)
	h.Set(headerAddress, address.Hex())
	h.Set(headerSignature, l2Signature(creds.Secret, timestamp, method, path, body))
	h.Set(headerTimestamp, strconv.FormatInt(timestamp, 10))
	h.Set(headerAPIKey, creds.APIKey)
	h.Set(headerPassphrase, creds.Passphrase)
	return h
}

// decodeSecret 依次尝试 base64url、标准 base64，均失败时按原始字节使用。
func decodeSecret(secret string) []byte {
	if b, err := base64.URLEncoding.DecodeString(secret); err == nil {
		return b
	}
	if b, err := base64.StdEncoding.DecodeString(secret); err == nil {
		return b
	}
	return []byte(secret)
}
