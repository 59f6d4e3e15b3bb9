package kalshi

// auth.go — firma de requests de la API de Kalshi.
//
// Cada request autenticada lleva tres headers:
//
//	KALSHI-ACCESS-KEY:       key id
//	KALSHI-ACCESS-TIMESTAMP: epoch millis
//	KALSHI-ACCESS-SIGNATURE: RSA-PSS(SHA256, timestamp + METHOD + path)
//
// El path firmado incluye el prefijo /trade-api/v2 y excluye el query string.

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const signPathPrefix = "/trade-api/v2"

// Auth contiene las credenciales RSA para firmar requests.
type Auth struct {
	keyID string
	key   *rsa.PrivateKey
}

// NewAuth carga la private key PEM desde disco.
func NewAuth(keyID, pemPath string) (*Auth, error) {
	data, err := os.ReadFile(pemPath)
	if err != nil {
		return nil, fmt.Errorf("kalshi.NewAuth: read key %q: %w", pemPath, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("kalshi.NewAuth: %q is not PEM", pemPath)
	}

	key, err := parsePrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("kalshi.NewAuth: parse key: %w", err)
	}

	return &Auth{keyID: keyID, key: key}, nil
}

// Sign agrega los headers de autenticación a la request.
func (a *Auth) Sign(req *http.Request, method, path string) error {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)

	sig, err := a.signature(ts, method, path)
	if err != nil {
		return fmt.Errorf("kalshi.Auth.Sign: %w", err)
	}

	req.Header.Set("KALSHI-ACCESS-KEY", a.keyID)
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", ts)
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", sig)
	return nil
}

// signature firma timestamp + MÉTODO + path (sin query) con RSA-PSS.
func (a *Auth) signature(ts, method, path string) (string, error) {
	pathNoQuery := path
	if i := strings.IndexByte(pathNoQuery, '?'); i >= 0 {
		pathNoQuery = pathNoQuery[:i]
	}
	msg := ts + strings.ToUpper(method) + signPathPrefix + pathNoQuery

	digest := sha256.Sum256([]byte(msg))
	sig, err := rsa.SignPSS(rand.Reader, a.key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// parsePrivateKey acepta keys en formato PKCS#1 o PKCS#8.
func parsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA key: %T", parsed)
	}
	return key, nil
}
