package server

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/skillspassport/internal/chain"
	"github.com/dropDatabas3/skillspassport/internal/config"
	"github.com/dropDatabas3/skillspassport/internal/wallet"
)

type harness struct {
	t      *testing.T
	srv    *httptest.Server
	app    *App
	reg    *issuerSet
	issuer *ecdsa.PrivateKey
}

// issuerSet es un registry que el test puede modificar con el server corriendo.
type issuerSet struct {
	mu     sync.Mutex
	static *chain.Static
}

func (s *issuerSet) IsIssuer(ctx context.Context, address string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.static.IsIssuer(ctx, address)
}

func (s *issuerSet) remove(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.static.Issuers, wallet.Lower(address))
}

func newHarness(t *testing.T, env map[string]string, registry chain.Registry) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("APP_ENV", "dev")
	t.Setenv("LEDGER_DRIVER", "fs")
	t.Setenv("LEDGER_FILE", filepath.Join(dir, "ledger.json"))
	t.Setenv("NONCE_STORE", "memory")
	t.Setenv("RATE_MAX_REQUESTS", "100")
	t.Setenv("JWT_SECRET", "test-secret-test-secret")
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load("")
	require.NoError(t, err)

	key, err := wallet.NewKey()
	require.NoError(t, err)
	h := &harness{t: t, issuer: key}
	if registry == nil {
		h.reg = &issuerSet{static: chain.NewStatic(wallet.AddressOf(key))}
		registry = h.reg
	}

	h.app, err = Build(context.Background(), cfg, Options{Registry: registry, Metrics: prometheus.NewRegistry()})
	require.NoError(t, err)
	h.srv = httptest.NewServer(h.app.Handler)
	t.Cleanup(func() {
		h.srv.Close()
		_ = h.app.Close()
	})
	return h
}

func (h *harness) do(method, path, token string, body any) (int, map[string]any) {
	h.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rdr)
	require.NoError(h.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.srv.Client().Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func (h *harness) login(key *ecdsa.PrivateKey) (int, map[string]any) {
	h.t.Helper()
	addr := wallet.AddressOf(key)
	code, body := h.do(http.MethodGet, "/api/nonce?address="+url.QueryEscape(addr), "", nil)
	require.Equal(h.t, http.StatusOK, code, body)
	sig, err := wallet.SignMessage(key, body["nonce"].(string))
	require.NoError(h.t, err)
	return h.do(http.MethodPost, "/api/auth/wallet", "", map[string]string{"address": addr, "signature": sig})
}

func (h *harness) token() string {
	h.t.Helper()
	code, body := h.login(h.issuer)
	require.Equal(h.t, http.StatusOK, code, body)
	return body["token"].(string)
}

func mintBody(student string) map[string]string {
	return map[string]string{
		"institutionName": "Universidad Nacional",
		"studentName":     "Ana Pérez",
		"studentWallet":   student,
		"courseName":      "Go avanzado",
		"issueDate":       "2024-03-01",
		"expiryDate":      "2099-03-01",
	}
}

func TestEndToEnd_LoginMintVerifyRevoke(t *testing.T) {
	h := newHarness(t, nil, nil)
	tok := h.token()

	code, me := h.do(http.MethodGet, "/api/me", tok, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, wallet.AddressOf(h.issuer), me["address"])

	studentKey, err := wallet.NewKey()
	require.NoError(t, err)
	student := wallet.AddressOf(studentKey)

	code, minted := h.do(http.MethodPost, "/api/credentials", tok, mintBody(student))
	require.Equal(t, http.StatusCreated, code, minted)
	require.Equal(t, "active", minted["status"])
	cred := minted["credential"].(map[string]any)
	id := cred["id"].(string)
	require.True(t, strings.HasPrefix(id, "CERT-"))
	require.Equal(t, "GENESIS", cred["previousHash"])

	code, got := h.do(http.MethodGet, "/api/credentials/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "active", got["status"])

	code, _ = h.do(http.MethodGet, "/api/credentials?wallet="+student[2:], "", nil)
	require.Equal(t, http.StatusBadRequest, code, "sin prefijo 0x no es una dirección")
	code, list := h.do(http.MethodGet, "/api/credentials?wallet="+strings.ToUpper(student[:2])+student[2:], "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, list["credentials"], 1)

	code, rev := h.do(http.MethodPost, "/api/credentials/"+id+"/revoke", tok, map[string]string{"reason": "error de carga"})
	require.Equal(t, http.StatusOK, code, rev)
	require.Equal(t, "revoked", rev["status"])

	code, again := h.do(http.MethodPost, "/api/credentials/"+id+"/revoke", tok, nil)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "ALREADY_REVOKED", again["code"])

	code, got = h.do(http.MethodGet, "/api/credentials/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "revoked", got["status"])

	code, led := h.do(http.MethodGet, "/api/ledger", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, led["entries"], 2)
	require.Equal(t, "sha256", led["hashAlg"])

	code, rep := h.do(http.MethodGet, "/api/ledger/verify", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, rep["ok"])
	require.EqualValues(t, 2, rep["entries"])
}

func TestEndToEnd_RevokeAtIndex(t *testing.T) {
	h := newHarness(t, nil, nil)
	tok := h.token()
	student := wallet.AddressOf(h.issuer)

	for i := 0; i < 2; i++ {
		code, body := h.do(http.MethodPost, "/api/credentials", tok, mintBody(student))
		require.Equal(t, http.StatusCreated, code, body)
	}

	code, body := h.do(http.MethodPost, "/api/ledger/credentials/abc/revoke", tok, nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "INVALID_PARAMETER", body["code"])

	code, body = h.do(http.MethodPost, "/api/ledger/credentials/7/revoke", tok, nil)
	require.Equal(t, http.StatusNotFound, code, body)

	code, body = h.do(http.MethodPost, "/api/ledger/credentials/1/revoke", tok, nil)
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, "revoked", body["status"])

	// la revocación ocupa un entry pero no corre los índices de credenciales
	code, body = h.do(http.MethodPost, "/api/credentials", tok, mintBody(student))
	require.Equal(t, http.StatusCreated, code, body)
	third := body["credential"].(map[string]any)["id"]

	code, body = h.do(http.MethodPost, "/api/ledger/credentials/2/revoke", tok, nil)
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, third, body["credential"].(map[string]any)["id"])
}

func TestEndToEnd_LoginRejections(t *testing.T) {
	h := newHarness(t, nil, nil)

	t.Run("invalid address", func(t *testing.T) {
		code, body := h.do(http.MethodGet, "/api/nonce?address=0x123", "", nil)
		require.Equal(t, http.StatusBadRequest, code)
		require.Equal(t, "invalid address", body["error"])
	})

	t.Run("missing fields", func(t *testing.T) {
		code, body := h.do(http.MethodPost, "/api/auth/wallet", "", map[string]string{"address": wallet.AddressOf(h.issuer)})
		require.Equal(t, http.StatusBadRequest, code)
		require.Equal(t, "address & signature required", body["error"])
	})

	t.Run("nonce not requested", func(t *testing.T) {
		other, err := wallet.NewKey()
		require.NoError(t, err)
		sig, err := wallet.SignMessage(other, "whatever")
		require.NoError(t, err)
		code, body := h.do(http.MethodPost, "/api/auth/wallet", "", map[string]string{"address": wallet.AddressOf(other), "signature": sig})
		require.Equal(t, http.StatusBadRequest, code)
		require.Equal(t, "NONCE_NOT_FOUND", body["code"])
	})

	t.Run("wrong signer", func(t *testing.T) {
		addr := wallet.AddressOf(h.issuer)
		code, body := h.do(http.MethodGet, "/api/nonce?address="+addr, "", nil)
		require.Equal(t, http.StatusOK, code)
		other, err := wallet.NewKey()
		require.NoError(t, err)
		sig, err := wallet.SignMessage(other, body["nonce"].(string))
		require.NoError(t, err)
		code, body = h.do(http.MethodPost, "/api/auth/wallet", "", map[string]string{"address": addr, "signature": sig})
		require.Equal(t, http.StatusBadRequest, code)
		require.Equal(t, "signature does not match address", body["error"])
	})

	t.Run("garbage signature", func(t *testing.T) {
		addr := wallet.AddressOf(h.issuer)
		code, _ := h.do(http.MethodGet, "/api/nonce?address="+addr, "", nil)
		require.Equal(t, http.StatusOK, code)
		code, body := h.do(http.MethodPost, "/api/auth/wallet", "", map[string]string{"address": addr, "signature": "0xdeadbeef"})
		require.Equal(t, http.StatusBadRequest, code)
		require.Equal(t, "INVALID_SIGNATURE", body["code"])
	})

	t.Run("not an issuer", func(t *testing.T) {
		outsider, err := wallet.NewKey()
		require.NoError(t, err)
		code, body := h.login(outsider)
		require.Equal(t, http.StatusForbidden, code)
		require.Equal(t, "NOT_AN_ISSUER", body["code"])
	})
}

func TestEndToEnd_ChainNotConfigured(t *testing.T) {
	h := newHarness(t, nil, chain.Unconfigured{})
	code, body := h.login(h.issuer)
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "on-chain provider or contract not configured on server", body["error"])

	code, ready := h.do(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "degraded", ready["status"])
}

func TestEndToEnd_ChainUnavailable(t *testing.T) {
	reg := &chain.Static{Issuers: map[string]bool{}, Err: fmt.Errorf("dial tcp: %w", chain.ErrUnavailable)}
	h := newHarness(t, nil, reg)
	code, body := h.login(h.issuer)
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "on-chain verification failed", body["error"])
}

func TestEndToEnd_TokenRequired(t *testing.T) {
	h := newHarness(t, nil, nil)

	code, body := h.do(http.MethodGet, "/api/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "missing token", body["error"])

	code, body = h.do(http.MethodPost, "/api/credentials", "not-a-jwt", mintBody(wallet.AddressOf(h.issuer)))
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "invalid token", body["error"])

	code, led := h.do(http.MethodGet, "/api/ledger", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, led["entries"])
}

func TestEndToEnd_IssuerRemovedOnChain(t *testing.T) {
	h := newHarness(t, nil, nil)
	tok := h.token()

	h.reg.remove(wallet.AddressOf(h.issuer))

	code, body := h.do(http.MethodPost, "/api/credentials", tok, mintBody(wallet.AddressOf(h.issuer)))
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "FORBIDDEN", body["code"])

	code, led := h.do(http.MethodGet, "/api/ledger", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, led["entries"])
}

func TestEndToEnd_InvalidCredential(t *testing.T) {
	h := newHarness(t, nil, nil)
	tok := h.token()

	in := mintBody(wallet.AddressOf(h.issuer))
	in["issueDate"] = "01/03/2024"
	code, body := h.do(http.MethodPost, "/api/credentials", tok, in)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "INVALID_CREDENTIAL", body["code"])
	require.NotEmpty(t, body["detail"])
}

func TestEndToEnd_NotFoundShapes(t *testing.T) {
	h := newHarness(t, nil, nil)

	code, body := h.do(http.MethodGet, "/api/credentials/CERT-0-0000", "", nil)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, map[string]any{"status": "notfound"}, body)

	code, body = h.do(http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "ROUTE_NOT_FOUND", body["code"])

	code, body = h.do(http.MethodDelete, "/api/ledger", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, code)
	require.Equal(t, "METHOD_NOT_ALLOWED", body["code"])
}

func TestEndToEnd_RateLimit(t *testing.T) {
	h := newHarness(t, map[string]string{"RATE_MAX_REQUESTS": "2"}, nil)
	addr := wallet.AddressOf(h.issuer)

	for i := 0; i < 2; i++ {
		code, _ := h.do(http.MethodGet, "/api/nonce?address="+addr, "", nil)
		require.Equal(t, http.StatusOK, code)
	}
	code, body := h.do(http.MethodGet, "/api/nonce?address="+addr, "", nil)
	require.Equal(t, http.StatusTooManyRequests, code)
	require.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])

	// las lecturas del ledger no comparten ese presupuesto
	code, _ = h.do(http.MethodGet, "/api/ledger", "", nil)
	require.Equal(t, http.StatusOK, code)
}

func TestEndToEnd_BannerHealthAndMetrics(t *testing.T) {
	h := newHarness(t, nil, nil)

	resp, err := h.srv.Client().Get(h.srv.URL + "/")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(b), "SkillsPassport")

	code, body := h.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body["status"])

	code, body = h.do(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ready", body["status"])

	resp, err = h.srv.Client().Get(h.srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEndToEnd_LedgerSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	env := map[string]string{"LEDGER_FILE": filepath.Join(dir, "ledger.json")}

	h := newHarness(t, env, nil)
	tok := h.token()
	code, minted := h.do(http.MethodPost, "/api/credentials", tok, mintBody(wallet.AddressOf(h.issuer)))
	require.Equal(t, http.StatusCreated, code)
	id := minted["credential"].(map[string]any)["id"].(string)
	h.srv.Close()
	require.NoError(t, h.app.Close())

	h2 := newHarness(t, env, nil)
	code, got := h2.do(http.MethodGet, "/api/credentials/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "active", got["status"])
}
