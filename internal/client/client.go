// Package client habla con la API HTTP de SkillsPassport. Lo usa el CLI.
//
// Los errores distinguen tres casos que el usuario tiene que poder separar:
// backend caído (ErrUnreachable), sesión rechazada o wallet sin permiso
// (ErrNotAuthorized) y el resto de respuestas de error (*APIError).
package client

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	authdto "github.com/dropDatabas3/skillspassport/internal/http/dto/auth"
	creddto "github.com/dropDatabas3/skillspassport/internal/http/dto/credentials"
	"github.com/dropDatabas3/skillspassport/internal/ledger"
	"github.com/dropDatabas3/skillspassport/internal/sessiongate"
	"github.com/dropDatabas3/skillspassport/internal/wallet"
)

var (
	ErrUnreachable   = errors.New("backend unreachable")
	ErrNotAuthorized = errors.New("not authorized")
	ErrNotFound      = errors.New("not found")
)

const DefaultTimeout = 30 * time.Second

// APIError es una respuesta {"error","code"} del server.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
	Detail  string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return fmt.Sprintf("%s [status=%d code=%s]", msg, e.Status, e.Code)
}

// Is hace que errors.Is(err, ErrNotAuthorized) cubra 401 y 403.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotAuthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	// Token se manda como Bearer en las rutas protegidas.
	Token string
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTP:    &http.Client{Timeout: DefaultTimeout},
	}
}

// WithToken devuelve una copia que autentica con token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.Token = token
	return &cp
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnreachable, err)
	}

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		// 5xx sin cuerpo JSON: un proxy delante del backend caído
		if resp.StatusCode >= 500 && apiErr.Code == "" {
			return fmt.Errorf("%w: %s", ErrUnreachable, apiErr.Error())
		}
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// ─── auth ───

func (c *Client) Nonce(ctx context.Context, address string) (string, error) {
	var out authdto.NonceResponse
	err := c.do(ctx, http.MethodGet, "/api/nonce?address="+url.QueryEscape(address), nil, &out)
	return out.Nonce, err
}

func (c *Client) Login(ctx context.Context, address, signature string) (authdto.WalletLoginResponse, error) {
	var out authdto.WalletLoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/wallet", authdto.WalletLoginRequest{Address: address, Signature: signature}, &out)
	return out, err
}

// LoginWithKey corre el protocolo completo: nonce, firma local, login.
func (c *Client) LoginWithKey(ctx context.Context, key *ecdsa.PrivateKey) (sessiongate.Session, error) {
	addr := wallet.AddressOf(key)
	nonce, err := c.Nonce(ctx, addr)
	if err != nil {
		return sessiongate.Session{}, err
	}
	sig, err := wallet.SignMessage(key, nonce)
	if err != nil {
		return sessiongate.Session{}, err
	}
	resp, err := c.Login(ctx, addr, sig)
	if err != nil {
		return sessiongate.Session{}, err
	}
	return sessiongate.Session{
		Address:   resp.Address,
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (c *Client) Me(ctx context.Context) (string, error) {
	var out authdto.MeResponse
	err := c.do(ctx, http.MethodGet, "/api/me", nil, &out)
	return out.Address, err
}

// VerifySession implementa sessiongate.Validator.
func (c *Client) VerifySession(ctx context.Context, token string) (string, bool, error) {
	addr, err := c.WithToken(token).Me(ctx)
	switch {
	case err == nil:
		return addr, true, nil
	case errors.Is(err, ErrNotAuthorized):
		return "", false, nil
	default:
		return "", false, err
	}
}

// ─── credenciales ───

func (c *Client) Mint(ctx context.Context, in creddto.MintRequest) (creddto.CredentialResponse, error) {
	var out creddto.CredentialResponse
	err := c.do(ctx, http.MethodPost, "/api/credentials", in, &out)
	return out, err
}

func (c *Client) Revoke(ctx context.Context, id, reason string) (creddto.RevokeResponse, error) {
	var out creddto.RevokeResponse
	err := c.do(ctx, http.MethodPost, "/api/credentials/"+url.PathEscape(id)+"/revoke", creddto.RevokeRequest{Reason: reason}, &out)
	return out, err
}

func (c *Client) RevokeAt(ctx context.Context, index int, reason string) (creddto.RevokeResponse, error) {
	var out creddto.RevokeResponse
	err := c.do(ctx, http.MethodPost, "/api/ledger/credentials/"+strconv.Itoa(index)+"/revoke", creddto.RevokeRequest{Reason: reason}, &out)
	return out, err
}

// Get devuelve status notfound (sin error) cuando la credencial no existe.
func (c *Client) Get(ctx context.Context, id string) (creddto.CredentialResponse, error) {
	var out creddto.CredentialResponse
	err := c.do(ctx, http.MethodGet, "/api/credentials/"+url.PathEscape(id), nil, &out)
	if errors.Is(err, ErrNotFound) {
		return creddto.CredentialResponse{Status: ledger.StatusNotFound}, nil
	}
	return out, err
}

func (c *Client) ListByWallet(ctx context.Context, address string) (creddto.ListResponse, error) {
	var out creddto.ListResponse
	err := c.do(ctx, http.MethodGet, "/api/credentials?wallet="+url.QueryEscape(address), nil, &out)
	return out, err
}

func (c *Client) Ledger(ctx context.Context) (creddto.LedgerResponse, error) {
	var out creddto.LedgerResponse
	err := c.do(ctx, http.MethodGet, "/api/ledger", nil, &out)
	return out, err
}

func (c *Client) Verify(ctx context.Context) (ledger.IntegrityReport, error) {
	var out ledger.IntegrityReport
	err := c.do(ctx, http.MethodGet, "/api/ledger/verify", nil, &out)
	return out, err
}
