// Package chain consulta el contrato de registro de issuers.
//
// La única interacción on-chain es la llamada de lectura
// isIssuer(address) -> bool; nunca se envían transacciones.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/skillspassport/internal/metrics"
	"github.com/dropDatabas3/skillspassport/internal/observability/logger"
	"github.com/dropDatabas3/skillspassport/internal/wallet"
)

var (
	// ErrNotConfigured: falta RPC URL o dirección del contrato.
	ErrNotConfigured = errors.New("on-chain provider or contract not configured")
	// ErrUnavailable: la llamada falló o excedió el timeout.
	ErrUnavailable = errors.New("on-chain verification failed")
)

const DefaultTimeout = 10 * time.Second

const registryABI = `[{"type":"function","name":"isIssuer","stateMutability":"view",
"inputs":[{"name":"who","type":"address"}],"outputs":[{"name":"","type":"bool"}]}]`

// Registry responde si una dirección es issuer registrado.
type Registry interface {
	IsIssuer(ctx context.Context, address string) (bool, error)
}

// ContractCaller es el subconjunto de ethclient.Client que se usa.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type EthRegistry struct {
	caller   ContractCaller
	contract common.Address
	abi      abi.ABI
	timeout  time.Duration
	closer   func()

	sf singleflight.Group
}

// Dial conecta al nodo RPC. Con rpcURL o contract vacíos devuelve un
// registry Unconfigured en vez de error, así el server arranca igual y falla
// recién al autenticar.
func Dial(ctx context.Context, rpcURL, contract string, timeout time.Duration) (Registry, error) {
	rpcURL = strings.TrimSpace(rpcURL)
	contract = strings.TrimSpace(contract)
	if rpcURL == "" || contract == "" {
		return Unconfigured{}, nil
	}
	if !wallet.IsAddress(contract) {
		return nil, fmt.Errorf("chain: invalid contract address %q", contract)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}
	r, err := NewEthRegistry(client, contract, timeout)
	if err != nil {
		client.Close()
		return nil, err
	}
	r.closer = client.Close
	return r, nil
}

func NewEthRegistry(caller ContractCaller, contract string, timeout time.Duration) (*EthRegistry, error) {
	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse abi: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &EthRegistry{
		caller:   caller,
		contract: common.HexToAddress(contract),
		abi:      parsed,
		timeout:  timeout,
	}, nil
}

// IsIssuer llama isIssuer(address) con timeout. Llamadas concurrentes para la
// misma dirección comparten resultado. La llamada compartida corre con un
// contexto desacoplado (solo r.timeout la corta): si se cancela el request
// que la inició, los demás siguen esperando el resultado.
func (r *EthRegistry) IsIssuer(ctx context.Context, address string) (bool, error) {
	if !wallet.IsAddress(address) {
		return false, wallet.ErrInvalidAddress
	}
	addr := wallet.Lower(address)
	shared := context.WithoutCancel(ctx)
	ch := r.sf.DoChan(addr, func() (any, error) {
		return r.call(shared, addr)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	case <-ctx.Done():
		return false, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}

func (r *EthRegistry) call(ctx context.Context, addr string) (bool, error) {
	log := logger.From(ctx).With(logger.Component("chain"), logger.Op("IsIssuer"), logger.Address(addr))

	input, err := r.abi.Pack("isIssuer", common.HexToAddress(addr))
	if err != nil {
		return false, fmt.Errorf("chain: pack: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	out, err := r.caller.CallContract(cctx, ethereum.CallMsg{To: &r.contract, Data: input}, nil)
	dur := time.Since(start)
	if err != nil {
		metrics.RecordChainCall("error", dur)
		log.Warn("isIssuer call failed", logger.Err(err), logger.Duration(dur))
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	res, err := r.abi.Unpack("isIssuer", out)
	if err != nil || len(res) != 1 {
		metrics.RecordChainCall("error", dur)
		log.Warn("isIssuer returned malformed data", logger.Err(err), logger.Int("bytes", len(out)))
		return false, fmt.Errorf("%w: unpack isIssuer result", ErrUnavailable)
	}
	ok, isBool := res[0].(bool)
	if !isBool {
		metrics.RecordChainCall("error", dur)
		return false, fmt.Errorf("%w: unexpected result type %T", ErrUnavailable, res[0])
	}

	result := "not_issuer"
	if ok {
		result = "issuer"
	}
	metrics.RecordChainCall(result, dur)
	log.Debug("isIssuer answered", logger.Bool("issuer", ok), logger.Duration(dur))
	return ok, nil
}

func (r *EthRegistry) Close() {
	if r.closer != nil {
		r.closer()
	}
}

// Unconfigured siempre falla con ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) IsIssuer(context.Context, string) (bool, error) {
	metrics.RecordChainCall("unconfigured", 0)
	return false, ErrNotConfigured
}

// Static responde desde un set fijo de direcciones (tests, entornos locales).
type Static struct {
	Issuers map[string]bool
	Err     error
}

func NewStatic(addresses ...string) *Static {
	s := &Static{Issuers: map[string]bool{}}
	for _, a := range addresses {
		s.Issuers[wallet.Lower(a)] = true
	}
	return s
}

func (s *Static) IsIssuer(_ context.Context, address string) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	if !wallet.IsAddress(address) {
		return false, wallet.ErrInvalidAddress
	}
	return s.Issuers[wallet.Lower(address)], nil
}
