package chain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const (
	contractAddr = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	issuerAddr   = "0x27b1fdb04752bbc536007a920d24acb045561c26"
	otherAddr    = "0xde709f2102306220921060314715629080e2fb77"
)

type fakeCaller struct {
	t       *testing.T
	reg     *EthRegistry
	issuers map[common.Address]bool
	delay   time.Duration
	err     error
	calls   atomic.Int32
	raw     []byte
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls.Add(1)
	require.Equal(f.t, common.HexToAddress(contractAddr), *msg.To)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.raw != nil {
		return f.raw, nil
	}
	m := f.reg.abi.Methods["isIssuer"]
	require.True(f.t, bytes.Equal(m.ID, msg.Data[:4]))
	args, err := m.Inputs.Unpack(msg.Data[4:])
	require.NoError(f.t, err)
	who := args[0].(common.Address)
	return m.Outputs.Pack(f.issuers[who])
}

func newRegistry(t *testing.T, timeout time.Duration) (*EthRegistry, *fakeCaller) {
	f := &fakeCaller{t: t, issuers: map[common.Address]bool{common.HexToAddress(issuerAddr): true}}
	r, err := NewEthRegistry(f, contractAddr, timeout)
	require.NoError(t, err)
	f.reg = r
	return r, f
}

func TestEthRegistry_IsIssuer(t *testing.T) {
	r, _ := newRegistry(t, time.Second)
	ctx := context.Background()

	ok, err := r.IsIssuer(ctx, issuerAddr)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = r.IsIssuer(ctx, otherAddr)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = r.IsIssuer(ctx, "0x1234")
	require.Error(t, err)
}

func TestEthRegistry_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("rpc error", func(t *testing.T) {
		r, f := newRegistry(t, time.Second)
		f.err = errors.New("connection refused")
		_, err := r.IsIssuer(ctx, issuerAddr)
		require.ErrorIs(t, err, ErrUnavailable)
	})
	t.Run("timeout", func(t *testing.T) {
		r, f := newRegistry(t, 20*time.Millisecond)
		f.delay = time.Second
		_, err := r.IsIssuer(ctx, issuerAddr)
		require.ErrorIs(t, err, ErrUnavailable)
	})
	t.Run("empty return data", func(t *testing.T) {
		r, f := newRegistry(t, time.Second)
		f.raw = []byte{}
		_, err := r.IsIssuer(ctx, issuerAddr)
		require.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestEthRegistry_CollapsesConcurrentCalls(t *testing.T) {
	r, f := newRegistry(t, time.Second)
	f.delay = 50 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := r.IsIssuer(context.Background(), issuerAddr)
			require.NoError(t, err)
			require.True(t, ok)
		}()
	}
	wg.Wait()
	require.Less(t, f.calls.Load(), int32(8))
}

func TestDial_Unconfigured(t *testing.T) {
	r, err := Dial(context.Background(), "", contractAddr, 0)
	require.NoError(t, err)
	_, err = r.IsIssuer(context.Background(), issuerAddr)
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = Dial(context.Background(), "http://127.0.0.1:8545", "not-an-address", 0)
	require.Error(t, err)
}

func TestStatic(t *testing.T) {
	s := NewStatic("0x27B1FDB04752BBC536007A920D24ACB045561C26")
	ok, err := s.IsIssuer(context.Background(), issuerAddr)
	require.NoError(t, err)
	require.True(t, ok)

	s.Err = ErrUnavailable
	_, err = s.IsIssuer(context.Background(), issuerAddr)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestEthRegistry_CancelledCallerDoesNotFailOthers(t *testing.T) {
	r, f := newRegistry(t, time.Second)
	f.delay = 100 * time.Millisecond

	first, cancel := context.WithCancel(context.Background())
	var (
		wg        sync.WaitGroup
		firstErr  error
		secondOK  bool
		secondErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, firstErr = r.IsIssuer(first, issuerAddr)
	}()
	time.Sleep(20 * time.Millisecond)
	go func() {
		defer wg.Done()
		secondOK, secondErr = r.IsIssuer(context.Background(), issuerAddr)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	wg.Wait()

	require.ErrorIs(t, firstErr, ErrUnavailable)
	require.NoError(t, secondErr)
	require.True(t, secondOK)
	require.Equal(t, int32(1), f.calls.Load())
}
