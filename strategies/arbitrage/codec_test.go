package arbitrage

import (
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelpento.lv/arbengine/types"
)

func TestContextRoundTrip(t *testing.T) {
	huge, ok := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	require.True(t, ok)

	in := flashLoanContext{
		Caller:    caller,
		Principal: big.NewInt(1_000_000),
		Nonce:     7,
		Routes: []types.TradeRoute{
			{PlatformID: types.PlatformBancorV2, SourceToken: bnt, TargetToken: tkn, MinTargetAmount: big.NewInt(5), Deadline: 1, CustomAddress: tkn, CustomInt: big.NewInt(0)},
			{PlatformID: types.PlatformUniswapV3, SourceToken: tkn, TargetToken: types.NativeToken, MinTargetAmount: huge, Deadline: math.MaxUint64, CustomInt: big.NewInt(3000)},
			{PlatformID: types.PlatformSushiSwap, SourceToken: types.NativeToken, TargetToken: bnt, MinTargetAmount: big.NewInt(0), CustomInt: big.NewInt(0)},
		},
	}

	data, err := encodeContext(in)
	require.NoError(t, err)

	out, err := decodeContext(data)
	require.NoError(t, err)

	assert.Equal(t, in.Caller, out.Caller)
	assert.Equal(t, 0, in.Principal.Cmp(out.Principal))
	assert.Equal(t, in.Nonce, out.Nonce)
	require.Len(t, out.Routes, len(in.Routes))
	for i := range in.Routes {
		want, got := in.Routes[i], out.Routes[i]
		assert.Equal(t, want.PlatformID, got.PlatformID)
		assert.Equal(t, want.SourceToken, got.SourceToken)
		assert.Equal(t, want.TargetToken, got.TargetToken)
		assert.Equal(t, 0, want.MinTargetAmount.Cmp(got.MinTargetAmount))
		assert.Equal(t, want.Deadline, got.Deadline)
		assert.Equal(t, want.CustomAddress, got.CustomAddress)
		assert.Equal(t, 0, want.CustomInt.Cmp(got.CustomInt))
	}

	// same input, same bytes
	again, err := encodeContext(in)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestContextNilAmountsEncodeAsZero(t *testing.T) {
	data, err := encodeContext(flashLoanContext{
		Caller:    caller,
		Principal: big.NewInt(1),
		Routes:    []types.TradeRoute{{PlatformID: types.PlatformBancorV3, SourceToken: bnt, TargetToken: bnt}},
	})
	require.NoError(t, err)

	out, err := decodeContext(data)
	require.NoError(t, err)
	require.Len(t, out.Routes, 1)
	assert.Zero(t, out.Routes[0].MinTargetAmount.Sign())
	assert.Zero(t, out.Routes[0].CustomInt.Sign())
	assert.Equal(t, common.Address{}, out.Routes[0].CustomAddress)
}

func TestDecodeContextRejectsGarbage(t *testing.T) {
	_, err := decodeContext([]byte{1, 2, 3})
	assert.Error(t, err)
}
