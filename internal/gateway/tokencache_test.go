package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisTokenCache(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewRedisTokenCache(rdb)
	ctx := context.Background()

	mock.ExpectGet("psp:token:sqala").RedisNil()
	_, ok, err := c.Get(ctx, "sqala")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectSet("psp:token:sqala", "tok", 0).SetVal("OK")
	require.NoError(t, c.Set(ctx, "sqala", Token{Value: "tok"}))

	mock.ExpectGet("psp:token:sqala").SetVal("tok")
	tok, ok, err := c.Get(ctx, "sqala")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", tok.Value)

	mock.ExpectDel("psp:token:sqala").SetVal(1)
	require.NoError(t, c.Invalidate(ctx, "sqala"))

	// already expired tokens are not written
	require.NoError(t, c.Set(ctx, "sqala", Token{Value: "old", ExpiresAt: time.Now().Add(-time.Second)}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistry(t *testing.T) {
	sp := newTestSuitpay("http://unused")
	sq := newTestSqala("http://unused", nil)
	r := NewRegistry(SuitpayName, sp, sq)

	g, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, SuitpayName, g.Name())

	g, err = r.Get(SqalaName)
	require.NoError(t, err)
	assert.Equal(t, SqalaName, g.Name())

	_, err = r.Get("bspay")
	assert.Error(t, err)
	assert.Equal(t, []string{SqalaName, SuitpayName}, r.Names())
}
