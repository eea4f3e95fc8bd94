package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rogertalk/roger-api-sub001/pkg/logger"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("req", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "req", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "id", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	empty := logger.Errors(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	empty := logger.Error(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestAccountAttrs(t *testing.T) {
	attr := logger.AccountID(123)
	require.Equal(t, "account_id", attr.Key)
	assert.Equal(t, int64(123), attr.Value.Int64())

	origin := logger.OriginID(7)
	require.Equal(t, "origin_id", origin.Key)
	assert.Equal(t, int64(7), origin.Value.Int64())
}

func TestNotificationAttrs(t *testing.T) {
	assert.Equal(t, "notification_id", logger.NotificationID("n1").Key)
	assert.True(t, logger.NotificationID("").Equal(slog.Attr{}))

	assert.Equal(t, "2024-01-02", logger.GroupKey("2024-01-02").Value.String())
	assert.True(t, logger.GroupKey("").Equal(slog.Attr{}))
}

func TestDeviceToken(t *testing.T) {
	assert.Equal(t, "abcdefgh…", logger.DeviceToken("abcdefghijklmnop").Value.String())
	assert.Equal(t, "short", logger.DeviceToken("short").Value.String())
}

func TestRequestID(t *testing.T) {
	attr := logger.RequestID("abc")
	require.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "abc", attr.Value.Any())
	assert.True(t, logger.RequestID(nil).Equal(slog.Attr{}))
}

func TestScalarAttrs(t *testing.T) {
	assert.Equal(t, "content-vote", logger.EventType("content-vote").Value.String())
	assert.Equal(t, int64(500), logger.BatchSize(500).Value.Int64())
	assert.Equal(t, int64(502), logger.StatusCode(502).Value.Int64())
	assert.Equal(t, "challenge:sms_code", logger.RateLimitKey("challenge:sms_code").Value.String())
	assert.Equal(t, "push", logger.Component("push").Value.String())
	assert.Equal(t, "ios", logger.Platform("ios").Value.String())
}
