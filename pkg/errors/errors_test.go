package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithContext(t *testing.T) {
	assert.NoError(t, WithContext(nil, "unused"))

	root := New("root")
	err := WithContext(WithContext(root, "inner"), "outer")
	assert.EqualError(t, err, "outer: inner: root")
	assert.Equal(t, root, RootCause(err))
	assert.True(t, Is(err, root))
}

func TestRootCauseTypedErrors(t *testing.T) {
	err := WithContext(TrustRejected{Fingerprint: "AB:CD"}, "connect")
	_, ok := RootCause(err).(TrustRejected)
	assert.True(t, ok)

	var mismatch TransferSizeMismatch
	err = WithContext(TransferSizeMismatch{Path: "a", Expected: 10, Actual: 3}, "verify")
	assert.True(t, As(err, &mismatch))
	assert.Equal(t, int64(3), mismatch.Actual)
}

func TestGetFriendlyMessage(t *testing.T) {
	err := WithContext(NewFriendlyError("bad %s", "config"), "parse")
	msg, ok := GetFriendlyMessage(err)
	assert.True(t, ok)
	assert.Equal(t, "bad config", msg)

	connErr := ConnectionError{Host: "example.com:21", Err: New("refused")}
	msg, ok = GetFriendlyMessage(WithContext(connErr, "dial"))
	assert.True(t, ok)
	assert.Contains(t, msg, "example.com:21")
	assert.False(t, Is(connErr, ErrNotConnected))

	_, ok = GetFriendlyMessage(New("plain"))
	assert.False(t, ok)
}
