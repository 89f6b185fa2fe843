package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/welldanyogia/webrana-msgqueue/internal/errors"
)

func TestParseChannelType(t *testing.T) {
	for _, raw := range []string{"email", "SMS", " file ", "socket"} {
		ct, err := ParseChannelType(raw)
		require.NoError(t, err, raw)
		assert.True(t, ct.Valid())
	}

	_, err := ParseChannelType("fax")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedType)
	assert.False(t, ChannelType("").Valid())
}

func TestDestinations_AddKeepsOrderAndPosition(t *testing.T) {
	var d Destinations
	d.Add("b@x.com", "")
	d.Add("a@x.com", "A")
	d.Add("b@x.com", "B")
	d.Add("a@x.com", "")

	assert.Equal(t, []string{"b@x.com", "a@x.com"}, d.Addresses())
	assert.Equal(t, "B", d.Name("b@x.com"))
	assert.Equal(t, "A", d.Name("a@x.com"))

	assert.True(t, d.Remove("b@x.com"))
	assert.False(t, d.Remove("missing"))
	assert.Equal(t, []string{"a@x.com"}, d.Addresses())
}

func TestDestinations_JSONPreservesOrder(t *testing.T) {
	d := Destinations{{Address: "z@x.com", Name: "Z"}, {Address: "a@x.com"}}

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `{"z@x.com":"Z","a@x.com":""}`, string(b))

	var back Destinations
	require.NoError(t, json.Unmarshal([]byte(`{"z@x.com":"Z","a@x.com":null}`), &back))
	assert.Equal(t, d, back)
}

func TestDestinations_ScanAcceptsArrays(t *testing.T) {
	var d Destinations
	require.NoError(t, d.Scan([]byte(`["192.168.1.1:9000","10.0.0.1"]`)))
	assert.Equal(t, []string{"192.168.1.1:9000", "10.0.0.1"}, d.Addresses())

	require.NoError(t, d.Scan(nil))
	assert.Empty(t, d)

	assert.Error(t, d.Scan(42))
}

func TestFailedDestinations_EmptyIsNull(t *testing.T) {
	v, err := FailedDestinations(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = FailedDestinations{{Address: "bad", Name: "Bad"}}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"bad":"Bad"}`, v)

	var f FailedDestinations
	require.NoError(t, f.Scan(`{"bad":"Bad"}`))
	assert.Equal(t, "Bad", Destinations(f).Name("bad"))
}

func TestAttachments_ValueAndDir(t *testing.T) {
	v, err := Attachments(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, "", Attachments(nil).Dir())

	a := Attachments{{Filename: "a.txt", Path: "/tmp/q/abc/a.txt", Type: "text/plain"}}
	v, err = a.Value()
	require.NoError(t, err)

	var back Attachments
	require.NoError(t, back.Scan(v))
	assert.Equal(t, a, back)
	assert.Equal(t, "/tmp/q/abc", back.Dir())
}
