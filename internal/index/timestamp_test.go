package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeTimestamp_MinimumIsZero(t *testing.T) {
	assert.Equal(t, "0", SerializeTimestamp(time.Time{}))

	got, err := DeserializeTimestamp("0")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestSerializeTimestamp_KnownValues(t *testing.T) {
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Unix(0, 0).UTC(), "621355968000000000"},
		{time.Date(2016, 1, 2, 3, 4, 5, 600, time.UTC), "635873006450000006"},
		{time.Date(1, 1, 1, 0, 0, 1, 0, time.UTC), "10000000"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SerializeTimestamp(tt.t), tt.t.String())
	}
}

func TestTimestamp_RoundTrip(t *testing.T) {
	instants := []time.Time{
		{},
		time.Date(1999, 12, 31, 23, 59, 59, 999999900, time.UTC),
		time.Date(2024, 2, 29, 12, 0, 0, 100, time.UTC),
		time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2020, 6, 1, 8, 30, 0, 0, time.FixedZone("X", 3*3600)),
	}

	for _, ts := range instants {
		got, err := DeserializeTimestamp(SerializeTimestamp(ts))
		require.NoError(t, err)
		assert.True(t, ts.Equal(got), "want %v, got %v", ts, got)
	}
}

func TestSerializeTimestamp_DropsSubTick(t *testing.T) {
	ts := time.Date(2020, 1, 1, 0, 0, 0, 123456789, time.UTC)
	got, err := DeserializeTimestamp(SerializeTimestamp(ts))
	require.NoError(t, err)
	assert.Equal(t, TruncateToTick(ts), got)
	assert.Equal(t, 123456700, got.Nanosecond())
}

func TestDeserializeTimestamp_Invalid(t *testing.T) {
	for _, s := range []string{"", "abc", "-1", "1.5", "99999999999999999999"} {
		_, err := DeserializeTimestamp(s)
		assert.Error(t, err, s)
	}
}
