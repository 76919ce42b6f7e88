package finder

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPlayTimeUnmarshalVariants(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want PlayTime
	}{
		{"full six elements", "[2025,7,24,14,30,15]", PlayTime{2025, time.July, 24, 14, 30, 15}},
		{"without seconds", "[2025,7,24,14,30]", PlayTime{2025, time.July, 24, 14, 30, 0}},
		{"date only defaults to midnight", "[2025,7,24]", PlayTime{2025, time.July, 24, 0, 0, 0}},
		{"extra elements ignored", "[2025,7,24,14,30,15,999]", PlayTime{2025, time.July, 24, 14, 30, 15}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got PlayTime
			require.NoError(t, json.Unmarshal([]byte(tc.in), &got))
			require.Equal(t, tc.want, got)
		})
	}
}

func TestPlayTimeUnmarshalFailsClosed(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"too short", "[2025,7]"},
		{"empty array", "[]"},
		{"not an array", `"2025-07-24"`},
		{"month out of range", "[2025,13,24,14,0]"},
		{"hour out of range", "[2025,7,24,24,0]"},
		{"negative minute", "[2025,7,24,14,-1]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got PlayTime
			err := json.Unmarshal([]byte(tc.in), &got)
			require.Error(t, err)
			require.ErrorIs(t, err, ErrInvalidDate)
			require.True(t, got.IsZero(), "a failed parse must not leave a partial value")
		})
	}
}

func TestPlayTimeMarshal(t *testing.T) {
	withSeconds := PlayTime{2025, time.July, 24, 14, 30, 15}
	data, err := json.Marshal(withSeconds)
	require.NoError(t, err)
	require.JSONEq(t, "[2025,7,24,14,30,15]", string(data))

	withoutSeconds := PlayTime{2025, time.July, 24, 14, 30, 0}
	data, err = json.Marshal(withoutSeconds)
	require.NoError(t, err)
	require.JSONEq(t, "[2025,7,24,14,30]", string(data))

	_, err = json.Marshal(PlayTime{})
	require.Error(t, err)
}

func TestPlayTimeRoundTrip(t *testing.T) {
	original := PlayTime{2025, time.July, 24, 14, 30, 0}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded PlayTime
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.True(t, original.Equal(decoded))
}

func TestPlayTimeTimeAndCompare(t *testing.T) {
	earlier := PlayTime{2025, time.July, 24, 14, 0, 0}
	later := PlayTime{2025, time.July, 24, 15, 0, 0}

	require.Equal(t, -1, earlier.Compare(later))
	require.Equal(t, 1, later.Compare(earlier))
	require.Equal(t, 0, earlier.Compare(earlier))

	loc := time.FixedZone("club", 2*60*60)
	instant := earlier.Time(loc)
	require.Equal(t, time.Date(2025, time.July, 24, 14, 0, 0, 0, loc), instant)
}

func TestPlayTimeDateKey(t *testing.T) {
	p := PlayTime{2025, time.July, 24, 18, 45, 0}
	key := p.DateKey(time.UTC)
	require.Equal(t, time.Date(2025, time.July, 24, 0, 0, 0, 0, time.UTC), key)
}
