package sampler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dosgrid/internal/actor"
	"github.com/vk/dosgrid/internal/port"
)

func TestResolve(t *testing.T) {
	testCases := []struct {
		name      string
		rp, rc    int
		expected  Transition
		expectErr bool
	}{
		{name: "same rate", rp: 2, rc: 2, expected: Transition{Mode: None, Factor: 1}},
		{name: "fast producer is decimated", rp: 1, rc: 10, expected: Transition{Mode: Downsample, Factor: 10}},
		{name: "slow producer is upsampled", rp: 10, rc: 2, expected: Transition{Mode: Upsample, Factor: 5}},
		{name: "non integer ratio", rp: 2, rc: 3, expectErr: true},
		{name: "zero rate", rp: 0, rc: 3, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := Resolve(tc.rp, tc.rc, KeepLast)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, tr)
		})
	}

	_, err := Resolve(4, 6, KeepLast)
	assert.ErrorIs(t, err, ErrRatio)
}

func TestTransition_OutRate(t *testing.T) {
	r, err := Transition{Mode: Downsample, Factor: 2}.OutRate(5)
	require.NoError(t, err)
	assert.Equal(t, 10, r)

	r, err = Transition{Mode: Upsample, Factor: 5}.OutRate(10)
	require.NoError(t, err)
	assert.Equal(t, 2, r)

	_, err = Transition{Mode: Upsample, Factor: 3}.OutRate(10)
	assert.ErrorIs(t, err, ErrRatio)
}

func TestTransition_Window(t *testing.T) {
	assert.Equal(t, actor.Window{Collect: 3}, Transition{Mode: Downsample, Factor: 3}.Window())
	assert.Equal(t, actor.Window{Collect: 3, KeepFirst: true}, Transition{Mode: Downsample, Factor: 3, Policy: KeepFirst}.Window())
	assert.Equal(t, actor.Window{Repeat: 4}, Transition{Mode: Upsample, Factor: 4}.Window())
	assert.Equal(t, actor.Window{}, Transition{}.Window())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, KeepLast, p)

	p, err = ParsePolicy("First")
	require.NoError(t, err)
	assert.Equal(t, KeepFirst, p)

	_, err = ParsePolicy("mean")
	assert.ErrorContains(t, err, "unknown decimation policy")
}

// runAdapter pushes values through an adapter actor and returns what comes out.
func runAdapter(t *testing.T, tr Transition, values []int) []int {
	t.Helper()

	a, err := NewAdapter("adapter", port.Of[int]("v"), 1, tr)
	require.NoError(t, err)

	upstream := port.NewOutput[int]("src")
	in, err := upstream.Attach(len(values) + 1)
	require.NoError(t, err)

	out := port.NewOutput[int]("out")
	downstream, err := out.Attach(len(values)*tr.Factor + 1)
	require.NoError(t, err)

	require.NoError(t, a.Bind([]port.Reader{in}, []port.Writer{out}))

	for _, v := range values {
		require.NoError(t, upstream.Publish(v))
	}
	upstream.Close()

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, actor.Terminated, a.State())

	var got []int
	for {
		v, ok := downstream.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	return got
}

func TestAdapter_DownsampleKeepsLast(t *testing.T) {
	got := runAdapter(t, Transition{Mode: Downsample, Factor: 3}, []int{1, 2, 3, 4, 5, 6, 7, 8})
	assert.Equal(t, []int{3, 6}, got, "trailing incomplete window must be dropped")
}

func TestAdapter_DownsampleKeepFirst(t *testing.T) {
	got := runAdapter(t, Transition{Mode: Downsample, Factor: 2, Policy: KeepFirst}, []int{1, 2, 3, 4})
	assert.Equal(t, []int{1, 3}, got)
}

func TestAdapter_Upsample(t *testing.T) {
	got := runAdapter(t, Transition{Mode: Upsample, Factor: 3}, []int{7, 9})
	assert.Equal(t, []int{7, 7, 7, 9, 9, 9}, got)
}

func TestNewAdapter_Rates(t *testing.T) {
	a, err := NewAdapter("down", port.Of[float64]("x"), 2, Transition{Mode: Downsample, Factor: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, a.InRate())
	assert.Equal(t, 10, a.Rate())
	assert.Equal(t, "in", a.Inputs()[0].Name)
	assert.Equal(t, "out", a.Outputs()[0].Name)

	_, err = NewAdapter("bad", port.Of[float64]("x"), 2, Transition{Mode: Upsample, Factor: 0})
	assert.ErrorContains(t, err, "factor must be a positive integer")
}
