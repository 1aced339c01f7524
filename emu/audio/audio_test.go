package audio

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestToneSquareWave(t *testing.T) {
	tone := NewTone(SampleRate, ToneHz)
	assert.Equal(t, 92, tone.halfPeriod)

	samples := make([][2]float64, 4*tone.halfPeriod)
	n, ok := tone.Stream(samples)
	assert.Equal(t, len(samples), n)
	assert.True(t, ok)
	assert.NoError(t, tone.Err())

	// the filter settles well within a half period
	high := samples[tone.halfPeriod-1][0]
	low := samples[2*tone.halfPeriod-1][0]
	assert.True(t, high > 0.99 && high < 1.01)
	assert.True(t, low < -0.99 && low > -1.01)

	for _, sample := range samples {
		assert.Equal(t, sample[0], sample[1])
	}
}

func TestToneMinimumPeriod(t *testing.T) {
	tone := NewTone(SampleRate, float64(SampleRate))
	assert.Equal(t, 1, tone.halfPeriod)
}
