package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeStaysWithinBounds(t *testing.T) {
	for i := int64(0); i < 70; i++ {
		backOff := Time(i, 500*time.Millisecond, 10*time.Second)
		assert.GreaterOrEqual(t, backOff, time.Duration(0))
		assert.LessOrEqual(t, backOff, 10*time.Second)
	}
}

func TestTimeZeroForNonPositiveInputs(t *testing.T) {
	assert.Equal(t, time.Duration(0), Time(0, time.Second, time.Minute))
	assert.Equal(t, time.Duration(0), Time(-1, time.Second, time.Minute))
	assert.Equal(t, time.Duration(0), Time(5, 0, time.Minute))
}

func TestTimeConverges(t *testing.T) {
	var i int64
	for {
		backOff := Time(i, time.Millisecond, time.Second)
		i++
		if backOff >= time.Second {
			break
		}
		if i > 10000 {
			t.Fatal("backoff never reached the maximum")
		}
	}
}
