package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatches(t *testing.T) {
	for _, tt := range []struct {
		name string
		cfg  Config
		size int
	}{
		{"default", DefaultConfig(), 1000},
		{"serial", Serial, 100},
		{"uneven", Config{Workers: 3, MinItems: 2}, 10},
		{"more workers than items", Config{Workers: 16, MinItems: 2}, 5},
		{"below minimum", Config{Workers: 4, MinItems: 64}, 63},
		{"empty", DefaultConfig(), 0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			seen := make([]int32, tt.size)
			var calls atomic.Int64
			tt.cfg.Batches(tt.size, func(n int) {
				atomic.AddInt32(&seen[n], 1)
				calls.Add(1)
			})
			assert.EqualValues(t, tt.size, calls.Load())
			for n, v := range seen {
				assert.EqualValues(t, 1, v, "item %d", n)
			}
		})
	}
}

func TestBatches_Serial(t *testing.T) {
	var order []int
	Serial.Batches(4, func(n int) {
		order = append(order, n)
	})
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}
