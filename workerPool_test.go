package htm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPoolCoversRange(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 8} {
		t.Run(fmt.Sprint(workers), func(t *testing.T) {
			var p *workerPool
			if workers > 0 {
				p = newWorkerPool(workers)
				defer p.close()
			}
			hits := make([]int, 23)
			err := p.run(len(hits), func(start, end int) error {
				for i := start; i < end; i++ {
					hits[i]++
				}
				return nil
			})
			assert.NoError(t, err)
			for i, h := range hits {
				assert.Equal(t, 1, h, "index %d", i)
			}
		})
	}
}

func TestWorkerPoolReturnsLowestChunkError(t *testing.T) {
	p := newWorkerPool(4)
	defer p.close()

	first := errors.New("first")
	err := p.run(16, func(start, end int) error {
		switch start {
		case 4:
			return first
		case 12:
			return errors.New("last")
		}
		return nil
	})
	assert.Equal(t, first, err)
}
