package filter

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeFilter(t *testing.T) {
	f := NewCodeFilter(1000, 0.001)

	assert.False(t, f.MightContain("abc123"))

	f.Add("abc123")
	f.AddAll([]string{"promo", "sale-2025"})

	assert.True(t, f.MightContain("abc123"))
	assert.True(t, f.MightContain("promo"))
	assert.True(t, f.MightContain("sale-2025"))
}

func TestCodeFilterConcurrentAdds(t *testing.T) {
	f := NewCodeFilter(10000, 0.001)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				f.Add(fmt.Sprintf("code-%d-%d", w, i))
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < 4; w++ {
		for i := 0; i < 500; i++ {
			assert.True(t, f.MightContain(fmt.Sprintf("code-%d-%d", w, i)))
		}
	}
}
