package idgen

import (
	"regexp"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceGenerator(t *testing.T) {
	gen, err := NewReferenceGenerator("momo", 1)
	require.NoError(t, err)

	t.Run("format", func(t *testing.T) {
		ref := gen.Generate()
		assert.Regexp(t, regexp.MustCompile(`^MOMO[0-9A-Z]{19}$`), ref)
		assert.Equal(t, "MOMO", gen.Prefix())
	})

	t.Run("unique under concurrency", func(t *testing.T) {
		const n = 2000
		refs := make([]string, n)

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				refs[i] = gen.Generate()
			}(i)
		}
		wg.Wait()

		seen := make(map[string]struct{}, n)
		for _, ref := range refs {
			seen[ref] = struct{}{}
		}
		assert.Len(t, seen, n)
	})

	t.Run("time component sorts in generation order", func(t *testing.T) {
		var stamps []string
		for i := 0; i < 50; i++ {
			ref := gen.Generate()
			stamps = append(stamps, ref[len("MOMO"):len("MOMO")+timeWidth])
		}
		assert.True(t, sort.StringsAreSorted(stamps))
	})
}

func TestNewReferenceGeneratorValidation(t *testing.T) {
	_, err := NewReferenceGenerator("bad-prefix", 1)
	assert.Error(t, err)

	_, err = NewReferenceGenerator("MOMO", 5000)
	assert.Error(t, err)
}
