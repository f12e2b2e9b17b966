package openapi

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_AddCachesUntilReplaced(t *testing.T) {
	svc := NewService(NewGenerator(DefaultConfig(), nil), nil)

	p := pluginWithContent(echoDocument("https://example.com"))
	first := svc.Add(p, false)
	require.Equal(t, 2, first.Length)

	p.Content = petstoreYAML
	assert.Same(t, first, svc.Add(p, false), "existing entry is returned without re-translation")

	replaced := svc.Add(p, true)
	assert.NotSame(t, first, replaced)
	assert.Equal(t, 4, replaced.Length)

	got, ok := svc.Get(p.ID)
	require.True(t, ok)
	assert.Same(t, replaced, got)
	assert.Equal(t, 1, svc.Len())
}

func TestService_Remove(t *testing.T) {
	svc := NewService(NewGenerator(DefaultConfig(), nil), nil)
	p := pluginWithContent(petstoreYAML)
	svc.Add(p, false)

	assert.True(t, svc.Remove(p.ID))
	assert.False(t, svc.Remove(p.ID))
	_, ok := svc.Get(p.ID)
	assert.False(t, ok)
	assert.Zero(t, svc.Len())
}

func TestService_CachesFailedTranslations(t *testing.T) {
	svc := NewService(NewGenerator(DefaultConfig(), nil), nil)
	entry := svc.Add(pluginWithContent("not an api"), false)

	assert.Error(t, entry.Err)
	assert.Zero(t, entry.Length)
	assert.Equal(t, 1, svc.Len())
}

func TestService_ConcurrentAdd(t *testing.T) {
	svc := NewService(NewGenerator(DefaultConfig(), nil), nil)
	p := pluginWithContent(petstoreYAML)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(replace bool) {
			defer wg.Done()
			entry := svc.Add(p, replace)
			assert.Equal(t, 4, entry.Length)
		}(i%2 == 0)
	}
	wg.Wait()
	assert.Equal(t, 1, svc.Len())
}

func TestService_ReplaceWinsOverConcurrentFill(t *testing.T) {
	old := pluginWithContent(petstoreYAML)
	fresh := old
	fresh.Content = echoDocument("https://example.com")

	for round := 0; round < 100; round++ {
		svc := NewService(NewGenerator(DefaultConfig(), nil), nil)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			svc.Add(old, false)
		}()
		go func() {
			defer wg.Done()
			svc.Add(fresh, true)
		}()
		wg.Wait()

		entry, ok := svc.Get(old.ID)
		require.True(t, ok)
		require.Equal(t, 2, entry.Length, "round %d", round)
	}
}
