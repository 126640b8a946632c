package logger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func resetGlobalLogger() {
	mu.Lock()
	defer mu.Unlock()
	globalLogger = nil
}

func TestGetGlobalLogger_ConcurrentFallbackInit(t *testing.T) {
	resetGlobalLogger()

	const goroutines = 8
	loggers := make([]*ZapLogger, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			loggers[slot] = GetGlobalLogger()
		}(i)
	}
	wg.Wait()

	require.NotNil(t, loggers[0])
	for _, l := range loggers[1:] {
		assert.Same(t, loggers[0], l)
	}
}

func TestGetGlobalLogger_ConcurrentLoggingBeforeSet(t *testing.T) {
	resetGlobalLogger()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Debug("fallback logger in use", Int("goroutine", 1))
		}()
	}
	wg.Wait()

	assert.NotNil(t, GetGlobalLogger())
}

func TestSetGlobalLogger_TakesPrecedence(t *testing.T) {
	resetGlobalLogger()

	nop := zap.NewNop()
	custom := &ZapLogger{Logger: nop, sugar: nop.Sugar()}
	SetGlobalLogger(custom)

	assert.Same(t, custom, GetGlobalLogger())
}
