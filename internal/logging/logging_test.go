package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForService_UsableBeforeInit(t *testing.T) {
	// ForService must hand out a working logger even when Init has not
	// run yet, so library consumers can log unconditionally.
	logger := ForService("test-service")
	require.NotNil(t, logger)

	assert.NotPanics(t, func() {
		logger.Debug("debug before init")
		logger.Info("info before init")
	})
}

func TestForService_AfterInit(t *testing.T) {
	Init()

	logger := ForService("test-service")
	require.NotNil(t, logger)
	assert.NotPanics(t, func() {
		logger.Info("info after init")
	})
}
