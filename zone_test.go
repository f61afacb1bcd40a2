package rxmysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectingLogger struct {
	lines []string
}

func (l *collectingLogger) Print(v ...interface{}) {
	for _, x := range v {
		if s, ok := x.(string); ok {
			l.lines = append(l.lines, s)
		}
	}
}

// TestResolveServerZone_SystemRightUTC covers spec.md §8 scenario 4.
func TestResolveServerZone_SystemRightUTC(t *testing.T) {
	logger := &collectingLogger{}
	zone := ResolveServerZone("SYSTEM", "right/UTC", logger)
	assert.Equal(t, "UTC", zone.ID)
	assert.Empty(t, logger.lines)

	_, fixed := zone.Zone.FixedOffset()
	assert.False(t, fixed)
}

func TestResolveServerZone_ROCIsFixedOffset(t *testing.T) {
	logger := &collectingLogger{}
	zone := ResolveServerZone("ROC", "ROC", logger)
	assert.Equal(t, "+08:00", zone.ID)

	seconds, fixed := zone.Zone.FixedOffset()
	require.True(t, fixed)
	assert.Equal(t, 8*3600, seconds)
}

func TestResolveServerZone_SpecialNameRemap(t *testing.T) {
	logger := &collectingLogger{}
	zone := ResolveServerZone("America/Nuuk", "", logger)
	assert.Equal(t, "America/Godthab", zone.ID)
}

func TestResolveServerZone_FixedOffsetLiteral(t *testing.T) {
	logger := &collectingLogger{}
	zone := ResolveServerZone("-05:30", "", logger)
	assert.Equal(t, "-05:30", zone.ID)
	seconds, fixed := zone.Zone.FixedOffset()
	require.True(t, fixed)
	assert.Equal(t, -(5*3600 + 30*60), seconds)
}

func TestResolveServerZone_UnresolvableFallsBackWithWarning(t *testing.T) {
	logger := &collectingLogger{}
	zone := ResolveServerZone("Not/AZone", "", logger)
	require.NotEmpty(t, logger.lines)
	assert.Equal(t, time.Local.String(), zone.ID)
}
