package internal_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/botdock/botdock/internal"
)

func TestContainerName(t *testing.T) {
	t.Run("generates unique names for the same display name", func(t *testing.T) {
		names := make(map[string]struct{})
		iterations := 1000

		for range iterations {
			names[internal.ContainerName("My Bot")] = struct{}{}
		}

		require.Len(t, names, iterations, "expected every generated name to be unique")
	})

	t.Run("produces a slug plus random suffix", func(t *testing.T) {
		for range 100 {
			require.Regexp(t, `^botdock-my-bot-[0-9a-f]{8}$`, internal.ContainerName("My Bot"))
		}
	})
}

func TestSlugify(t *testing.T) {
	t.Run("lowercases and hyphenates", func(t *testing.T) {
		require.Equal(t, "my-trading-bot", internal.Slugify("My Trading Bot"))
	})

	t.Run("collapses runs of special characters", func(t *testing.T) {
		require.Equal(t, "a-b-c", internal.Slugify("a__b!!  c"))
	})

	t.Run("drops leading and trailing separators", func(t *testing.T) {
		require.Equal(t, "bot", internal.Slugify("  bot  "))
	})

	t.Run("falls back when nothing survives", func(t *testing.T) {
		require.Equal(t, "bot", internal.Slugify("!!!"))
		require.Equal(t, "bot", internal.Slugify(""))
	})
}
