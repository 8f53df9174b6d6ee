package theme

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/zeus/internal/state"
	"github.com/leapstack-labs/zeus/internal/testutil"
)

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeAuto, "auto": ModeAuto, " Dark ": ModeDark, "LIGHT": ModeLight} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("solarized")
	assert.Error(t, err)
}

func TestToggle(t *testing.T) {
	dark := New(true)
	assert.Equal(t, "dark", dark.Name())
	light := dark.Toggle()
	assert.False(t, light.Dark)
	assert.Equal(t, lightPalette, light.Palette)
	assert.Equal(t, "light", light.Name())
	assert.True(t, light.Toggle().Dark)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	logger := testutil.NewTestLogger(t)
	store := state.NewMemoryStore()
	never := func() bool { t.Fatal("detect must not be called"); return false }

	assert.True(t, Resolve(ctx, ModeDark, store, logger, never).Dark)
	assert.False(t, Resolve(ctx, ModeLight, store, logger, never).Dark)

	assert.True(t, Resolve(ctx, ModeAuto, store, logger, func() bool { return true }).Dark, "detected when nothing is stored")

	require.NoError(t, Save(ctx, store, logger, New(false)))
	assert.False(t, Resolve(ctx, ModeAuto, store, logger, never).Dark, "stored choice wins over detection")

	require.NoError(t, Save(ctx, store, logger, New(true)))
	assert.True(t, Resolve(ctx, ModeAuto, store, logger, never).Dark)
}

func TestStatusStyle(t *testing.T) {
	th := New(true)
	assert.Equal(t, th.Styles.Success.Render("x"), th.StatusStyle("SUCCEEDED").Render("x"))
	assert.Equal(t, th.Styles.Error.Render("x"), th.StatusStyle("FAILED").Render("x"))
	assert.Equal(t, th.Styles.Muted.Render("x"), th.StatusStyle("").Render("x"))
}
