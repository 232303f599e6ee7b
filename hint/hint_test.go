package hint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/workgrid/model/strategy"
)

func TestFromConfig(t *testing.T) {
	h, err := FromConfig(nil)
	require.NoError(t, err)
	assert.Nil(t, h)

	axis := 1
	h, err = FromConfig(&Config{Strategy: "dynamic", SplitAxis: &axis})
	require.NoError(t, err)
	require.NotNil(t, h.Strategy)
	assert.Equal(t, strategy.Dynamic, *h.Strategy)
	assert.Equal(t, 1, *h.SplitAxis)
	assert.Nil(t, h.Granularity)

	_, err = FromConfig(&Config{Strategy: "round-robin"})
	assert.Error(t, err)
}

func TestWithHint_Merges(t *testing.T) {
	dynamic := strategy.Dynamic
	static := strategy.Static
	granularity := 8

	ctx := WithHint(context.Background(), &Hint{Strategy: &dynamic, Granularity: &granularity})
	ctx = WithHint(ctx, &Hint{Strategy: &static})

	h := FromContext(ctx)
	require.NotNil(t, h)
	assert.Equal(t, strategy.Static, *h.Strategy)
	assert.Equal(t, 8, *h.Granularity)
	assert.Nil(t, FromContext(context.Background()))
}
