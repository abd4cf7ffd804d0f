package charts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/herald/internal/analytics"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestBarProducesPNG(t *testing.T) {
	png, err := Bar("Top Pages", []string{"/home", "/about"}, []float64{120, 45})
	require.NoError(t, err)
	require.Greater(t, len(png), 4)
	assert.Equal(t, pngMagic, png[:4])
}

func TestBarLengthMismatch(t *testing.T) {
	_, err := Bar("bad", []string{"/home"}, []float64{1, 2})
	require.Error(t, err)
}

func TestRenderSections(t *testing.T) {
	rows := []analytics.Row{
		{Family: analytics.FamilySources, Label: "google", Value: 15},
		{Family: analytics.FamilyCountries, Label: "United Kingdom", Value: 70},
		{Family: analytics.FamilyCountries, Label: "Ireland", Value: 30},
	}

	images, err := RenderSections(rows)
	require.NoError(t, err)
	require.Len(t, images, 2)

	// Presentation order, not input order.
	assert.Equal(t, "countries.png", images[0].Name)
	assert.Equal(t, "Sessions by Country", images[0].Title)
	assert.Equal(t, "sources.png", images[1].Name)

	for _, img := range images {
		assert.Equal(t, pngMagic, img.PNG[:4])
	}
}

func TestRenderSectionsSkipsPageviews(t *testing.T) {
	rows := []analytics.Row{
		{Family: analytics.FamilyPageviews, Label: "/home", Value: 120},
		{Family: analytics.FamilyPageviews, Label: "/about", Value: 45},
		{Family: analytics.FamilySources, Label: "direct", Value: 10},
	}

	images, err := RenderSections(rows)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "sources.png", images[0].Name)
}

func TestRenderSectionsEmpty(t *testing.T) {
	images, err := RenderSections(nil)
	require.NoError(t, err)
	assert.Empty(t, images)
}
