package asset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speckgen/internal/points"
)

func testStars() Stars {
	return Stars{
		Identifier:        "cats",
		SpeckFile:         "cats.speck",
		Centroid:          points.Vec3{X: 1.5, Y: 2, Z: -3},
		MagnitudeExponent: 6.2,
		Core:              Channel{Multiplier: 2, Gamma: 1.5, Scale: 0.4},
		Glare:             Channel{Multiplier: 3, Gamma: 2.5, Scale: 0.6},
		SunSpeck:          Resource{Name: "Stars Speck Files", Identifier: "digitaluniverse_sunstar_speck", Version: 1},
		Colormaps:         Resource{Name: "Stars Color Table", Identifier: "stars_colormap", Version: 3},
		Textures:          Resource{Name: "Stars Textures", Identifier: "stars_textures", Version: 1},
		GUIPath:           "/Stars",
	}
}

func TestWriteStars(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteStars(&sb, testStars()))
	out := sb.String()

	assert.Contains(t, out, `local cats_speck = asset.resource("cats.speck")`)
	assert.Contains(t, out, `Identifier = "cats"`)
	assert.Contains(t, out, `Type = "RenderableStars"`)
	assert.Contains(t, out, "MagnitudeExponent = 6.2,")
	assert.Contains(t, out, "Multiplier = 2,")
	assert.Contains(t, out, `Identifier = "stars_colormap"`)
	assert.Contains(t, out, "1.5,")
	assert.Contains(t, out, "openspace.addSceneGraphNode(cats)")
	assert.Contains(t, out, "asset.export(cats)")
	assert.Contains(t, out, `SizeComposition = "Distance Modulus"`)
	assert.Contains(t, out, `AbsoluteMagnitude = "absmag"`)
}

func TestWriteLabels(t *testing.T) {
	l := Labels{
		Identifier: "cats_species_labels",
		LabelFile:  "cats_species.label",
		Centroid:   points.Vec3{X: 0, Y: 0, Z: 0},
		Enabled:    true,
		Unit:       "pc",
		Size:       7.5,
		MinSize:    1,
		MaxSize:    30,
		GUIPath:    "/Labels",
	}

	var sb strings.Builder
	require.NoError(t, WriteLabels(&sb, l))
	out := sb.String()

	assert.Contains(t, out, `File = asset.resource("cats_species.label")`)
	assert.Contains(t, out, "Enabled = true,")
	assert.Contains(t, out, `Unit = "pc"`)
	assert.Contains(t, out, "Size = 7.5,")
	assert.Contains(t, out, "MinMaxSize = { 1,30 }")
	assert.Contains(t, out, `Type = "RenderablePointCloud"`)

	l.Enabled = false
	sb.Reset()
	require.NoError(t, WriteLabels(&sb, l))
	assert.Contains(t, sb.String(), "Enabled = false,")
}

func TestWriteAnchor_WithFadeTarget(t *testing.T) {
	a := Anchor{
		Identifier: "cats_anchor",
		Base:       "cats",
		Centroid:   points.Vec3{X: 1, Y: 2, Z: 3},
		FadeTarget: "Mammals_stars",
		GUIPath:    "/Anchors",
	}
	assert.Equal(t, "cats_fade_Mammals_stars", a.FadeVar())

	var sb strings.Builder
	require.NoError(t, WriteAnchor(&sb, a))
	out := sb.String()

	assert.Contains(t, out, "local meters_to_pc = 3.0856775814913673e+16")
	assert.Contains(t, out, "local cats_fade_Mammals_stars = {")
	assert.Contains(t, out, `openspace.setPropertyValueSingle("Scene.Mammals_stars.Renderable.Fade", 0.0, 1.0)`)
	assert.Contains(t, out, `OnApproach = { "cats_fade_Mammals_stars" }`)
	assert.Contains(t, out, "openspace.action.registerAction(cats_fade_Mammals_stars);")
	assert.Contains(t, out, "openspace.action.unregisterAction(cats_fade_Mammals_stars);")
	assert.Contains(t, out, "1 * meters_to_pc,")
	assert.Contains(t, out, `Type = "RenderableCartesianAxes"`)
}

func TestWriteAnchor_WithoutFadeTarget(t *testing.T) {
	a := Anchor{
		Identifier: "cats_anchor",
		Centroid:   points.Vec3{X: 1, Y: 2, Z: 3},
		GUIPath:    "/Anchors",
	}

	var sb strings.Builder
	require.NoError(t, WriteAnchor(&sb, a))
	out := sb.String()

	assert.NotContains(t, out, "fade")
	assert.NotContains(t, out, "OnApproach")
	assert.NotContains(t, out, "registerAction")
	assert.Contains(t, out, "openspace.addSceneGraphNode(cats_anchor);")
}
