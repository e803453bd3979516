// Package asset emits the declarative Lua asset files that tell the
// visualization platform how to load and render generated speck and label
// files. The shapes here track what the platform's RenderableStars,
// RenderablePointCloud and scene-graph APIs expect.
package asset

import (
	"fmt"
	"io"
	"text/template"

	"speckgen/internal/points"
)

// Channel is the multiplier/gamma/scale triple for one star render
// channel.
type Channel struct {
	Multiplier float64
	Gamma      float64
	Scale      float64
}

// Resource names a synchronized remote resource bundle.
type Resource struct {
	Name       string
	Identifier string
	Version    int
}

// Stars describes a RenderableStars asset referencing a generated speck
// file.
type Stars struct {
	Identifier        string
	SpeckFile         string
	Centroid          points.Vec3
	MagnitudeExponent float64
	Core              Channel
	Glare             Channel
	SunSpeck          Resource
	Colormaps         Resource
	Textures          Resource
	GUIPath           string
}

// Labels describes a RenderablePointCloud asset that renders only the
// labels from a generated label file.
type Labels struct {
	Identifier string
	LabelFile  string
	Centroid   points.Vec3
	Enabled    bool
	Unit       string
	Size       float64
	MinSize    float64
	MaxSize    float64
	GUIPath    string
}

// Anchor describes a camera-anchor node at a cloud's centroid. FadeTarget
// is an optional name reference to another asset's renderable; it is
// emitted verbatim and never validated here.
type Anchor struct {
	Identifier string
	Base       string      // dataset base name the identifier derives from
	Centroid   points.Vec3 // parsecs; converted to meters in the asset
	FadeTarget string
	GUIPath    string
}

// FadeVar is the Lua variable and action identifier for the anchor's fade
// action. It derives from the base name, not the anchor identifier, so a
// dataset "cats" fading "Mammals" registers "cats_fade_Mammals".
func (a Anchor) FadeVar() string {
	return fmt.Sprintf("%s_fade_%s", a.Base, a.FadeTarget)
}

var starsTmpl = template.Must(template.New("stars").Parse(`local sunspeck = asset.resource({
  Name = "{{.SunSpeck.Name}}",
  Type = "HttpSynchronization",
  Identifier = "{{.SunSpeck.Identifier}}",
  Version = {{.SunSpeck.Version}}
})

local colormaps = asset.resource({
  Name = "{{.Colormaps.Name}}",
  Type = "HttpSynchronization",
  Identifier = "{{.Colormaps.Identifier}}",
  Version = {{.Colormaps.Version}}
})

local textures = asset.resource({
  Name = "{{.Textures.Name}}",
  Type = "HttpSynchronization",
  Identifier = "{{.Textures.Identifier}}",
  Version = {{.Textures.Version}}
})

local {{.Identifier}}_speck = asset.resource("{{.SpeckFile}}")

local {{.Identifier}} = {
  Identifier = "{{.Identifier}}",
  Transform = {
    Translation = {
      Type = "StaticTranslation",
      Position = {
        {{.Centroid.X}},
        {{.Centroid.Y}},
        {{.Centroid.Z}},
      }
    },
   },
  Renderable = {
    UseCaching = false,
    Type = "RenderableStars",
    File = {{.Identifier}}_speck,
    Core = {
      Texture = textures .. "glare.png",
      Multiplier = {{.Core.Multiplier}},
      Gamma = {{.Core.Gamma}},
      Scale = {{.Core.Scale}}
    },
    Glare = {
      Texture = textures .. "halo.png",
      Multiplier = {{.Glare.Multiplier}},
      Gamma = {{.Glare.Gamma}},
      Scale = {{.Glare.Scale}}
    },
    MagnitudeExponent = {{.MagnitudeExponent}},
    ColorMap = colormaps .. "colorbv.cmap",
    OtherDataColorMap = colormaps .. "viridis.cmap",
    SizeComposition = "Distance Modulus",
    DataMapping = {
      Bv = "colorb_v",
      Luminance = "lum",
      AbsoluteMagnitude = "absmag",
      ApparentMagnitude = "appmag",
      Vx = "vx",
      Vy = "vy",
      Vz = "vz",
      Speed = "speed"
    },
    DimInAtmosphere = true
  },
  GUI = {
    Name = "{{.Identifier}}",
    Path = "{{.GUIPath}}",
  }
}
asset.onInitialize(function()
  openspace.addSceneGraphNode({{.Identifier}})
end)
asset.onDeinitialize(function()
  openspace.removeSceneGraphNode({{.Identifier}})
end)
asset.export({{.Identifier}})
`))

var labelsTmpl = template.Must(template.New("labels").Parse(`local {{.Identifier}} = {
    Identifier = "{{.Identifier}}",
  Transform = {
    Translation = {
      Type = "StaticTranslation",
      Position = {
        {{.Centroid.X}},
        {{.Centroid.Y}},
        {{.Centroid.Z}},
      }
     },
    },
    Renderable = {
        Type = "RenderablePointCloud",
        Labels = {
            File = asset.resource("{{.LabelFile}}"),
            Enabled = {{.Enabled}},
            Unit = "{{.Unit}}",
            Size = {{.Size}},
            MinMaxSize = { {{.MinSize}},{{.MaxSize}} }
        }
    },
    GUI = {
        Name = "{{.Identifier}}",
        Path = "{{.GUIPath}}"
    }
}
asset.onInitialize(function()
    openspace.addSceneGraphNode({{.Identifier}});
end)
asset.onDeinitialize(function()
    openspace.removeSceneGraphNode({{.Identifier}});
end)
asset.export({{.Identifier}})
`))

var anchorTmpl = template.Must(template.New("anchor").Parse(`local meters_to_pc = 3.0856775814913673e+16

{{if .FadeTarget -}}
local {{.FadeVar}} = {
    Identifier = "{{.FadeVar}}",
    Name = "{{.FadeVar}}",
    Command = [[
      openspace.printInfo("Node: " .. args.Node)
      openspace.printInfo("Transition: " .. args.Transition)

      if args.Transition == "Approaching" then
        openspace.setPropertyValueSingle("Scene.{{.FadeTarget}}.Renderable.Fade", 0.0, 1.0)
      elseif args.Transition == "Exiting" then
        openspace.setPropertyValueSingle("Scene.{{.FadeTarget}}.Renderable.Fade", 1.0, 1.0)
      end
    ]],
    IsLocal = true
}
{{end -}}
local {{.Identifier}} = {
    Identifier = "{{.Identifier}}",
    Transform = {
        Translation = {
            Type = "StaticTranslation",
            Position = {
                {{.Centroid.X}} * meters_to_pc,
                {{.Centroid.Y}} * meters_to_pc,
                {{.Centroid.Z}} * meters_to_pc
            }
        },
        Scale = {
            Type = "StaticScale",
            Scale = 1
        }
    },
    Renderable = {
        Type = "RenderableCartesianAxes",
    },
    InteractionSphere = 1 * meters_to_pc,
    ApproachFactor = 1000.0,
    ReachFactor = 5.0,
{{if .FadeTarget}}
    OnApproach = { "{{.FadeVar}}" },
    OnReach = { "{{.FadeVar}}" },
    OnRecede = { "{{.FadeVar}}" },
    OnExit = { "{{.FadeVar}}" },
{{end}}
    GUI = {
        Name = "{{.Identifier}}",
        Path = "{{.GUIPath}}"
    }
}
asset.onInitialize(function()
{{- if .FadeTarget}}
  openspace.action.registerAction({{.FadeVar}});
{{- end}}
  openspace.addSceneGraphNode({{.Identifier}});
end)
asset.onDeinitialize(function()
{{- if .FadeTarget}}
  openspace.action.unregisterAction({{.FadeVar}});
{{- end}}
  openspace.removeSceneGraphNode({{.Identifier}});
end)
asset.export({{.Identifier}})
`))

// WriteStars renders the stars asset descriptor.
func WriteStars(w io.Writer, a Stars) error {
	if err := starsTmpl.Execute(w, a); err != nil {
		return fmt.Errorf("render stars asset: %w", err)
	}
	return nil
}

// WriteLabels renders the labels asset descriptor.
func WriteLabels(w io.Writer, a Labels) error {
	if err := labelsTmpl.Execute(w, a); err != nil {
		return fmt.Errorf("render labels asset: %w", err)
	}
	return nil
}

// WriteAnchor renders the anchor asset descriptor.
func WriteAnchor(w io.Writer, a Anchor) error {
	if err := anchorTmpl.Execute(w, a); err != nil {
		return fmt.Errorf("render anchor asset: %w", err)
	}
	return nil
}
