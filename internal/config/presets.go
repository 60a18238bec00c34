package config

import "sort"

// Presets are named animation profiles. Only the animation block is taken
// from a preset; everything else comes from the loaded config.
var Presets = map[string]AnimationConfig{
	"snappy": {
		Kind: "slide", DurationMs: Millis(250), FrameIntervalMs: 16, HardwareIntervalMs: 50,
		TypewriterMsPerColumn: 5, SlideMs: 250, FadeMs: 200, Easing: "ease-out",
		Supersede: "cancel", QueueLimit: 4, FoldCase: true,
	},
	"gentle": {
		Kind: "fade", DurationMs: Millis(1200), FrameIntervalMs: 33, HardwareIntervalMs: 150,
		TypewriterMsPerColumn: 20, SlideMs: 900, FadeMs: 1200, Easing: "ease-in-out",
		Supersede: "queue", QueueLimit: 16, FoldCase: true,
	},
	"teletype": {
		Kind: "typewriter", FrameIntervalMs: 20, HardwareIntervalMs: 100,
		TypewriterMsPerColumn: 40, SlideMs: 600, FadeMs: 400, Easing: "linear",
		Supersede: "queue", QueueLimit: 32, FoldCase: true,
	},
	"static": {
		Kind: "instant", FrameIntervalMs: 33, HardwareIntervalMs: 0,
		TypewriterMsPerColumn: 15, SlideMs: 600, FadeMs: 400, Easing: "linear",
		Supersede: "cancel", QueueLimit: 0, FoldCase: true,
	},
}

func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset replaces the animation block of c. It reports whether the
// preset exists.
func (c *Config) ApplyPreset(name string) bool {
	p, ok := Presets[name]
	if !ok {
		return false
	}
	c.Animation = p
	return true
}
