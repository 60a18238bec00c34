package animate

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects how a session moves from source to target.
type Kind int

const (
	Instant Kind = iota
	Slide
	Fade
	Typewriter
)

var kindNames = map[Kind]string{
	Instant:    "instant",
	Slide:      "slide",
	Fade:       "fade",
	Typewriter: "typewriter",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Kinds lists every animation kind.
func Kinds() []Kind { return []Kind{Instant, Slide, Fade, Typewriter} }

// ParseKind accepts the lower-case kind names.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return k, nil
		}
	}
	return 0, &ParameterError{Field: "kind", Reason: fmt.Sprintf("unknown animation kind %q", name)}
}

// Easing maps linear time progress onto animation progress. Easings are
// monotonic with f(0) = 0 and f(1) = 1.
type Easing func(t float64) float64

func Linear(t float64) float64 { return t }

// EaseInOut is smoothstep.
func EaseInOut(t float64) float64 { return t * t * (3 - 2*t) }

// EaseOut is a cubic deceleration.
func EaseOut(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

var easings = map[string]Easing{
	"linear":      Linear,
	"ease-in-out": EaseInOut,
	"ease-out":    EaseOut,
}

// EasingNames lists the names accepted by ParseEasing.
func EasingNames() []string { return []string{"linear", "ease-in-out", "ease-out"} }

// ParseEasing resolves an easing by name; the empty name is linear.
func ParseEasing(name string) (Easing, error) {
	if name == "" {
		return Linear, nil
	}
	if e, ok := easings[strings.ToLower(name)]; ok {
		return e, nil
	}
	return nil, &ParameterError{Field: "easing", Reason: fmt.Sprintf("unknown easing %q", name)}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
