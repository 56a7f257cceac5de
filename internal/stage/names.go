package stage

import "strings"

// Name identifies one of the fixed pipeline stages.
type Name string

const (
	Download   Name = "download"
	Transcribe Name = "transcribe"
	Translate  Name = "translate"
	Enrich     Name = "enrich"
	Script     Name = "script"
	Synthesize Name = "synthesize"
	Remux      Name = "remux"
	Publish    Name = "publish"
)

// canonicalOrder fixes presentation and dispatch order for every surface that
// walks the pipeline. Readiness never depends on this order; it only resolves
// ties deterministically when several stages become runnable together.
var canonicalOrder = []Name{
	Download,
	Transcribe,
	Translate,
	Enrich,
	Script,
	Synthesize,
	Remux,
	Publish,
}

var nameSet = func() map[Name]struct{} {
	set := make(map[Name]struct{}, len(canonicalOrder))
	for _, name := range canonicalOrder {
		set[name] = struct{}{}
	}
	return set
}()

// dependencies declares, per stage, the stages whose artifacts it consumes.
// Remux is the only fan-in: it needs the original video and the synthesized
// narration track.
var dependencies = map[Name][]Name{
	Download:   nil,
	Transcribe: {Download},
	Translate:  {Transcribe},
	Enrich:     {Translate},
	Script:     {Enrich},
	Synthesize: {Script},
	Remux:      {Download, Synthesize},
	Publish:    {Remux},
}

var dependents = func() map[Name][]Name {
	out := make(map[Name][]Name, len(canonicalOrder))
	for _, name := range canonicalOrder {
		for _, dep := range dependencies[name] {
			out[dep] = append(out[dep], name)
		}
	}
	return out
}()

// All returns the stages in canonical order.
func All() []Name {
	cp := make([]Name, len(canonicalOrder))
	copy(cp, canonicalOrder)
	return cp
}

// Count is the number of pipeline stages.
func Count() int {
	return len(canonicalOrder)
}

// ParseName converts a string into a known stage name.
func ParseName(value string) (Name, bool) {
	normalized := Name(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := nameSet[normalized]
	return normalized, ok
}

// Known reports whether name is one of the fixed stages.
func Known(name Name) bool {
	_, ok := nameSet[name]
	return ok
}

// Dependencies returns the stages name consumes. The returned slice is a copy.
func Dependencies(name Name) []Name {
	deps := dependencies[name]
	if len(deps) == 0 {
		return nil
	}
	cp := make([]Name, len(deps))
	copy(cp, deps)
	return cp
}

// Dependents returns the stages that consume name's artifact, in canonical
// order. The returned slice is a copy.
func Dependents(name Name) []Name {
	deps := dependents[name]
	if len(deps) == 0 {
		return nil
	}
	cp := make([]Name, len(deps))
	copy(cp, deps)
	return cp
}

// Index returns the canonical position of the stage, or -1 for unknown names.
func Index(name Name) int {
	for i, candidate := range canonicalOrder {
		if candidate == name {
			return i
		}
	}
	return -1
}
