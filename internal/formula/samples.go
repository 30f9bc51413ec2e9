package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// SampleConfig controls the numeric ranges written into a sampling spec.
type SampleConfig struct {
	Lo float64
	Hi float64
	N  int

	// Ranges overrides [Lo, Hi] per variable.
	Ranges map[string][2]float64
}

// DefaultSampleConfig draws 20 samples per variable from [1, 20].
func DefaultSampleConfig() SampleConfig {
	return SampleConfig{Lo: 1, Hi: 20, N: 20}
}

// Samples is the parsed form of a sampling spec string
// "v1,v2@lo1,lo2:hi1,hi2#N".
type Samples struct {
	Vars []string
	Lo   []float64
	Hi   []float64
	N    int
}

// SamplesError reports a malformed sampling spec.
type SamplesError struct {
	Samples string
	Message string
}

func (e *SamplesError) Error() string {
	return fmt.Sprintf("bad sampling spec %q: %s", e.Samples, e.Message)
}

// BuildSamples lays out the sampling spec for vars, which must already be
// de-duplicated in first-seen order.
func BuildSamples(vars []string, cfg SampleConfig) Samples {
	s := Samples{
		Vars: append([]string(nil), vars...),
		Lo:   make([]float64, len(vars)),
		Hi:   make([]float64, len(vars)),
		N:    cfg.N,
	}
	for i, v := range vars {
		s.Lo[i], s.Hi[i] = cfg.Lo, cfg.Hi
		if r, ok := cfg.Ranges[v]; ok {
			s.Lo[i], s.Hi[i] = r[0], r[1]
		}
	}
	return s
}

// Build returns the sampling spec string for vars.
func Build(vars []string, cfg SampleConfig) string {
	return BuildSamples(vars, cfg).String()
}

func (s Samples) String() string {
	return strings.Join(s.Vars, ",") + "@" + joinFloats(s.Lo) + ":" + joinFloats(s.Hi) + "#" + strconv.Itoa(s.N)
}

// ParseSamples is the inverse of Build.
func ParseSamples(spec string) (Samples, error) {
	bad := func(format string, args ...any) (Samples, error) {
		return Samples{}, &SamplesError{Samples: spec, Message: fmt.Sprintf(format, args...)}
	}

	head, count, ok := strings.Cut(spec, "#")
	if !ok {
		return bad("missing '#' before the sample count")
	}
	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil {
		return bad("sample count %q is not an integer", count)
	}
	if n < 1 {
		return bad("sample count must be positive, got %d", n)
	}

	names, ranges, ok := strings.Cut(head, "@")
	if !ok {
		return bad("missing '@' between variables and ranges")
	}
	lows, highs, ok := strings.Cut(ranges, ":")
	if !ok {
		return bad("missing ':' between lower and upper bounds")
	}

	s := Samples{Vars: splitList(names), N: n}
	if s.Lo, err = parseFloats(lows); err != nil {
		return bad("lower bounds: %v", err)
	}
	if s.Hi, err = parseFloats(highs); err != nil {
		return bad("upper bounds: %v", err)
	}
	if len(s.Lo) != len(s.Vars) || len(s.Hi) != len(s.Vars) {
		return bad("%d variables but %d lower and %d upper bounds", len(s.Vars), len(s.Lo), len(s.Hi))
	}
	for i, v := range s.Vars {
		if v == "" {
			return bad("empty variable name at position %d", i+1)
		}
	}
	return s, nil
}

// ParseRange reads "LO:HI" as used by the sample_range option.
func ParseRange(s string) (lo, hi float64, err error) {
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("range %q: want LO:HI", s)
	}
	if lo, err = strconv.ParseFloat(strings.TrimSpace(a), 64); err != nil {
		return 0, 0, fmt.Errorf("range %q: %w", s, err)
	}
	if hi, err = strconv.ParseFloat(strings.TrimSpace(b), 64); err != nil {
		return 0, 0, fmt.Errorf("range %q: %w", s, err)
	}
	if hi < lo {
		return 0, 0, fmt.Errorf("range %q: upper bound below lower bound", s)
	}
	return lo, hi, nil
}

func joinFloats(fs []float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseFloats(s string) ([]float64, error) {
	parts := splitList(s)
	out := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", p)
		}
		out[i] = f
	}
	return out, nil
}
