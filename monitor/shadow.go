package monitor

import "github.com/Hyphaeic/radixrunner-wasm/codec"

// ShadowConfig describes a shadow counter. A shadow counter counts wraps of
// one field, advancing by one every Divisor wraps.
type ShadowConfig struct {
	Name    string `yaml:"name"`
	Field   int    `yaml:"field"`
	Divisor uint64 `yaml:"divisor"`
}

// ShadowValue is a snapshot of a shadow counter.
type ShadowValue struct {
	ShadowConfig
	Pending uint64
	Count   uint64
}

type shadow struct {
	cfg     ShadowConfig
	pending uint64
	count   uint64
}

func (s *shadow) observe(carries [codec.NumFields]bool) {
	if !carries[s.cfg.Field] {
		return
	}

	s.pending++
	if s.pending >= s.cfg.Divisor {
		s.pending = 0
		s.count++
	}
}

func (s *shadow) value() ShadowValue {
	return ShadowValue{
		ShadowConfig: s.cfg,
		Pending:      s.pending,
		Count:        s.count,
	}
}
