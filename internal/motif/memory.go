package motif

// schedule is the transform used for each usage count; later uses augment
var schedule = []Transform{Repeat, Transpose, Invert, Fragment}

// Usage is the bookkeeping kept per motif
type Usage struct {
	Count         int
	LastTransform Transform
}

// Memory tracks motif usage for one composition session. The zero value is
// ready to use. It is not safe for concurrent use.
type Memory struct {
	usage         map[string]*Usage
	CurrentPhrase int
}

// NewMemory creates an empty session memory
func NewMemory() *Memory {
	return &Memory{usage: make(map[string]*Usage)}
}

// Usage returns the bookkeeping for a motif id
func (m *Memory) Usage(id string) Usage {
	if u, ok := m.usage[id]; ok {
		return *u
	}
	return Usage{}
}

// Next picks the transform for the motif's next appearance and records it.
// A transform that would leave the motif unchanged or out of range falls
// back to alternating repeat and transpose.
func (m *Memory) Next(mo Motif) Transform {
	if m.usage == nil {
		m.usage = make(map[string]*Usage)
	}
	u, ok := m.usage[mo.ID]
	if !ok {
		u = &Usage{}
		m.usage[mo.ID] = u
	}

	t := Augment
	if u.Count < len(schedule) {
		t = schedule[u.Count]
	}
	if !applies(mo, t) {
		t = Repeat
		if u.Count%2 == 1 {
			t = Transpose
		}
	}

	u.Count++
	u.LastTransform = t
	return t
}

// Restate develops the motif with its next scheduled transform
func (m *Memory) Restate(mo Motif, basePitch int) Developed {
	return Develop(mo, m.Next(mo), basePitch, 0)
}

func applies(mo Motif, t Transform) bool {
	switch t {
	case Fragment:
		return len(mo.PitchPattern) > fragmentLength
	case Augment:
		for _, r := range mo.RhythmPattern {
			if r*2 > maxDuration {
				return false
			}
		}
	}
	return true
}
