package midi

// MIDI message types
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
	CC      uint8 = 0xB0
)

// Event is a note event placed on an absolute tick grid
type Event struct {
	Tick     uint32
	Type     uint8 // NoteOn, NoteOff
	Channel  uint8 // 0-15
	Note     uint8
	Velocity uint8
}

// byTick orders events by tick, note-offs before note-ons on the same tick
// so a retriggered note is released before it sounds again.
type byTick []Event

func (e byTick) Len() int      { return len(e) }
func (e byTick) Swap(i, j int) { e[i], e[j] = e[j], e[i] }
func (e byTick) Less(i, j int) bool {
	if e[i].Tick != e[j].Tick {
		return e[i].Tick < e[j].Tick
	}
	return e[i].Type == NoteOff && e[j].Type != NoteOff
}
