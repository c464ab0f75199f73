package player

// CueEmitter publishes the short audio tones that mark countdown ticks. It is
// strictly best-effort: a missing or slow audio path never delays the clock.
type CueEmitter struct {
	sink EventSink
}

func NewCueEmitter(sink EventSink) *CueEmitter {
	if sink == nil {
		sink = NopSink{}
	}
	return &CueEmitter{sink: sink}
}

func (c *CueEmitter) Emit(kind CueKind) {
	c.sink.Publish(Event{Kind: EventCue, Cue: kind})
}
