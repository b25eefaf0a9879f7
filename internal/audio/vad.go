package audio

// VAD state names returned by VAD.Process, per the per-frame RMS state
// machine: speech confirms after speech_frames_needed consecutive loud
// frames; silence_after_speech fires once silence_frames_needed consecutive
// quiet frames follow confirmed speech.
const (
	StateSpeech             = "speech"
	StateSilence            = "silence"
	StateSilenceAfterSpeech = "silence_after_speech"
)

const (
	speechThreshold     = 2500.0
	silenceThreshold    = 2000.0
	speechFramesNeeded  = 8
	silenceFramesNeeded = 10
)

// VAD is a raw-RMS voice activity state machine, one instance per session.
type VAD struct {
	silentCount int
	loudCount   int
	hasSpeech   bool
}

// NewVAD creates a fresh VAD with no speech confirmed and zeroed counters.
func NewVAD() *VAD {
	return &VAD{}
}

// Process classifies one frame's RMS energy and advances the state machine.
func (v *VAD) Process(rms float64) string {
	switch {
	case rms > speechThreshold:
		v.silentCount = 0
		v.loudCount++
		if v.loudCount >= speechFramesNeeded {
			v.hasSpeech = true
		}
		return StateSpeech

	case rms > silenceThreshold:
		v.silentCount = 0
		if v.hasSpeech {
			return StateSpeech
		}
		return StateSilence

	default:
		v.silentCount++
		if v.hasSpeech && v.silentCount >= silenceFramesNeeded {
			return StateSilenceAfterSpeech
		}
		return StateSilence
	}
}

// HasSpeech reports whether speech has been confirmed in the current utterance.
func (v *VAD) HasSpeech() bool { return v.hasSpeech }

// Reset clears all counters and confirmed-speech state, for reuse at the
// start of the next utterance.
func (v *VAD) Reset() {
	v.silentCount = 0
	v.loudCount = 0
	v.hasSpeech = false
}
