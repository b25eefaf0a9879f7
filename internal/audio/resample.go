package audio

import "math"

// ReduceRatio reduces dstRate/srcRate to lowest terms via GCD — e.g. the
// Piper-to-device TTS path resamples 22050 -> 24000, which reduces to
// up=160, down=147.
func ReduceRatio(dstRate, srcRate int) (up, down int) {
	g := gcd(dstRate, srcRate)
	return dstRate / g, srcRate / g
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Resample performs rational-ratio resampling of int16 PCM via a windowed-sinc
// polyphase low-pass filter — upsample by `up`, low-pass at the tighter of
// the two Nyquist limits, downsample by `down`. If up == down the input is
// returned unchanged.
func Resample(samples []int16, up, down int) []int16 {
	if up == down {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}
	taps, half := designLowpass(up, down)
	return polyphaseResample(samples, up, down, taps, half)
}

// tapsPerPhase controls filter length (and therefore stopband attenuation);
// 16 taps per polyphase branch is a reasonable quality/cost tradeoff for
// speech-band audio.
const tapsPerPhase = 16

func designLowpass(up, down int) (taps []float64, half int) {
	maxUD := up
	if down > maxUD {
		maxUD = down
	}
	half = tapsPerPhase * maxUD
	numTaps := 2*half + 1
	cutoff := 1.0 / float64(maxUD)

	taps = make([]float64, numTaps)
	for i := range taps {
		n := i - half
		var sinc float64
		if n == 0 {
			sinc = cutoff
		} else {
			x := math.Pi * cutoff * float64(n)
			sinc = cutoff * math.Sin(x) / x
		}
		w := 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(numTaps-1))
		taps[i] = sinc * w
	}

	var sum float64
	for _, t := range taps {
		sum += t
	}
	gain := float64(up) / sum
	for i := range taps {
		taps[i] *= gain
	}
	return taps, half
}

func polyphaseResample(samples []int16, up, down int, taps []float64, half int) []int16 {
	n := len(samples)
	if n == 0 {
		return nil
	}
	outLen := (n*up)/down + 1
	out := make([]int16, 0, outLen)

	for m := 0; ; m++ {
		t := m * down
		nLo := floorDiv(t-half, up)
		nHi := ceilDiv(t+half, up)
		if t >= n*up {
			break
		}
		var acc float64
		for ni := nLo; ni <= nHi; ni++ {
			if ni < 0 || ni >= n {
				continue
			}
			k := t - ni*up
			tapIdx := k + half
			if tapIdx < 0 || tapIdx >= len(taps) {
				continue
			}
			acc += float64(samples[ni]) * taps[tapIdx]
		}
		out = append(out, clampInt16(acc))
	}
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) == (b < 0)) {
		q++
	}
	return q
}

func clampInt16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// RobotVoiceProfile names one voice-shaping profile.
type RobotVoiceProfile struct {
	Enabled bool
	ModHz   float64
	Mix     float64
	LPHz    float64
}

var robotVoiceProfiles = map[string]RobotVoiceProfile{
	"normal":     {Enabled: false},
	"robot":      {Enabled: true, ModHz: 95.0, Mix: 0.72, LPHz: 3000.0},
	"robot_soft": {Enabled: true, ModHz: 75.0, Mix: 0.55, LPHz: 3600.0},
	"robot_deep": {Enabled: true, ModHz: 58.0, Mix: 0.8, LPHz: 2500.0},
}

// ResolveRobotVoiceProfile looks up a named profile, falling back to
// "normal" (disabled) for unknown names.
func ResolveRobotVoiceProfile(name string) (resolved string, profile RobotVoiceProfile) {
	if p, ok := robotVoiceProfiles[name]; ok {
		return name, p
	}
	return "normal", robotVoiceProfiles["normal"]
}

// RobotVoice applies ring-modulation voice shaping to a stream of PCM
// chunks. Carrier phase and low-pass state persist across chunks within a
// single synthesis call and must be reset (via NewRobotVoice) at the start
// of each new synthesize(text).
type RobotVoice struct {
	profile    RobotVoiceProfile
	sampleRate int
	phase      float64
	lpPrev     float64
}

// NewRobotVoice creates shaping state for one synthesize(text) call.
func NewRobotVoice(profile RobotVoiceProfile, sampleRate int) *RobotVoice {
	return &RobotVoice{profile: profile, sampleRate: sampleRate}
}

// Process applies the configured profile to one PCM chunk (int16 LE bytes),
// carrying carrier phase and low-pass state forward to the next call.
func (r *RobotVoice) Process(pcm []byte) []byte {
	if !r.profile.Enabled || len(pcm) == 0 {
		return pcm
	}

	samples := BytesToInt16(pcm)
	out := make([]int16, len(samples))

	phaseInc := 2.0 * math.Pi * r.profile.ModHz / float64(r.sampleRate)
	dt := 1.0 / float64(r.sampleRate)
	lpHz := r.profile.LPHz
	if lpHz < 10.0 {
		lpHz = 10.0
	}
	rc := 1.0 / (2.0 * math.Pi * lpHz)
	alpha := dt / (rc + dt)

	phase := r.phase
	prev := r.lpPrev
	mix := r.profile.Mix

	for i, s := range samples {
		dry := float64(s) / 32768.0

		carrier := 1.0
		if math.Sin(phase) < 0 {
			carrier = -1.0
		}
		wet := dry * carrier

		prev = prev + alpha*(wet-prev)

		blended := (1.0-mix)*dry + mix*prev
		out[i] = clampInt16(blended * 32768.0)

		phase += phaseInc
	}

	r.phase = math.Mod(phase, 2.0*math.Pi)
	r.lpPrev = prev

	return Int16ToBytes(out)
}
