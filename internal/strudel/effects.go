package strudel

import (
	"fmt"
	"strings"

	"github.com/dygy/sonigraph/internal/analysis"
	"github.com/dygy/sonigraph/internal/composition"
)

// FilterSettings defines high-pass and low-pass filter parameters
type FilterSettings struct {
	HPF int // Hz, 0 = off
	LPF int // Hz, 0 = off
}

// ReverbSettings defines room reverb parameters
type ReverbSettings struct {
	Room float64 // 0-1
	Size float64 // 0-1
}

// DelaySettings defines delay effect parameters
type DelaySettings struct {
	Mix      float64
	Time     float64 // fraction of a cycle
	Feedback float64
}

// EnvelopeSettings defines ADSR envelope parameters
type EnvelopeSettings struct {
	Attack  float64 // seconds
	Decay   float64
	Sustain float64 // 0-1
	Release float64
}

// VoiceEffects contains the effect settings for one instrument
type VoiceEffects struct {
	Filter   FilterSettings
	Reverb   ReverbSettings
	Delay    DelaySettings
	Envelope EnvelopeSettings
}

var voiceEffectPresets = map[string]VoiceEffects{
	composition.Lead: {
		Filter:   FilterSettings{HPF: 200},
		Reverb:   ReverbSettings{Room: 0.3, Size: 0.5},
		Envelope: EnvelopeSettings{Attack: 0.01, Decay: 0.2, Sustain: 0.7, Release: 0.3},
	},
	composition.Keys: {
		Filter:   FilterSettings{HPF: 150, LPF: 6000},
		Reverb:   ReverbSettings{Room: 0.4, Size: 0.6},
		Delay:    DelaySettings{Mix: 0.2, Time: 0.375, Feedback: 0.3},
		Envelope: EnvelopeSettings{Attack: 0.02, Decay: 0.3, Sustain: 0.6, Release: 0.4},
	},
	composition.Bass: {
		Filter:   FilterSettings{HPF: 40, LPF: 800},
		Reverb:   ReverbSettings{Room: 0.15, Size: 0.3},
		Envelope: EnvelopeSettings{Attack: 0.005, Decay: 0.1, Sustain: 0.8, Release: 0.1},
	},
	composition.Pad: {
		Filter:   FilterSettings{LPF: 3000},
		Reverb:   ReverbSettings{Room: 0.7, Size: 0.9},
		Envelope: EnvelopeSettings{Attack: 0.8, Decay: 0.5, Sustain: 0.8, Release: 1.5},
	},
}

// reverbAmount scales reverb per content type
var reverbAmount = map[analysis.ContentType]float64{
	analysis.ContentTechnical: 0.6,
	analysis.ContentCreative:  1.4,
	analysis.ContentAcademic:  0.8,
	analysis.ContentJournal:   1.2,
	analysis.ContentMeeting:   0.7,
	analysis.ContentList:      0.5,
	analysis.ContentReference: 0.8,
}

// GetVoiceEffects returns the effects for an instrument adjusted to the content type
func GetVoiceEffects(instrument string, ct analysis.ContentType) VoiceEffects {
	fx, ok := voiceEffectPresets[instrument]
	if !ok {
		fx = voiceEffectPresets[composition.Lead]
	}
	amount, ok := reverbAmount[ct]
	if !ok {
		amount = 1
	}
	fx.Reverb.Room = min(fx.Reverb.Room*amount, 1)
	return fx
}

// BuildEffectChain renders the effects as chained Strudel calls
func BuildEffectChain(fx VoiceEffects) string {
	var parts []string

	if fx.Filter.HPF > 0 {
		parts = append(parts, fmt.Sprintf(".hpf(%d)", fx.Filter.HPF))
	}
	if fx.Filter.LPF > 0 && fx.Filter.LPF < 20000 {
		parts = append(parts, fmt.Sprintf(".lpf(%d)", fx.Filter.LPF))
	}
	if fx.Envelope.Attack > 0 || fx.Envelope.Release > 0 {
		parts = append(parts, fmt.Sprintf(".attack(%.3f).decay(%.2f).sustain(%.2f).release(%.2f)",
			fx.Envelope.Attack, fx.Envelope.Decay, fx.Envelope.Sustain, fx.Envelope.Release))
	}
	if fx.Delay.Mix > 0 {
		parts = append(parts, fmt.Sprintf(".delay(%.2f).delaytime(%.3f).delayfeedback(%.2f)",
			fx.Delay.Mix, fx.Delay.Time, fx.Delay.Feedback))
	}
	if fx.Reverb.Room > 0 {
		parts = append(parts, fmt.Sprintf(".room(%.2f).size(%.2f)", fx.Reverb.Room, fx.Reverb.Size))
	}

	return strings.Join(parts, "")
}

// FormatGain formats a gain value for Strudel output
func FormatGain(gain float64) string {
	if gain == 1.0 {
		return ""
	}
	return fmt.Sprintf(".gain(%.2f)", gain)
}

// VelocityToGain converts normalized velocity (0-1) to gain value
func VelocityToGain(velocity float64) float64 {
	// 0.5-1.2 keeps quiet voices audible
	return 0.5 + (velocity * 0.7)
}

// PanToStrudel maps -1..1 onto Strudel's 0..1 pan range
func PanToStrudel(pan float64) float64 {
	return (pan + 1) / 2
}
