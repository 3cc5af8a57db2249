package ai

import (
	"math"
	"math/rand"
)

// Device selects the typing speed constant
type Device string

const (
	DeviceMobile  Device = "mobile"
	DeviceDesktop Device = "desktop"
)

// Reaction delay constants, in seconds
const (
	minGap        = 0.20
	thinkBase     = 0.60
	readPerChar   = 0.030
	typeMobile    = 0.332
	typeDesktop   = 0.300
	minDelay      = 0.5
	maxDelay      = 90.0
	DefaultJitter = 0.25
)

// DelayModel estimates how long a human would take to read a message and type a reply
type DelayModel struct {
	Device      Device
	SpeedUp     float64
	JitterSigma float64
	// Norm draws from the standard normal distribution; rand.NormFloat64 when nil
	Norm func() float64
}

// NewDelayModel builds a model from persisted settings values
func NewDelayModel(device string, speedUp, sigma float64) DelayModel {
	return DelayModel{Device: Device(device), SpeedUp: speedUp, JitterSigma: sigma}
}

// Delay returns the reply delay in milliseconds for a message of inChars
// answered by outChars
func (m DelayModel) Delay(inChars, outChars int) float64 {
	read := math.Max(minGap, readPerChar*float64(inChars))
	typing := m.typeRate() * float64(outChars)

	base := math.Min(math.Max(read+thinkBase+typing, minDelay), maxDelay)

	speedUp := m.SpeedUp
	if speedUp <= 0 {
		speedUp = 1
	}
	return base * m.jitter() / speedUp * 1000
}

func (m DelayModel) typeRate() float64 {
	if m.Device == DeviceDesktop {
		return typeDesktop
	}
	return typeMobile
}

// jitter samples a multiplicative log-normal factor with mu 0
func (m DelayModel) jitter() float64 {
	if m.JitterSigma <= 0 {
		return 1
	}
	norm := m.Norm
	if norm == nil {
		norm = rand.NormFloat64
	}
	return math.Exp(m.JitterSigma * norm())
}
