package gesture

import "github.com/ayusman/cookify/internal/tracking"

// PinchThreshold is the largest thumb-to-index tip distance, in millimeters,
// that still counts as a pinch.
const PinchThreshold = 30.0

// IsPinching reports whether the thumb and index tips are touching while the
// middle, ring and pinky fingers stay extended. A fist brings the tips
// together too, so the extension check is required.
func IsPinching(h *tracking.Hand) bool {
	if h == nil {
		return false
	}

	for _, d := range []tracking.DigitType{tracking.Middle, tracking.Ring, tracking.Pinky} {
		if !h.Digits[d].Extended {
			return false
		}
	}

	return h.Digits[tracking.Thumb].Tip.Distance(h.Digits[tracking.Index].Tip) < PinchThreshold
}
