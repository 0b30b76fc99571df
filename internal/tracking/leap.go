package tracking

import (
	"encoding/json"
	"fmt"
	"time"
)

// wireFrame is a tracking frame as sent by the Leap Motion WebSocket
// service (protocol v6).
type wireFrame struct {
	ID         int64           `json:"id"`
	Timestamp  int64           `json:"timestamp"` // microseconds
	Hands      []wireHand      `json:"hands"`
	Pointables []wirePointable `json:"pointables"`
}

type wireHand struct {
	ID           int        `json:"id"`
	Type         string     `json:"type"`
	PalmPosition [3]float64 `json:"palmPosition"`
	PalmVelocity [3]float64 `json:"palmVelocity"`
}

type wirePointable struct {
	ID           int         `json:"id"`
	HandID       int         `json:"handId"`
	Type         int         `json:"type"`
	Extended     bool        `json:"extended"`
	TipPosition  [3]float64  `json:"tipPosition"`
	BTipPosition *[3]float64 `json:"btipPosition"`
}

func vec(a [3]float64) Vec3 {
	return Vec3{X: a[0], Y: a[1], Z: a[2]}
}

// DecodeFrame parses one message from the tracking service.
// Messages that are not tracking frames (service version, device events)
// decode to a nil frame and a nil error.
func DecodeFrame(data []byte) (*Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode tracking message: %w", err)
	}

	if w.Hands == nil {
		return nil, nil
	}

	f := &Frame{
		ID:        w.ID,
		Timestamp: time.Duration(w.Timestamp) * time.Microsecond,
		Hands:     make([]Hand, 0, len(w.Hands)),
	}

	byID := make(map[int]int, len(w.Hands))
	for _, wh := range w.Hands {
		h := Hand{
			ID:       wh.ID,
			Side:     wh.Type,
			Palm:     vec(wh.PalmPosition),
			Velocity: vec(wh.PalmVelocity),
		}
		for i := range h.Digits {
			h.Digits[i].Type = DigitType(i)
		}
		byID[wh.ID] = len(f.Hands)
		f.Hands = append(f.Hands, h)
	}

	for _, p := range w.Pointables {
		idx, ok := byID[p.HandID]
		if !ok || p.Type < 0 || p.Type >= int(NumDigits) {
			continue
		}
		tip := p.TipPosition
		if p.BTipPosition != nil {
			tip = *p.BTipPosition
		}
		f.Hands[idx].Digits[p.Type] = Digit{
			Type:     DigitType(p.Type),
			Extended: p.Extended,
			Tip:      vec(tip),
		}
	}

	return f, nil
}
