package codec

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/lifeline/internal/model"
)

// coordScale fixes coordinates at 5 decimal digits (about 1.1 m).
const coordScale = 100000

// wirePayload mirrors the transport keys. Pointers distinguish missing keys
// from zero values.
type wirePayload struct {
	ID              *string `json:"i"`
	OriginRequestID *string `json:"oi"`
	OriginDeviceID  *string `json:"od"`
	BloodType       *string `json:"bt"`
	Component       *string `json:"ct"`
	Units           *int64  `json:"u"`
	Urgency         *string `json:"urg"`
	Location        []int64 `json:"l"`
	CreatedAt       *int64  `json:"ts"`
	HopCount        *int64  `json:"hc"`
	MaxHops         *int64  `json:"mh"`
}

// Encode renders rec as a transport string. Contact details and notes are
// dropped.
func Encode(rec model.RequestRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	ct, ok := ComponentToken(rec.ComponentType)
	if !ok {
		return "", fmt.Errorf("encode payload: no token for component type %q", rec.ComponentType)
	}
	urg, ok := UrgencyToken(rec.Urgency)
	if !ok {
		return "", fmt.Errorf("encode payload: no token for urgency %q", rec.Urgency)
	}

	lat, err := toFixed5(rec.Location.Lat)
	if err != nil {
		return "", fmt.Errorf("encode payload: lat: %w", err)
	}
	lng, err := toFixed5(rec.Location.Lng)
	if err != nil {
		return "", fmt.Errorf("encode payload: lng: %w", err)
	}

	obj := map[string]any{
		"i":   rec.ID,
		"oi":  rec.OriginRequestID,
		"od":  rec.OriginDeviceID,
		"bt":  string(rec.BloodType),
		"ct":  ct,
		"u":   rec.Units,
		"urg": urg,
		"l":   []any{lat, lng},
		"ts":  rec.CreatedAt.UnixMilli(),
		"hc":  rec.HopCount,
		"mh":  rec.MaxHops,
	}

	data, err := marshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(data), nil
}

// Decode parses a transport string. The returned record carries the sender's
// id, hop count and timestamps; it has status pending_sync and placeholder
// contact fields. Every failure matches ErrInvalidPayload.
func Decode(payload string) (model.RequestRecord, error) {
	var w wirePayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &w); err != nil {
		return model.RequestRecord{}, &DecodeError{Reason: "malformed JSON", Err: err}
	}

	id, err := requiredString("i", w.ID)
	if err != nil {
		return model.RequestRecord{}, err
	}
	originID, err := requiredString("oi", w.OriginRequestID)
	if err != nil {
		return model.RequestRecord{}, err
	}
	originDevice, err := requiredString("od", w.OriginDeviceID)
	if err != nil {
		return model.RequestRecord{}, err
	}

	bt, err := requiredString("bt", w.BloodType)
	if err != nil {
		return model.RequestRecord{}, err
	}
	bloodType := model.BloodType(bt)
	if !bloodType.Valid() {
		return model.RequestRecord{}, &DecodeError{Field: "bt", Reason: fmt.Sprintf("unknown blood type %q", bt)}
	}

	ctTok, err := requiredString("ct", w.Component)
	if err != nil {
		return model.RequestRecord{}, err
	}
	component, ok := fromToken(componentTable[:], ctTok)
	if !ok {
		return model.RequestRecord{}, &DecodeError{Field: "ct", Reason: fmt.Sprintf("unknown component token %q", ctTok)}
	}

	urgTok, err := requiredString("urg", w.Urgency)
	if err != nil {
		return model.RequestRecord{}, err
	}
	urgency, ok := fromToken(urgencyTable[:], urgTok)
	if !ok {
		return model.RequestRecord{}, &DecodeError{Field: "urg", Reason: fmt.Sprintf("unknown urgency token %q", urgTok)}
	}

	if w.Units == nil {
		return model.RequestRecord{}, &DecodeError{Field: "u", Reason: "missing"}
	}
	if *w.Units <= 0 {
		return model.RequestRecord{}, &DecodeError{Field: "u", Reason: "must be positive"}
	}

	if len(w.Location) != 2 {
		return model.RequestRecord{}, &DecodeError{Field: "l", Reason: "must hold exactly [lat, lng]"}
	}
	loc := model.Location{
		Lat: float64(w.Location[0]) / coordScale,
		Lng: float64(w.Location[1]) / coordScale,
	}
	if !loc.Valid() {
		return model.RequestRecord{}, &DecodeError{Field: "l", Reason: "coordinates out of range"}
	}

	if w.CreatedAt == nil {
		return model.RequestRecord{}, &DecodeError{Field: "ts", Reason: "missing"}
	}
	if *w.CreatedAt <= 0 {
		return model.RequestRecord{}, &DecodeError{Field: "ts", Reason: "must be positive"}
	}

	if w.HopCount == nil {
		return model.RequestRecord{}, &DecodeError{Field: "hc", Reason: "missing"}
	}
	if *w.HopCount < 0 {
		return model.RequestRecord{}, &DecodeError{Field: "hc", Reason: "must not be negative"}
	}

	maxHops := int64(model.DefaultMaxHops)
	if w.MaxHops != nil {
		maxHops = *w.MaxHops
	}
	if maxHops < 1 {
		return model.RequestRecord{}, &DecodeError{Field: "mh", Reason: "must be at least 1"}
	}

	createdAt := time.UnixMilli(*w.CreatedAt).UTC()
	return model.RequestRecord{
		ID:              id,
		OriginRequestID: originID,
		OriginDeviceID:  originDevice,
		BloodType:       bloodType,
		ComponentType:   component,
		Units:           int(*w.Units),
		Urgency:         urgency,
		ContactName:     model.RelayedPlaceholder,
		ContactPhone:    model.RelayedPlaceholder,
		Notes:           model.RelayedPlaceholder,
		Location:        loc,
		Status:          model.StatusPendingSync,
		HopCount:        int(*w.HopCount),
		MaxHops:         int(maxHops),
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}, nil
}

// TruncateCoordinate returns v cut (not rounded) to 5 decimal digits, as a
// receiver would see it after a round trip.
func TruncateCoordinate(v float64) (float64, error) {
	n, err := toFixed5(v)
	if err != nil {
		return 0, err
	}
	return float64(n) / coordScale, nil
}

func requiredString(field string, v *string) (string, error) {
	if v == nil {
		return "", &DecodeError{Field: field, Reason: "missing"}
	}
	if *v == "" {
		return "", &DecodeError{Field: field, Reason: "must not be empty"}
	}
	return *v, nil
}

// toFixed5 truncates v to 5 decimals and scales it to an integer. It cuts the
// shortest round-trip decimal rendering, which never rounds up and keeps
// already-truncated values such as 17.42541 stable across repeated encodes.
func toFixed5(v float64) (int64, error) {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	frac = (frac + "00000")[:5]

	n, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("coordinate %v: %w", v, err)
	}
	if neg {
		n = -n
	}
	return n, nil
}
