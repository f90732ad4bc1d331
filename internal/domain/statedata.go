package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrBadStateData = errors.New("unrecognized state data")

// StateData is the per-channel session payload. Exactly one of the two
// variants is set, matching Session.Channel.
type StateData struct {
	USSD  *USSDStateData  `json:"ussd,omitempty"`
	Voice *VoiceStateData `json:"voice,omitempty"`
}

type USSDStateData struct {
	Language  string     `json:"language"`
	Questions []Question `json:"questions,omitempty"`
	Selected  *Question  `json:"selected,omitempty"`
}

type VoiceStateData struct {
	Language   string     `json:"language"`
	Questions  []Question `json:"questions,omitempty"`
	Cursor     int        `json:"cursor"`
	Answered   []int64    `json:"answered,omitempty"`
	Recordings []string   `json:"recordingUrls,omitempty"`
	Status     string     `json:"status,omitempty"`
	Duration   int        `json:"durationSeconds,omitempty"`
	HangupCase string     `json:"hangupCause,omitempty"`
}

func (d *VoiceStateData) HasAnswered(questionID int64) bool {
	for _, id := range d.Answered {
		if id == questionID {
			return true
		}
	}
	return false
}

// HasRecording reports whether url was already accepted for any question
// on this call. The gateway redelivers recording callbacks at least once
// and possibly late; an accepted URL is never an answer twice.
func (d *VoiceStateData) HasRecording(url string) bool {
	for _, u := range d.Recordings {
		if u == url {
			return true
		}
	}
	return false
}

func NewStateData(ch Channel) StateData {
	if ch == ChannelVoice {
		return StateData{Voice: &VoiceStateData{Language: "en"}}
	}
	return StateData{USSD: &USSDStateData{Language: "en"}}
}

func (d StateData) Language() string {
	switch {
	case d.USSD != nil && d.USSD.Language != "":
		return d.USSD.Language
	case d.Voice != nil && d.Voice.Language != "":
		return d.Voice.Language
	}
	return "en"
}

// EncodeStateData serializes state data for the session store.
func EncodeStateData(d StateData) ([]byte, error) {
	return json.Marshal(d)
}

// DecodeStateData validates that the stored blob carries the variant the
// channel requires. Anything else is rejected rather than trusted.
func DecodeStateData(ch Channel, raw []byte) (StateData, error) {
	var d StateData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &d); err != nil {
			return StateData{}, fmt.Errorf("%w: %v", ErrBadStateData, err)
		}
	}
	switch ch {
	case ChannelUSSD:
		if d.Voice != nil {
			return StateData{}, fmt.Errorf("%w: voice payload on ussd session", ErrBadStateData)
		}
		if d.USSD == nil {
			d.USSD = &USSDStateData{Language: "en"}
		}
	case ChannelVoice:
		if d.USSD != nil {
			return StateData{}, fmt.Errorf("%w: ussd payload on voice session", ErrBadStateData)
		}
		if d.Voice == nil {
			d.Voice = &VoiceStateData{Language: "en"}
		}
	default:
		return StateData{}, fmt.Errorf("%w: unknown channel %q", ErrBadStateData, ch)
	}
	return d, nil
}
