package hub

import "encoding/json"

// Inbound structured message kinds.
const (
	kindStart  = "start"
	kindStop   = "stop"
	kindSensor = "sensor"
	kindStatus = "status"
)

// envelope is the discriminated inbound message. Sensor fields are
// only meaningful when Type is "sensor"; Value only for "status".
type envelope struct {
	Type    string  `json:"type"`
	Value   string  `json:"value,omitempty"`
	Temp    float64 `json:"temp,omitempty"`
	Hum     float64 `json:"hum,omitempty"`
	MicPeak float64 `json:"mic_peak,omitempty"`
}

// statusEvent notifies connections of a status value.
type statusEvent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// transcriptEvent relays one recognized text line.
type transcriptEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// alertEvent announces a keyword-triggered emergency. Keyword carries
// the full recognized line, matching the device protocol.
type alertEvent struct {
	Type    string `json:"type"`
	Keyword string `json:"keyword"`
}

func marshalStatus(value string) []byte {
	data, _ := json.Marshal(statusEvent{Type: kindStatus, Value: value})
	return data
}

func marshalTranscript(text string) []byte {
	data, _ := json.Marshal(transcriptEvent{Type: "transcript", Text: text})
	return data
}

func marshalAlert(line string) []byte {
	data, _ := json.Marshal(alertEvent{Type: "alert", Keyword: line})
	return data
}
