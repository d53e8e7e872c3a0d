package live

// Wire envelopes for the streaming inference service. The client sends
// realtime audio frames; the server answers with exactly one of the four
// event shapes per message.

// ClientFrame is an outbound message.
type ClientFrame struct {
	Setup         *Setup         `json:"setup,omitempty"`
	RealtimeInput *RealtimeInput `json:"realtimeInput,omitempty"`
}

// Setup opens a session with the model and audio format negotiation.
type Setup struct {
	Model            string `json:"model"`
	InputSampleRate  int    `json:"inputSampleRate"`
	OutputSampleRate int    `json:"outputSampleRate"`
}

// RealtimeInput carries one block of captured microphone samples, tagged
// with its audio format metadata.
type RealtimeInput struct {
	MimeType   string `json:"mimeType"`
	SampleRate int    `json:"sampleRate"`
	Payload    string `json:"payload"`
}

// ServerFrame is an inbound message. The populated field determines the
// event: an interruption signal, a synthesized audio payload, a transcript
// fragment, or a turn-completion marker.
type ServerFrame struct {
	Interrupted    bool   `json:"interrupted,omitempty"`
	AudioPayload   string `json:"audioPayload,omitempty"`
	MimeType       string `json:"mimeType,omitempty"`
	TranscriptText string `json:"transcriptText,omitempty"`
	TurnComplete   bool   `json:"turnComplete,omitempty"`
}
