package narration

// Audio is a synthesized narration.
type Audio struct {
	Data           []byte
	ContentType    string
	CharacterCount string
	RequestID      string
	// URL is set when the audio was archived to object storage.
	URL string
}
