package types

// Envelope is the JSON object carried by every transport text frame.
//
// Content holds the protocol frame text: either a command such as
// "challenge:<hex>" or an encrypted chat payload.
type Envelope struct {
	Sender    Username `json:"sender"`
	Recipient Username `json:"recipient,omitempty"`
	Content   string   `json:"content"`
	Timestamp int64    `json:"timestamp"`
}

// DecryptedMessage is an incoming chat payload after decryption.
//
// Failed is set when the payload could not be decrypted; Plaintext then holds
// a display marker instead of message text.
type DecryptedMessage struct {
	From      Username `json:"from"`
	To        Username `json:"to"`
	Plaintext []byte   `json:"plaintext"`
	Timestamp int64    `json:"timestamp"`
	Failed    bool     `json:"failed,omitempty"`
}
