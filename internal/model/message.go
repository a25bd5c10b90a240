package model

// Sender identifies who wrote a transcript entry
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// GreetingText opens every fresh conversation
const GreetingText = "Hi!\nWelcome to Agent Mira. I’m here to help you find your perfect property. Tell me what you’re looking for!"

// Message is one transcript entry. Only bot entries that answered a turn
// carry properties. Failed marks a user entry whose turn did not complete.
type Message struct {
	From       Sender     `json:"from"`
	Text       string     `json:"text"`
	Properties []Property `json:"properties"`
	Failed     bool       `json:"failed,omitempty"`
}

// Transcript is the ordered, append-only conversation history
type Transcript []Message

// UserMessage builds a user entry
func UserMessage(text string) Message {
	return Message{From: SenderUser, Text: text, Properties: []Property{}}
}

// BotMessage builds a bot entry carrying the filtered result set
func BotMessage(text string, properties []Property) Message {
	if properties == nil {
		properties = []Property{}
	}
	return Message{From: SenderBot, Text: text, Properties: properties}
}

// Greeting returns the single-entry transcript of a new session
func Greeting() Transcript {
	return Transcript{BotMessage(GreetingText, nil)}
}

// Clone copies the entry list. Properties are immutable and stay shared.
func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}
