package notify

import (
	"encoding/json"
	"time"
)

// DefaultChannel is the pub/sub channel rule-change messages travel on.
const DefaultChannel = "fluxgate:rule-reload"

// Message is the wire payload of one rule-change notification. A nil
// RuleSetID means a full reload and implies FullReload.
type Message struct {
	RuleSetID  *string `json:"ruleSetId"`
	FullReload bool    `json:"fullReload"`
	Timestamp  int64   `json:"timestamp"` // epoch millis
	Source     string  `json:"source"`
}

// NewRuleChange builds a message for one rule set.
func NewRuleChange(ruleSetID, source string) Message {
	return Message{
		RuleSetID: &ruleSetID,
		Timestamp: time.Now().UnixMilli(),
		Source:    source,
	}
}

// NewFullReload builds a message covering every rule set.
func NewFullReload(source string) Message {
	return Message{
		FullReload: true,
		Timestamp:  time.Now().UnixMilli(),
		Source:     source,
	}
}

// Full reports whether the message demands a full reload.
func (m Message) Full() bool {
	return m.FullReload || m.RuleSetID == nil || *m.RuleSetID == ""
}

// SetID returns the targeted rule set id, empty for a full reload.
func (m Message) SetID() string {
	if m.RuleSetID == nil {
		return ""
	}
	return *m.RuleSetID
}

// Encode renders the message as its JSON wire form.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage parses the JSON wire form.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}
