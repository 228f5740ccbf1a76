package rule

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// bandDoc mirrors Band with the window as a duration string ("1s", "5m") so
// stored rule documents stay readable and hand-editable.
type bandDoc struct {
	Window   string `json:"window" yaml:"window"`
	Capacity int64  `json:"capacity" yaml:"capacity"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
}

// MarshalJSON renders the window as a duration string.
func (b Band) MarshalJSON() ([]byte, error) {
	return json.Marshal(bandDoc{Window: b.Window.String(), Capacity: b.Capacity, Label: b.Label})
}

// UnmarshalJSON parses the window from a duration string.
func (b *Band) UnmarshalJSON(data []byte) error {
	var doc bandDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	return b.fromDoc(doc)
}

// MarshalYAML renders the window as a duration string.
func (b Band) MarshalYAML() (any, error) {
	return bandDoc{Window: b.Window.String(), Capacity: b.Capacity, Label: b.Label}, nil
}

// UnmarshalYAML parses the window from a duration string.
func (b *Band) UnmarshalYAML(value *yaml.Node) error {
	var doc bandDoc
	if err := value.Decode(&doc); err != nil {
		return err
	}
	return b.fromDoc(doc)
}

func (b *Band) fromDoc(doc bandDoc) error {
	w, err := time.ParseDuration(doc.Window)
	if err != nil {
		return fmt.Errorf("%w: window %q: %v", ErrInvalidBand, doc.Window, err)
	}
	b.Window = w
	b.Capacity = doc.Capacity
	b.Label = doc.Label
	return nil
}
