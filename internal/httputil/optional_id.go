package httputil

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// OptionalID tracks presence and value for JSON PATCH semantics
// (RFC 7396) on entry-id fields. A plain *bson.ObjectID cannot tell
// "field absent, leave the parent alone" apart from "field null, move
// to the forest root":
//   - Present=false: field absent from JSON (don't change)
//   - Present=true, Value=nil: field is JSON null (forest root)
//   - Present=true, Value=&id: reparent under id
type OptionalID struct {
	Present bool
	Value   *bson.ObjectID
}

// UnmarshalJSON implements json.Unmarshaler.
// When this method is called, the field was present in the JSON.
func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Present = true

	if string(bytes.TrimSpace(data)) == "null" {
		o.Value = nil
		return nil
	}

	var hex string
	if err := json.Unmarshal(data, &hex); err != nil {
		return err
	}
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return fmt.Errorf("invalid entry id %q: %w", hex, err)
	}
	o.Value = &id
	return nil
}
