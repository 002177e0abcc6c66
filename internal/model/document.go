package model

import (
	"bytes"
	"encoding/json"
	"sort"
)

// DocumentRef points at an uploaded file. Its contents are never interpreted here.
type DocumentRef struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Location  string `json:"location"`
}

// DocumentSlot holds one document or a list of documents. Single records whether
// it was written as a bare object so it is returned in the same shape.
type DocumentSlot struct {
	Single bool
	Refs   []DocumentRef
}

func (d DocumentSlot) MarshalJSON() ([]byte, error) {
	if d.Single && len(d.Refs) == 1 {
		return json.Marshal(d.Refs[0])
	}
	if d.Refs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d.Refs)
}

func (d *DocumentSlot) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var ref DocumentRef
		if err := json.Unmarshal(b, &ref); err != nil {
			return err
		}
		*d = DocumentSlot{Single: true, Refs: []DocumentRef{ref}}
		return nil
	}
	var refs []DocumentRef
	if err := json.Unmarshal(b, &refs); err != nil {
		return err
	}
	*d = DocumentSlot{Refs: refs}
	return nil
}

// Documents maps a named slot (e.g. "passport", "proofOfAddress") to its files.
type Documents map[string]DocumentSlot

// SortedKeys returns slot names in a stable order.
func (d Documents) SortedKeys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
