package recordstore

import (
	"encoding/json"
	"fmt"
	"os"
)

// Document is the persisted shape of a license record. Absent attributes
// stay nil so the three hwid states survive a round trip.
type Document struct {
	Key            string  `json:"key" bson:"key"`
	HWID           *string `json:"hwid,omitempty" bson:"hwid,omitempty"`
	DurationDays   *int    `json:"duration_days,omitempty" bson:"duration_days,omitempty"`
	ActivationDate *string `json:"activation_date,omitempty" bson:"activation_date,omitempty"`
}

// Record converts the document into a Record, parsing the activation date.
func (d Document) Record() (*Record, error) {
	rec := &Record{
		Key:          d.Key,
		HWID:         BindingFromWire(d.HWID),
		DurationDays: d.DurationDays,
	}
	if d.ActivationDate != nil {
		t, err := ParseDate(*d.ActivationDate)
		if err != nil {
			return nil, fmt.Errorf("record %q: activation_date: %w", d.Key, err)
		}
		rec.ActivationDate = &t
	}
	return rec, nil
}

// DocumentFrom converts a record back into its persisted shape.
func DocumentFrom(r Record) Document {
	d := Document{
		Key:          r.Key,
		HWID:         r.HWID.Wire(),
		DurationDays: r.DurationDays,
	}
	if r.ActivationDate != nil {
		s := FormatDate(*r.ActivationDate)
		d.ActivationDate = &s
	}
	return d
}

// LoadDocuments reads a JSON array of documents from path.
func LoadDocuments(path string) ([]Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var docs []Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return docs, nil
}
