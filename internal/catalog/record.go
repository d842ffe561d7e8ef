package catalog

import (
	"bytes"
	"encoding/json"
	"errors"

	"clarity-podcast/internal/models"
)

type field struct {
	key   string
	value json.RawMessage
}

// object is a JSON object that remembers its key order.
type object []field

func decodeObject(raw []byte) (object, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("catalog record is not an object")
	}

	var obj object
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.New("catalog record has a non-string key")
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		obj = append(obj, field{key: key, value: value})
	}
	return obj, nil
}

func (o object) get(key string) (json.RawMessage, bool) {
	for _, f := range o {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

func (o *object) set(key string, value json.RawMessage) {
	for i := range *o {
		if (*o)[i].key == key {
			(*o)[i].value = value
			return
		}
	}
	*o = append(*o, field{key: key, value: value})
}

func (o *object) remove(key string) {
	kept := (*o)[:0]
	for _, f := range *o {
		if f.key != key {
			kept = append(kept, f)
		}
	}
	*o = kept
}

func (o object) marshal() (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(f.value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func episodeFields(ep models.Episode) (object, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ep); err != nil {
		return nil, err
	}
	return decodeObject(buf.Bytes())
}

// mergeRecord applies the difference between before and after to raw. Fields
// that did not change keep their text as read, including ones the record
// never had.
func mergeRecord(raw json.RawMessage, before, after models.Episode) (json.RawMessage, bool, error) {
	oldFields, err := episodeFields(before)
	if err != nil {
		return nil, false, err
	}
	newFields, err := episodeFields(after)
	if err != nil {
		return nil, false, err
	}

	obj, err := decodeObject(raw)
	if err != nil {
		return nil, false, err
	}

	dirty := false
	for _, f := range newFields {
		if old, ok := oldFields.get(f.key); ok && bytes.Equal(old, f.value) {
			continue
		}
		obj.set(f.key, f.value)
		dirty = true
	}
	for _, f := range oldFields {
		if _, ok := newFields.get(f.key); !ok {
			obj.remove(f.key)
			dirty = true
		}
	}

	if !dirty {
		return raw, false, nil
	}
	merged, err := obj.marshal()
	if err != nil {
		return nil, false, err
	}
	return merged, true, nil
}
