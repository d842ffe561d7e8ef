package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Episode is one entry of the catalog file. Field names mirror the JSON keys
// the catalog has always used, including the camel-cased pubDate.
type Episode struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Author      string   `json:"author"`
	URL         string   `json:"url"`
	AudioURL    string   `json:"audio_url"`
	PubDate     string   `json:"pubDate"`
	Duration    string   `json:"duration"`
	FileSize    int64    `json:"file_size"`
	Categories  []string `json:"categories,omitempty"`
	Content     string   `json:"content,omitempty"`
}

// UnmarshalJSON accepts the loose spellings hand-edited catalogs contain:
// duration may be a number of seconds and file_size a numeric string.
func (e *Episode) UnmarshalJSON(data []byte) error {
	type Alias Episode
	aux := struct {
		*Alias
		Duration json.RawMessage `json:"duration"`
		FileSize json.RawMessage `json:"file_size"`
	}{Alias: (*Alias)(e)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	duration, err := looseString(aux.Duration)
	if err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	size, err := looseInt(aux.FileSize)
	if err != nil {
		return fmt.Errorf("file_size: %w", err)
	}
	e.Duration = duration
	e.FileSize = size
	return nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func looseString(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	raw = bytes.TrimSpace(raw)
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func looseInt(raw json.RawMessage) (int64, error) {
	if isNull(raw) {
		return 0, nil
	}
	raw = bytes.TrimSpace(raw)

	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return 0, nil
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, err
		}
		text = n.String()
	}

	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", text)
	}
	return int64(f), nil
}
