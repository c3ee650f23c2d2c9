package catalog

import (
	"bytes"
	"encoding/json"
)

// rawID accepts both `"abc"` and `{"kind":"youtube#video","videoId":"abc"}`.
type rawID struct {
	Value string
}

func (id *rawID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &id.Value)
	}
	var obj struct {
		VideoID   string `json:"videoId"`
		ChannelID string `json:"channelId"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	id.Value = obj.VideoID
	if id.Value == "" {
		id.Value = obj.ChannelID
	}
	return nil
}

func (id rawID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Value)
}
