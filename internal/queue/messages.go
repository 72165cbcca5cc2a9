package queue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// LinkMessage asks a worker to build and link the graph of an uploaded
// document.
type LinkMessage struct {
	DocumentKey   string `json:"document_key"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// DeleteMessage asks a worker to remove a document and its exports.
type DeleteMessage struct {
	DocumentKey string `json:"document_key"`
}

func decodeKey(body []byte, v any, key func() string) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	if strings.TrimSpace(key()) == "" {
		return fmt.Errorf("invalid message: document_key is empty")
	}
	return nil
}

func DecodeLinkMessage(body []byte) (LinkMessage, error) {
	var m LinkMessage
	err := decodeKey(body, &m, func() string { return m.DocumentKey })
	return m, err
}

func DecodeDeleteMessage(body []byte) (DeleteMessage, error) {
	var m DeleteMessage
	err := decodeKey(body, &m, func() string { return m.DocumentKey })
	return m, err
}
