package broadcast

import (
	"encoding/json"
	"fmt"

	"go-route-guard/internal/models"
)

// Encode serializes a message for the wire
func Encode(msg *models.Message) ([]byte, error) {
	if err := validateMessage(msg); err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// Decode parses and validates a wire message
func Decode(payload []byte) (*models.Message, error) {
	var msg models.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode broadcast message: %w", err)
	}
	if err := validateMessage(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func validateMessage(msg *models.Message) error {
	if msg == nil {
		return fmt.Errorf("%w: nil message", models.ErrUnknownMessage)
	}

	switch msg.Type {
	case models.MessageUpdate:
		if msg.Key == "" {
			return models.ErrEmptyKey
		}
		if msg.Data == nil {
			return fmt.Errorf("update message for %s carries no data", msg.Key)
		}
		if msg.Version == "" {
			return fmt.Errorf("update message for %s carries no cache version", msg.Key)
		}
	case models.MessageInvalidate:
		if msg.Key == "" {
			return models.ErrEmptyKey
		}
	case models.MessageClear:
	default:
		return fmt.Errorf("%w: %q", models.ErrUnknownMessage, msg.Type)
	}

	if msg.Origin == "" {
		return fmt.Errorf("message %s has no origin", msg.Type)
	}
	return nil
}
