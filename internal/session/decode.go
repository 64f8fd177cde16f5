package session

import (
	"encoding/json"
	"fmt"

	"rental-chat/internal/models"
)

// decodeUserID accepts a bare id (number or numeric string) or an object
// with a userId field.
func decodeUserID(raw json.RawMessage) (int, error) {
	var id models.UserID
	if err := json.Unmarshal(raw, &id); err == nil {
		if id <= 0 {
			return 0, fmt.Errorf("%w: user id must be positive", ErrInvalidPayload)
		}
		return int(id), nil
	}
	var obj struct {
		UserID *models.UserID `json:"userId"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.UserID == nil || *obj.UserID <= 0 {
		return 0, fmt.Errorf("%w: expected user id", ErrInvalidPayload)
	}
	return int(*obj.UserID), nil
}

func decodePair(raw json.RawMessage) (userID, friendID int, err error) {
	var p models.PairPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.UserID <= 0 || p.FriendID <= 0 {
		return 0, 0, fmt.Errorf("%w: userId and friendId are required", ErrInvalidPayload)
	}
	return int(p.UserID), int(p.FriendID), nil
}

func decodeSend(raw json.RawMessage) (models.SendMessagePayload, error) {
	var p models.SendMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.SenderID <= 0 || p.ReceiverID <= 0 {
		return p, fmt.Errorf("%w: senderId and receiverId are required", ErrInvalidPayload)
	}
	return p, nil
}
