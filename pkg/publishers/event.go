package publishers

import (
	"fmt"
	"time"

	"github.com/samvad-hq/userlist/internal/domain"
	"github.com/samvad-hq/userlist/pkg/httpclient"
)

// Queue messages are compact; HTTP bodies go through the client's pretty codec.
var messageCodec = httpclient.NewJSONCodec(httpclient.CodecOptions{})

// Event represents the payload published downstream.
type Event struct {
	Source    string        `json:"source"`
	Users     []domain.User `json:"users"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// NewEvent constructs an Event for users fetched from source.
func NewEvent(source string, users []domain.User) Event {
	return Event{
		Source:    source,
		Users:     users,
		FetchedAt: time.Now().UTC(),
	}
}

func marshalEvent(evt Event) ([]byte, error) {
	payload, err := messageCodec.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return payload, nil
}
