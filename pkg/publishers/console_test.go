package publishers

import (
	"bytes"
	"context"
	"testing"

	"github.com/samvad-hq/userlist/internal/domain"
)

func TestConsolePublisherRendersCards(t *testing.T) {
	var buf bytes.Buffer
	pub := &consolePublisher{id: "screen", typ: TypeConsole, out: &buf}

	err := pub.Publish(context.Background(), NewEvent("GET /users", []domain.User{
		{ID: 1, Username: "jdoe", Firstname: "Jane", Lastname: "Doe"},
		{ID: 2, Username: "rroe", Firstname: "Richard", Lastname: "Roe"},
	}))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	want := "(o) Jane Doe\n    jdoe\n(o) Richard Roe\n    rroe\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected output:\n%s", got)
	}
}
