package e2e

import (
	"chat-pulse/domain"
	"chat-pulse/domain/event"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type testSessionSuite struct {
	BaseWsSuite
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, &testSessionSuite{})
}

func (s *testSessionSuite) TestShadowSessionFlow() {
	sessionID := domain.SessionID(uuid.NewString())
	alice := s.Connect(domain.UserID(fmt.Sprintf("alice-%s", sessionID[:8])))
	bob := s.Connect(domain.UserID(fmt.Sprintf("bob-%s", sessionID[:8])))

	s.Run("Step 1: bob opens the session", func() {
		bob.Send(event.JoinShadowSession, domain.JoinSessionCommand{SessionID: sessionID})
		var state event.SessionStateEvent
		s.Require().NoError(json.Unmarshal(bob.Expect(event.SessionStateOut), &state))
		s.Require().Len(state.Participants, 1)
	})

	s.Run("Step 2: alice joins and bob is told", func() {
		alice.Send(event.JoinShadowSession, domain.JoinSessionCommand{SessionID: sessionID})
		var joined event.ParticipantJoinedEvent
		s.Require().NoError(json.Unmarshal(bob.Expect(event.ParticipantJoined), &joined))
		s.Require().Equal(alice.Identity, joined.Identity)
		alice.Expect(event.SessionStateOut)
	})

	s.Run("Step 3: shared media reaches both participants", func() {
		alice.Send(event.MediaShared, domain.MediaSharedCommand{
			SessionID: sessionID,
			MediaURL:  "https://cdn.example.com/capture.png",
			MediaType: "image/png",
		})
		var media event.SessionMediaEvent
		s.Require().NoError(json.Unmarshal(bob.Expect(event.SessionMediaOut), &media))
		s.Require().Equal("image/png", media.MediaType)
		alice.Expect(event.SessionMediaOut)
	})

	s.Run("Step 4: alice disconnects and bob sees her leave", func() {
		alice.Close()
		var left event.ParticipantLeftEvent
		s.Require().NoError(json.Unmarshal(bob.Expect(event.ParticipantLeft), &left))
		s.Require().Equal(alice.Identity, left.Identity)
	})
}

func (s *testSessionSuite) TestUnknownRoomIsNotAuthorized() {
	peer := s.Connect(domain.UserID("stranger-" + uuid.NewString()[:8]))
	peer.Send(event.JoinRoom, domain.JoinRoomCommand{RoomID: domain.RoomID(uuid.NewString())})

	var errEvent event.ErrorEvent
	s.Require().NoError(json.Unmarshal(peer.Expect(event.Error), &errEvent))
	s.Require().Equal("Not authorized", errEvent.Message)
}
