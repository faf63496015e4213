package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	audit "github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/audit"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/platform/audit/store/memory"
)

type PublisherSuite struct {
	suite.Suite
	store     *memory.InMemoryStore
	publisher *audit.Publisher
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupTest() {
	s.store = memory.NewInMemoryStore()
	s.publisher = audit.NewPublisher(s.store)
}

func (s *PublisherSuite) TestEmit() {
	ctx := context.Background()

	s.Run("stamps timestamp and derives category", func() {
		s.store.Clear()
		s.Require().NoError(s.publisher.Emit(ctx, audit.Event{
			Action:     string(audit.EventOwnershipTransferred),
			Subject:    "0xbuyer",
			PropertyID: 7,
		}))

		events, err := s.publisher.ListBySubject(ctx, "0xbuyer")
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(audit.CategoryCompliance, events[0].Category)
		s.False(events[0].Timestamp.IsZero())
	})

	s.Run("pause is a security event", func() {
		s.Equal(audit.CategorySecurity, audit.EventPaused.Category())
		s.Equal(audit.CategoryOperations, audit.AuditEvent("unknown").Category())
	})

	s.Run("lists by property in emission order", func() {
		s.store.Clear()
		for _, action := range []audit.AuditEvent{audit.EventPropertyRegistered, audit.EventPropertyStatusChanged} {
			s.Require().NoError(s.publisher.Emit(ctx, audit.Event{Action: string(action), PropertyID: 3}))
		}
		s.Require().NoError(s.publisher.Emit(ctx, audit.Event{Action: string(audit.EventPropertyRegistered), PropertyID: 4}))

		events, err := s.publisher.ListByProperty(ctx, 3)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(string(audit.EventPropertyRegistered), events[0].Action)
		s.Equal(string(audit.EventPropertyStatusChanged), events[1].Action)
	})
}
