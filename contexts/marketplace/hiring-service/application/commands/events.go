package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"gigflow/contexts/marketplace/hiring-service/domain/entities"
	"gigflow/contexts/marketplace/hiring-service/ports"
)

const (
	proposalHiredEventType   = "proposal.hired"
	hiredNotificationType    = "hired"
	hiringSourceService      = "hiring-service"
	hiringModuleName         = "marketplace/hiring-service"
	proposalHiredSchemaLevel = 1
)

func buildHiredEnvelope(
	eventID string,
	posting entities.Posting,
	proposal entities.Proposal,
	rejectedCount int,
	occurredAt time.Time,
) (ports.EventEnvelope, error) {
	data, err := json.Marshal(map[string]any{
		"posting_id":     posting.PostingID,
		"posting_title":  posting.Title,
		"owner_id":       posting.OwnerID,
		"proposal_id":    proposal.ProposalID,
		"submitter_id":   proposal.SubmitterID,
		"price":          proposal.Price,
		"rejected_count": rejectedCount,
	})
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        proposalHiredEventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    hiringSourceService,
		SchemaVersion:    proposalHiredSchemaLevel,
		PartitionKeyPath: "posting_id",
		PartitionKey:     posting.PostingID,
		SubjectID:        proposal.SubmitterID,
		Data:             data,
	}, nil
}

func buildHiredNotification(posting entities.Posting, proposal entities.Proposal, occurredAt time.Time) ports.Notification {
	return ports.Notification{
		Type:         hiredNotificationType,
		Message:      fmt.Sprintf("You have been hired for \"%s\"!", posting.Title),
		PostingID:    posting.PostingID,
		PostingTitle: posting.Title,
		ProposalID:   proposal.ProposalID,
		OccurredAt:   occurredAt.UTC(),
	}
}
