package postgresadapter

import (
	"time"

	"gigflow/contexts/marketplace/hiring-service/domain/entities"
	"gigflow/contexts/marketplace/hiring-service/ports"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"

	oneHiredPerPostingIndex = "proposals_one_hired_per_posting"
	uniqueSubmitterIndex    = "proposals_unique_submitter_per_posting"
)

type postingModel struct {
	PostingID   string    `gorm:"column:posting_id;primaryKey"`
	Title       string    `gorm:"column:title;not null"`
	Description string    `gorm:"column:description;not null"`
	Budget      float64   `gorm:"column:budget;not null"`
	OwnerID     string    `gorm:"column:owner_id;not null;index"`
	Status      string    `gorm:"column:status;not null"`
	Version     int64     `gorm:"column:version;not null;default:1"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (postingModel) TableName() string {
	return "postings"
}

func postingModelFromEntity(posting entities.Posting) postingModel {
	version := posting.Version
	if version == 0 {
		version = 1
	}
	return postingModel{
		PostingID:   posting.PostingID,
		Title:       posting.Title,
		Description: posting.Description,
		Budget:      posting.Budget,
		OwnerID:     posting.OwnerID,
		Status:      string(posting.Status),
		Version:     version,
		CreatedAt:   posting.CreatedAt.UTC(),
		UpdatedAt:   posting.UpdatedAt.UTC(),
	}
}

func (m postingModel) toEntity() entities.Posting {
	return entities.Posting{
		PostingID:   m.PostingID,
		Title:       m.Title,
		Description: m.Description,
		Budget:      m.Budget,
		OwnerID:     m.OwnerID,
		Status:      entities.PostingStatus(m.Status),
		Version:     m.Version,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

type proposalModel struct {
	ProposalID  string    `gorm:"column:proposal_id;primaryKey"`
	PostingID   string    `gorm:"column:posting_id;not null;uniqueIndex:proposals_unique_submitter_per_posting,priority:1"`
	SubmitterID string    `gorm:"column:submitter_id;not null;index;uniqueIndex:proposals_unique_submitter_per_posting,priority:2"`
	Message     string    `gorm:"column:message;not null"`
	Price       float64   `gorm:"column:price;not null"`
	Status      string    `gorm:"column:status;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (proposalModel) TableName() string {
	return "proposals"
}

func proposalModelFromEntity(proposal entities.Proposal) proposalModel {
	return proposalModel{
		ProposalID:  proposal.ProposalID,
		PostingID:   proposal.PostingID,
		SubmitterID: proposal.SubmitterID,
		Message:     proposal.Message,
		Price:       proposal.Price,
		Status:      string(proposal.Status),
		CreatedAt:   proposal.CreatedAt.UTC(),
		UpdatedAt:   proposal.UpdatedAt.UTC(),
	}
}

func (m proposalModel) toEntity() entities.Proposal {
	return entities.Proposal{
		ProposalID:  m.ProposalID,
		PostingID:   m.PostingID,
		SubmitterID: m.SubmitterID,
		Message:     m.Message,
		Price:       m.Price,
		Status:      entities.ProposalStatus(m.Status),
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "hiring_outbox"
}

func (m outboxModel) toPort() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      append([]byte(nil), m.Payload...),
		CreatedAt:    m.CreatedAt.UTC(),
	}
}
