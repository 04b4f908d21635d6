package entities

import (
	"strings"
	"time"

	domainerrors "gigflow/contexts/marketplace/hiring-service/domain/errors"
)

type PostingStatus string

const (
	PostingStatusOpen     PostingStatus = "open"
	PostingStatusAssigned PostingStatus = "assigned"
)

type Posting struct {
	PostingID   string
	Title       string
	Description string
	Budget      float64
	OwnerID     string
	Status      PostingStatus
	// Version increments on every committed status write and backs the
	// compare-and-swap check stores apply at commit.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewPosting(
	postingID string,
	ownerID string,
	title string,
	description string,
	budget float64,
	createdAt time.Time,
) (Posting, error) {
	if strings.TrimSpace(postingID) == "" || strings.TrimSpace(ownerID) == "" {
		return Posting{}, domainerrors.ErrInvalidPosting
	}
	if strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "" || budget <= 0 {
		return Posting{}, domainerrors.ErrInvalidPosting
	}
	return Posting{
		PostingID:   postingID,
		Title:       strings.TrimSpace(title),
		Description: description,
		Budget:      budget,
		OwnerID:     ownerID,
		Status:      PostingStatusOpen,
		Version:     1,
		CreatedAt:   createdAt.UTC(),
		UpdatedAt:   createdAt.UTC(),
	}, nil
}

func (p Posting) IsOpen() bool {
	return p.Status == PostingStatusOpen
}

func (p Posting) IsOwnedBy(userID string) bool {
	return userID != "" && p.OwnerID == userID
}

// Assign applies the one-way open -> assigned transition.
func (p Posting) Assign(at time.Time) (Posting, error) {
	if !p.IsOpen() {
		return p, domainerrors.ErrPostingAssigned
	}
	p.Status = PostingStatusAssigned
	p.UpdatedAt = at.UTC()
	return p, nil
}
