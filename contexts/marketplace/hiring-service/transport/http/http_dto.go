package httptransport

type CreatePostingRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Budget      float64 `json:"budget"`
}

type PostingDTO struct {
	PostingID   string  `json:"posting_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Budget      float64 `json:"budget"`
	OwnerID     string  `json:"owner_id"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}

type PostingResponse struct {
	Item PostingDTO `json:"item"`
}

type ListPostingsResponse struct {
	Items []PostingDTO `json:"items"`
}

type SubmitProposalRequest struct {
	PostingID string  `json:"posting_id"`
	Message   string  `json:"message"`
	Price     float64 `json:"price"`
}

// UpdateProposalRequest changes a pending proposal. Omitted fields keep their
// current value.
type UpdateProposalRequest struct {
	Message string  `json:"message,omitempty"`
	Price   float64 `json:"price,omitempty"`
}

type WithdrawProposalResponse struct {
	ProposalID string `json:"proposal_id"`
	Withdrawn  bool   `json:"withdrawn"`
}

type ProposalDTO struct {
	ProposalID   string  `json:"proposal_id"`
	PostingID    string  `json:"posting_id"`
	PostingTitle string  `json:"posting_title,omitempty"`
	SubmitterID  string  `json:"submitter_id"`
	Message      string  `json:"message"`
	Price        float64 `json:"price"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

type ProposalResponse struct {
	Item ProposalDTO `json:"item"`
}

type ListProposalsResponse struct {
	Items []ProposalDTO `json:"items"`
}

type HireProposalResponse struct {
	Item          ProposalDTO `json:"item"`
	RejectedCount int         `json:"rejected_count"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
