// Package hiringservice matches postings with proposals and guarantees that
// at most one proposal per posting is ever hired.
//
// Hiring runs in a unit of work scoped to one posting. The hired submitter is
// notified through the session registry only after the unit commits.
package hiringservice
