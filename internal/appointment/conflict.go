package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ConflictResult holds the first overlapping active appointment found for
// each participant. Either side may be nil.
type ConflictResult struct {
	Professional *Appointment `json:"professional,omitempty"`
	Patient      *Appointment `json:"patient,omitempty"`
}

// Blocked reports whether the candidate is a hard double booking.
func (r ConflictResult) Blocked() bool {
	return r.Professional != nil || r.Patient != nil
}

// Messages describes each conflict with the window it occupies.
func (r ConflictResult) Messages(loc *time.Location) []string {
	var out []string
	if r.Professional != nil {
		out = append(out, fmt.Sprintf("The professional already has an appointment at %s", r.Professional.Window(loc)))
	}
	if r.Patient != nil {
		out = append(out, fmt.Sprintf("The patient already has an appointment at %s", r.Patient.Window(loc)))
	}
	return out
}

// ConflictChecker runs the double-booking lookups for both participants.
type ConflictChecker struct {
	repo Repository
}

func NewConflictChecker(repo Repository) *ConflictChecker {
	return &ConflictChecker{repo: repo}
}

// Check queries the professional and patient axes concurrently and waits for
// both before returning. exclude is the appointment being edited or
// rescheduled, uuid.Nil for a fresh booking.
func (c *ConflictChecker) Check(ctx context.Context, cand Candidate, exclude uuid.UUID) (ConflictResult, error) {
	var res ConflictResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := c.repo.FindOverlapping(gctx, OverlapQuery{
			Axis:      AxisProfessional,
			ID:        cand.ProfessionalID,
			Start:     cand.Start,
			End:       cand.End,
			ExcludeID: exclude,
		})
		if err != nil {
			return fmt.Errorf("find professional conflict: %w", err)
		}
		res.Professional = a
		return nil
	})
	g.Go(func() error {
		a, err := c.repo.FindOverlapping(gctx, OverlapQuery{
			Axis:      AxisPatient,
			ID:        cand.PatientID,
			Start:     cand.Start,
			End:       cand.End,
			ExcludeID: exclude,
		})
		if err != nil {
			return fmt.Errorf("find patient conflict: %w", err)
		}
		res.Patient = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return ConflictResult{}, err
	}
	return res, nil
}
