package services

import (
	"strings"
	"time"

	"github.com/campushub/backend/internal/models"
)

// Rejection reasons surfaced to clients so the UI can say "this poll
// has ended" rather than a generic failure.
const (
	VoteReasonExpired              = "expired"
	VoteReasonAlreadyVoted         = "already-voted"
	VoteReasonSingleChoiceLocked   = "single-choice-locked"
	VoteReasonMaxSelectionsReached = "max-selections-reached"
	VoteReasonInvalidOption        = "invalid-option"
	AddOptionReasonEmptyText       = "empty-text"
)

type VoteDecision struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// PollExpired reports whether the poll is past its deadline at the
// given instant. The boundary is inclusive: a poll expiring exactly
// now is expired. Expiry is re-derived on every read; there is no
// background transition.
func PollExpired(poll *models.Poll, now time.Time) bool {
	return !now.Before(poll.ExpiresAt)
}

// VoterSelections returns the indices of options whose voter set
// contains voterID.
func VoterSelections(poll *models.Poll, voterID string) []int {
	var selected []int
	for i, option := range poll.Options {
		for _, id := range option.Voters {
			if id == voterID {
				selected = append(selected, i)
				break
			}
		}
	}
	return selected
}

// CanVote decides whether a vote attempt is accepted. Pure; the caller
// persists via ApplyVote inside a transaction.
func CanVote(poll *models.Poll, optionIndex int, voterID string, now time.Time) VoteDecision {
	if PollExpired(poll, now) {
		return VoteDecision{Reason: VoteReasonExpired}
	}
	if optionIndex < 0 || optionIndex >= len(poll.Options) {
		return VoteDecision{Reason: VoteReasonInvalidOption}
	}

	selections := VoterSelections(poll, voterID)
	for _, idx := range selections {
		if idx == optionIndex {
			return VoteDecision{Reason: VoteReasonAlreadyVoted}
		}
	}

	if !poll.AllowMultiple && len(selections) > 0 {
		return VoteDecision{Reason: VoteReasonSingleChoiceLocked}
	}
	if poll.AllowMultiple && len(selections) >= poll.MaxSelections {
		return VoteDecision{Reason: VoteReasonMaxSelectionsReached}
	}

	return VoteDecision{Accepted: true}
}

// ApplyVote appends voterID to the chosen option and recomputes the
// tallies from the voter sets. Counts are never incremented
// independently, so they cannot drift from set membership. Votes are
// append-only; there is no unvote.
func ApplyVote(poll models.Poll, optionIndex int, voterID string) models.Poll {
	options := make([]models.PollOption, len(poll.Options))
	copy(options, poll.Options)

	option := options[optionIndex]
	voters := make([]string, 0, len(option.Voters)+1)
	voters = append(voters, option.Voters...)
	voters = append(voters, voterID)
	option.Voters = voters
	option.Votes = len(voters)
	options[optionIndex] = option

	poll.Options = options
	poll.TotalVotes = sumVotes(options)
	return poll
}

type AddOptionDecision struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// CanAddOption gates the add-option flow: open poll, non-blank text.
func CanAddOption(poll *models.Poll, text string, now time.Time) AddOptionDecision {
	if PollExpired(poll, now) {
		return AddOptionDecision{Reason: VoteReasonExpired}
	}
	if strings.TrimSpace(text) == "" {
		return AddOptionDecision{Reason: AddOptionReasonEmptyText}
	}
	return AddOptionDecision{Accepted: true}
}

// ApplyAddOption appends a fresh option. Existing tallies are
// untouched; TotalVotes only moves once someone votes for it.
// MaxSelections is deliberately not re-validated against the grown
// option count.
func ApplyAddOption(poll models.Poll, text string) models.Poll {
	options := make([]models.PollOption, 0, len(poll.Options)+1)
	options = append(options, poll.Options...)
	options = append(options, models.PollOption{Text: strings.TrimSpace(text), Voters: []string{}})
	poll.Options = options
	return poll
}

// ClampMaxSelections bounds the cap to [1, optionCount] at poll
// creation time. It is not applied again after creation.
func ClampMaxSelections(requested, optionCount int) int {
	if requested < 1 {
		return 1
	}
	if requested > optionCount {
		return optionCount
	}
	return requested
}

func sumVotes(options []models.PollOption) int {
	total := 0
	for _, option := range options {
		total += option.Votes
	}
	return total
}
