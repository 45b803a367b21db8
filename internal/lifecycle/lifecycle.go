// Package lifecycle holds the legal status transitions for sermons and
// rendered clips.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/killallgit/sermon-clips/internal/models"
)

// ErrInvalidTransition is returned for any transition not in the tables.
var ErrInvalidTransition = errors.New("invalid status transition")

var sermonTransitions = map[models.SermonStatus][]models.SermonStatus{
	models.SermonStatusPending:     {models.SermonStatusUploaded, models.SermonStatusProcessing, models.SermonStatusError},
	models.SermonStatusUploaded:    {models.SermonStatusProcessing, models.SermonStatusError},
	models.SermonStatusProcessing:  {models.SermonStatusTranscribed, models.SermonStatusError},
	models.SermonStatusTranscribed: {models.SermonStatusError},
	models.SermonStatusError:       {models.SermonStatusProcessing},
}

var clipTransitions = map[string][]string{
	models.ClipStatusPending:    {models.ClipStatusProcessing, models.ClipStatusError},
	models.ClipStatusProcessing: {models.ClipStatusDone, models.ClipStatusError},
	models.ClipStatusDone:       {models.ClipStatusProcessing},
	models.ClipStatusError:      {models.ClipStatusProcessing},
}

// CanTransitionSermon reports whether a sermon may move from one status to
// another. Staying in the same status is not a transition.
func CanTransitionSermon(from, to models.SermonStatus) bool {
	for _, s := range sermonTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionSermon moves s to the given status, setting or clearing the
// error message.
func TransitionSermon(s *models.Sermon, to models.SermonStatus, errMsg string) error {
	if !CanTransitionSermon(s.Status, to) {
		return fmt.Errorf("%w: sermon %d %s -> %s", ErrInvalidTransition, s.ID, s.Status, to)
	}
	s.Status = to
	if to == models.SermonStatusError {
		s.ErrorMessage = errMsg
	} else {
		s.ErrorMessage = ""
	}
	return nil
}

// CanSetFlags reports whether the suggested and embedded flags may be set,
// which requires a transcript.
func CanSetFlags(s *models.Sermon) bool {
	return s.Status == models.SermonStatusTranscribed
}

// CanTransitionClip reports whether a rendered clip may move between
// statuses. Auto suggestions never render.
func CanTransitionClip(from, to string) bool {
	for _, s := range clipTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionClip moves c to the given status.
func TransitionClip(c *models.Clip, to string, errMsg string) error {
	if c.IsSuggestion() || !CanTransitionClip(c.Status, to) {
		return fmt.Errorf("%w: clip %d %s -> %s", ErrInvalidTransition, c.ID, c.Status, to)
	}
	c.Status = to
	if to == models.ClipStatusError {
		c.ErrorMessage = errMsg
	} else {
		c.ErrorMessage = ""
	}
	return nil
}
