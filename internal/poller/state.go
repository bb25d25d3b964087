package poller

import "time"

type Phase string

const (
	PhaseStarting Phase = "starting"
	PhasePolling  Phase = "polling"
	PhaseDone     Phase = "done"
)

// Outcome is what the caller is told once the phase is done.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeRejected  Outcome = "rejected"
)

// State is the client's view of one submission.
type State struct {
	Phase       Phase
	JobID       string
	Attempts    int
	MaxAttempts int
	Elapsed     time.Duration
	Outcome     Outcome
	VideoURL    string
	Error       string
}

// NewState returns the starting state for a run bounded by maxAttempts polls.
func NewState(maxAttempts int) State {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return State{Phase: PhaseStarting, MaxAttempts: maxAttempts}
}

// Done reports whether no further observation can change the state.
func (s State) Done() bool {
	return s.Phase == PhaseDone
}

type ObservationKind int

const (
	// ObsSubmitted carries the job id from an accepted submission.
	ObsSubmitted ObservationKind = iota
	// ObsRejected is any non-success submission response.
	ObsRejected
	// ObsStatus is a successful status poll.
	ObsStatus
	// ObsTransient is a failed poll that says nothing about the job.
	ObsTransient
	// ObsNotFound is a status poll answered with 404.
	ObsNotFound
)

// Observation is one input to Advance.
type Observation struct {
	Kind     ObservationKind
	JobID    string
	Status   string
	VideoURL string
	Error    string
	Elapsed  time.Duration
}

// Advance is the whole polling policy. It has no side effects.
func Advance(s State, o Observation) State {
	if s.Done() {
		return s
	}
	s.Elapsed = o.Elapsed

	switch s.Phase {
	case PhaseStarting:
		switch o.Kind {
		case ObsSubmitted:
			s.Phase = PhasePolling
			s.JobID = o.JobID
		case ObsRejected, ObsTransient:
			s = finish(s, OutcomeRejected)
			s.Error = o.Error
		}
		return s

	case PhasePolling:
		switch o.Kind {
		case ObsStatus:
			s.Attempts++
			switch o.Status {
			case "completed":
				s = finish(s, OutcomeCompleted)
				s.VideoURL = o.VideoURL
				return s
			case "failed":
				s = finish(s, OutcomeFailed)
				s.Error = o.Error
				if s.Error == "" {
					s.Error = "Video generation failed"
				}
				return s
			}
		case ObsNotFound:
			s.Attempts++
			s = finish(s, OutcomeFailed)
			s.Error = "Job not found"
			return s
		case ObsTransient:
			s.Attempts++
		default:
			return s
		}
		if s.Attempts >= s.MaxAttempts {
			s = finish(s, OutcomeTimedOut)
			s.Error = "Timed out waiting for video generation"
		}
	}
	return s
}

func finish(s State, outcome Outcome) State {
	s.Phase = PhaseDone
	s.Outcome = outcome
	return s
}
