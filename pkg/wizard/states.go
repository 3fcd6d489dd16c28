package wizard

import "fmt"

// State is a step of the release wizard.
type State string

// Wizard states in the order a successful release visits them.
const (
	StateCheckClean         State = "CHECK_CLEAN"
	StateUpdateContributors State = "UPDATE_CONTRIBUTORS"
	StateTestBuild          State = "TEST_BUILD"
	StateConfirmOk          State = "CONFIRM_OK"
	StateTagAndPush         State = "TAG_AND_PUSH"
	StatePublishRelease     State = "PUBLISH_RELEASE"
	StateWaitForCI          State = "WAIT_FOR_CI"
	StateBumpVersion        State = "BUMP_VERSION"
	StateCommitAndPush      State = "COMMIT_AND_PUSH"
	StateDone               State = "DONE"
	StateError              State = "ERROR"
)

// Transitions defines the wizard's state machine. Every state may also fail into ERROR.
// There is no path back: a failed or rejected release is restarted from scratch.
//
//nolint:gochecknoglobals // Static transition table.
var Transitions = map[State][]State{
	StateCheckClean:         {StateUpdateContributors},
	StateUpdateContributors: {StateTestBuild},
	StateTestBuild:          {StateConfirmOk},
	StateConfirmOk:          {StateTagAndPush},
	StateTagAndPush:         {StatePublishRelease},
	StatePublishRelease:     {StateWaitForCI},
	StateWaitForCI:          {StateBumpVersion},
	StateBumpVersion:        {StateCommitAndPush},
	StateCommitAndPush:      {StateDone},
}

// IsValidTransition reports whether the wizard may move from one state to another.
func IsValidTransition(from, to State) bool {
	if to == StateError {
		_, known := Transitions[from]
		return known
	}
	for _, s := range Transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Title is the banner shown when a state starts.
func (s State) Title() string {
	switch s {
	case StateCheckClean:
		return "Checking working tree"
	case StateUpdateContributors:
		return "Updating contributors"
	case StateTestBuild:
		return "Building test release"
	case StateConfirmOk:
		return "Testing the release"
	case StateTagAndPush:
		return "Tagging release"
	case StatePublishRelease:
		return "Publishing release"
	case StateWaitForCI:
		return "Waiting for CI"
	case StateBumpVersion:
		return "Bumping version"
	case StateCommitAndPush:
		return "Committing version bump"
	case StateDone:
		return "Done"
	default:
		return fmt.Sprintf("Unknown state %s", string(s))
	}
}
