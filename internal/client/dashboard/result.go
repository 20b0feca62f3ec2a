package dashboard

import (
	"errors"
	"time"

	"github.com/prajyotgorlewar/BattleIDE/internal/model"
)

const (
	ErrorUsername  = "Error"
	ErrorAvatarURL = "https://placehold.co/128x128/000000/e00?text=ERR"

	// RequestFailedMessage is shown when either dashboard request is rejected.
	RequestFailedMessage = "Failed to fetch all dashboard data."
)

var (
	ErrTokenRetrieval = errors.New("token retrieval failed")
	ErrRequestFailed  = errors.New("failed to fetch all dashboard data")
	ErrNetwork        = errors.New("dashboard request failed")
)

// Result is either Success or Failure.
type Result interface {
	isResult()
}

type Success struct {
	Profile     model.User
	Leaderboard []model.LeaderboardEntry
}

// Failure carries the placeholder profile shown when the dashboard cannot
// be loaded, an empty leaderboard and the cause.
type Failure struct {
	Profile     model.User
	Leaderboard []model.LeaderboardEntry
	Err         error
}

func (Success) isResult() {}
func (Failure) isResult() {}

// Message is the text displayed in place of the dashboard. A rejected
// request reads RequestFailedMessage; other causes show their own error.
func (f Failure) Message() string {
	if f.Err == nil || errors.Is(f.Err, ErrRequestFailed) {
		return RequestFailedMessage
	}
	return f.Err.Error()
}

// SentinelProfile is the profile substituted for the real one on failure.
func SentinelProfile(now time.Time) model.User {
	return model.User{
		Username:    ErrorUsername,
		Rating:      0,
		Matches:     []string{},
		Submissions: []model.Submission{},
		AvatarURL:   ErrorAvatarURL,
		CreatedAt:   now,
	}
}

func newFailure(err error, now time.Time) Failure {
	return Failure{
		Profile:     SentinelProfile(now),
		Leaderboard: []model.LeaderboardEntry{},
		Err:         err,
	}
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return ErrRequestFailed.Error()
}

func (e *StatusError) Unwrap() error { return ErrRequestFailed }
