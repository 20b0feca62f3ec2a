package model

import "time"

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionAccepted SubmissionStatus = "accepted"
	SubmissionRejected SubmissionStatus = "rejected"
	SubmissionError    SubmissionStatus = "error"
)

type Submission struct {
	ID        string           `bson:"id" json:"id"`
	ProblemID string           `bson:"problemId" json:"problemId"`
	MatchID   string           `bson:"matchId,omitempty" json:"matchId,omitempty"`
	Language  string           `bson:"language" json:"language"`
	Status    SubmissionStatus `bson:"status" json:"status"`
	CreatedAt time.Time        `bson:"createdAt" json:"createdAt"`
}

// User is the profile record served by /api/users/me. AuthID is the subject
// issued by the identity provider.
type User struct {
	ID          string       `bson:"_id,omitempty" json:"_id" gorm:"column:id;primaryKey"`
	AuthID      string       `bson:"clerkId" json:"clerkId" gorm:"column:clerk_id;uniqueIndex"`
	Username    string       `bson:"username" json:"username" gorm:"column:username;index"`
	Email       string       `bson:"email,omitempty" json:"email,omitempty" gorm:"column:email"`
	AvatarURL   string       `bson:"avatarUrl" json:"avatarUrl" gorm:"column:avatar_url"`
	Rating      int          `bson:"rating" json:"rating" gorm:"column:rating;index"`
	Matches     []string     `bson:"matches" json:"matches" gorm:"column:matches;serializer:json"`
	Submissions []Submission `bson:"submissions" json:"submissions" gorm:"column:submissions;serializer:json"`
	CreatedAt   time.Time    `bson:"createdAt" json:"createdAt" gorm:"column:created_at"`
}

func (User) TableName() string { return "users" }

type LeaderboardEntry struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
	Rating    int    `json:"rating"`
	Rank      int    `json:"rank"`
}
