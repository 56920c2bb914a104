package types

import "time"

type SubmissionStats struct {
	LastSubmission  time.Time `json:"last_submission"`
	Submissions     int64     `json:"submissions"`
	Duplicates      int64     `json:"duplicates"`
	Failures        int64     `json:"failures"`
	FailedLogins    int64     `json:"failed_logins"`
	ActiveSessions  int       `json:"active_sessions"`
	ExpiredSessions int64     `json:"expired_sessions"`
	StartTime       time.Time `json:"start_time"`
}
