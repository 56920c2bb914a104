package flow

import "github.com/vainnor/fatigue-report/models"

// Action is one explicit user action
type Action interface {
	name() string
}

type (
	Login struct {
		PilotID  string
		Password string
	}
	SubmitEntry struct {
		Draft models.Draft
	}
	Edit        struct{}
	Confirm     struct{}
	PVTStart    struct{}
	PVTReact    struct{}
	PVTRetry    struct{}
	PVTAccept   struct{}
	ViewHistory struct{}
	NewReport   struct{}
	Logout      struct{}
)

func (Login) name() string       { return "login" }
func (SubmitEntry) name() string { return "submit_entry" }
func (Edit) name() string        { return "edit" }
func (Confirm) name() string     { return "confirm" }
func (PVTStart) name() string    { return "pvt_start" }
func (PVTReact) name() string    { return "pvt_react" }
func (PVTRetry) name() string    { return "pvt_retry" }
func (PVTAccept) name() string   { return "pvt_accept" }
func (ViewHistory) name() string { return "view_history" }
func (NewReport) name() string   { return "new_report" }
func (Logout) name() string      { return "logout" }
