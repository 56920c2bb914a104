package api

import (
	"embed"
	"html/template"
	"strconv"
	"time"

	"github.com/vainnor/fatigue-report/flow"
	"github.com/vainnor/fatigue-report/models"
	"github.com/vainnor/fatigue-report/types"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("page.html").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.Format(types.DateLayout) },
	"ms":   func(v float64) string { return formatMs(v) },
	"add":  func(a, b int) int { return a + b },
}).ParseFS(templateFS, "templates/page.html"))

type pvtView struct {
	Attempts    []models.PVTAttempt
	InProgress  int
	Trials      int
	Armed       bool
	DelayMs     int64
	CanStart    bool
	Best        *types.PVTResult
	AttemptsMax int
}

type page struct {
	Step        models.Step
	Message     *models.Message
	Options     flow.Options
	PilotID     string
	LoggedIn    bool
	Draft       models.Draft
	KSS         types.Scale
	SP          types.Scale
	Phases      []types.FlightPhase
	FlightTypes []string
	Columns     []string
	Review      []string
	PVT         pvtView
	Submitted   []string
	HasDownload bool
	CanHistory  bool
	History     [][]string
}

func (h *Handler) buildPage(s *models.Session) page {
	opts := h.flow.Options()
	cols := opts.Columns()

	p := page{
		Step:        s.Step,
		Message:     s.TakeMessage(),
		Options:     opts,
		PilotID:     s.PilotID,
		LoggedIn:    s.Authenticated,
		Draft:       s.Draft,
		KSS:         types.KSS,
		SP:          types.SP,
		Phases:      types.FlightPhases,
		FlightTypes: opts.FlightTypes,
		Columns:     cols,
		HasDownload: s.LastExport != nil,
		CanHistory:  h.flow.CanViewHistory(),
	}

	switch s.Step {
	case models.StepReview:
		p.Review = h.flow.Record(s).Row(cols)
	case models.StepPVT:
		p.PVT = pvtView{
			Attempts:    s.PVT.Attempts,
			InProgress:  len(s.PVT.InProgress),
			Trials:      h.flow.PVTTrials(),
			Armed:       s.PVT.StimulusAt != nil,
			CanStart:    len(s.PVT.Attempts) < flow.MaxPVTAttempts,
			AttemptsMax: flow.MaxPVTAttempts,
		}
		if s.PVT.StimulusAt != nil {
			if d := s.PVT.StimulusAt.Sub(h.now()); d > 0 {
				p.PVT.DelayMs = d.Milliseconds()
			}
		}
		if best, ok := flow.BestPVT(s.PVT); ok {
			p.PVT.Best = &best
		}
	case models.StepDone:
		if s.Submitted != nil {
			p.Submitted = s.Submitted.Row(cols)
		}
	case models.StepHistory:
		for _, rec := range s.History {
			p.History = append(p.History, rec.Row(cols))
		}
	}
	return p
}

func formatMs(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
