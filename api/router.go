package api

import (
	"github.com/gorilla/mux"

	"github.com/vainnor/fatigue-report/flow"
)

// NewRouter creates and configures a new router with all form and operator endpoints
func NewRouter(h *Handler, operatorKey string) *mux.Router {
	r := mux.NewRouter()

	// Form pages
	r.HandleFunc("/", h.Index).Methods("GET")
	r.HandleFunc("/download", h.Download).Methods("GET")
	r.HandleFunc("/healthz", h.Health).Methods("GET")

	// Login is rate limited per client address
	login := NewRateLimiter(maxLoginAttempts, loginWindow)
	r.Handle("/login", login.Limit(h.Action(parseLogin))).Methods("POST")
	r.HandleFunc("/logout", h.Action(fixed(flow.Logout{}))).Methods("POST")

	// Flow actions
	r.HandleFunc("/entry", h.Action(h.parseEntry)).Methods("POST")
	r.HandleFunc("/edit", h.Action(fixed(flow.Edit{}))).Methods("POST")
	r.HandleFunc("/confirm", h.Action(fixed(flow.Confirm{}))).Methods("POST")
	r.HandleFunc("/pvt/start", h.Action(fixed(flow.PVTStart{}))).Methods("POST")
	r.HandleFunc("/pvt/react", h.Action(fixed(flow.PVTReact{}))).Methods("POST")
	r.HandleFunc("/pvt/retry", h.Action(fixed(flow.PVTRetry{}))).Methods("POST")
	r.HandleFunc("/pvt/accept", h.Action(fixed(flow.PVTAccept{}))).Methods("POST")
	r.HandleFunc("/history", h.Action(fixed(flow.ViewHistory{}))).Methods("POST")
	r.HandleFunc("/new", h.Action(fixed(flow.NewReport{}))).Methods("POST")

	// Operator endpoints
	api := r.PathPrefix("/api").Subrouter()
	api.Use(RequireOperatorKey(operatorKey))
	api.HandleFunc("/stats", h.GetStats).Methods("GET")

	return r
}
