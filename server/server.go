// Package server exposes a running flight over HTTP.
package server

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gonum.org/v1/gonum/spatial/r3"

	rocket "github.com/MalikTzys/Rocket-With-Aerodynamic"
)

// Server reads the latest snapshot and queues commands for the next tick.
type Server struct {
	snapshots *rocket.SnapshotStore
	commands  *rocket.CommandQueue
}

// New constructs the HTTP router. The metrics handler is mounted at /metrics unless nil.
func New(snapshots *rocket.SnapshotStore, commands *rocket.CommandQueue, metrics http.Handler) http.Handler {
	s := &Server{snapshots: snapshots, commands: commands}
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/state", s.handleState)
	r.Post("/sim/pause", s.handleSimPause)
	r.Post("/sim/reset", s.handleSimReset)
	r.Post("/sim/speed", s.handleSimSpeed)
	r.Post("/sim/command", s.handleSimCommand)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	return r
}

type stateResponse struct {
	Time            float64          `json:"time"`
	Status          rocket.Status    `json:"status"`
	TimeScale       float64          `json:"time_scale"`
	Throttle        float64          `json:"throttle"`
	DragCoefficient float64          `json:"drag_coefficient"`
	Position        [3]float64       `json:"position"`
	Velocity        [3]float64       `json:"velocity"`
	AngularVelocity [3]float64       `json:"angular_velocity"`
	Orientation     [4]float64       `json:"orientation"`
	DryMass         float64          `json:"dry_mass"`
	FuelMass        float64          `json:"fuel_mass"`
	Telemetry       rocket.Telemetry `json:"telemetry"`
	Events          []rocket.Event   `json:"events"`
}

func vec(v r3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func newStateResponse(snap rocket.Snapshot) stateResponse {
	st := snap.State
	q := st.Orientation
	events := snap.Events
	if events == nil {
		events = []rocket.Event{}
	}
	return stateResponse{
		Time:            snap.Time,
		Status:          snap.Status,
		TimeScale:       snap.TimeScale,
		Throttle:        snap.Throttle,
		DragCoefficient: snap.DragCoefficient,
		Position:        vec(st.Position),
		Velocity:        vec(st.Velocity),
		AngularVelocity: vec(st.AngularVelocity),
		Orientation:     [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag},
		DryMass:         st.DryMass,
		FuelMass:        st.FuelMass,
		Telemetry:       snap.Telemetry,
		Events:          events,
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshots.Latest()
	if !ok {
		writeJSONError(w, http.StatusServiceUnavailable, "simulation not started")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(newStateResponse(snap))
}

// queue queues cmd and answers with the latest snapshot, which does not reflect it yet.
func (s *Server) queue(w http.ResponseWriter, cmd rocket.Command) {
	s.commands.Push(cmd)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	snap, _ := s.snapshots.Latest()
	_ = json.NewEncoder(w).Encode(newStateResponse(snap))
}

func (s *Server) handleSimPause(w http.ResponseWriter, r *http.Request) {
	s.queue(w, rocket.Command{Pause: true})
}

func (s *Server) handleSimReset(w http.ResponseWriter, r *http.Request) {
	s.queue(w, rocket.Command{Reset: true})
}

func (s *Server) handleSimSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta float64 `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || math.IsNaN(req.Delta) || req.Delta == 0 {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	s.queue(w, rocket.Command{TimeScaleDelta: req.Delta})
}

func (s *Server) handleSimCommand(w http.ResponseWriter, r *http.Request) {
	var cmd rocket.Command
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	if cmd.Pitch < -1 || cmd.Pitch > 1 || cmd.Yaw < -1 || cmd.Yaw > 1 || cmd.Roll < -1 || cmd.Roll > 1 {
		writeJSONError(w, http.StatusBadRequest, "attitude inputs must be within [-1, 1]")
		return
	}
	s.queue(w, cmd)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
