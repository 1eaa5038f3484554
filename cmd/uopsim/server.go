package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sarchlab/uopsim/system"
)

// newRouter serves the live statistics of s.
func newRouter(s *system.System) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/cores", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, s.Stats())
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/cores/{id}", func(w http.ResponseWriter, req *http.Request) {
		c, ok := s.Lookup(mux.Vars(req)["id"])
		if !ok {
			http.NotFound(w, req)
			return
		}
		writeJSON(w, c.Stats())
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/cores/{id}/engine", func(w http.ResponseWriter, req *http.Request) {
		c, ok := s.Lookup(mux.Vars(req)["id"])
		if !ok {
			http.NotFound(w, req)
			return
		}

		if rs, ok := c.RobStats(); ok {
			writeJSON(w, rs)
			return
		}
		is, _ := c.IntervalStats()
		writeJSON(w, is)
	}).Methods(http.MethodGet)

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
