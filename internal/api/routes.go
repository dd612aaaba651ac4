package api

import "github.com/gorilla/mux"

func registerRoutes(r *mux.Router, s *Server) {
	registerHealthRoutes(r, s)
	registerFeedbackRoutes(r, s)
	registerStreamRoutes(r, s)
}

func registerHealthRoutes(r *mux.Router, s *Server) {
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET", "OPTIONS")
}

func registerFeedbackRoutes(r *mux.Router, s *Server) {
	r.HandleFunc("/api/v1/feedback", s.handleSubmitFeedback).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/v1/feedback/bulk", s.handleBulkFeedback).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/v1/history", s.handleHistory).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/v1/metrics", s.handleMetrics).Methods("GET", "OPTIONS")
}

func registerStreamRoutes(r *mux.Router, s *Server) {
	r.HandleFunc("/api/v1/stream", s.handleStream).Methods("GET", "OPTIONS")
}
