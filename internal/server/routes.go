package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) routes(r chi.Router) {
	r.Use(s.limitBody)

	r.Get("/health", s.health)
	r.Post("/verify-code", s.verifyCode)
	r.Post("/store-code", s.storeCode)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/tables", s.listTables)
		r.Get("/tables/{name}", s.getTable)
		r.Post("/tables/{name}/rows", s.createRow)
		r.Put("/tables/{name}/rows", s.updateRow)
		r.Delete("/tables/{name}/rows", s.deleteRow)

		r.Get("/files", s.listFiles)
		r.Post("/files/folder", s.createFolder)
		r.Post("/files/upload", s.uploadFile)
		r.Get("/files/{id}", s.getFile)
		r.Delete("/files/{id}", s.deleteFile)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}
