package web

import (
	"fmt"
	"net/http"

	"github.com/vbonduro/breedchat/internal/knowledge"
)

// referenceData is the subset of knowledge.Store the server requires.
type referenceData interface {
	BreedInfo(name string) (knowledge.Record, bool)
	DietPlan(name string) (knowledge.Record, bool)
	DietInfo(name, lifeStage string) (knowledge.Record, bool)
	BreedKeys() []string
	SampleQuestions() []string
}

func (s *Server) handleSampleQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"questions": s.knowledge.SampleQuestions()})
}

func (s *Server) handleAllBreeds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"breeds": s.knowledge.BreedKeys()})
}

func (s *Server) handleBreed(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	key := knowledge.Normalize(name)
	rec, ok := s.knowledge.BreedInfo(key)
	if !ok || rec.IsEmpty() {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Breed '%s' not found in database.", name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"breed": key, "data": rec})
}

func (s *Server) handleDiet(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	key := knowledge.Normalize(name)
	rec, ok := s.knowledge.DietPlan(key)
	if !ok || rec.IsEmpty() {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Diet plan for '%s' not found.", name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"breed": key, "diet": rec})
}

func (s *Server) handleDietStage(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.knowledge.DietInfo(pathParam(r, "name"), pathParam(r, "stage"))
	if !ok || rec.IsEmpty() {
		writeError(w, http.StatusNotFound, "Diet info not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
