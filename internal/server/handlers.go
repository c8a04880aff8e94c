package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"agentplan/internal/form"
	"agentplan/internal/guardrails"
	"agentplan/internal/library"
	"agentplan/internal/planner"
)

type listResponse struct {
	Plans      []planner.AgentPlan `json:"plans"`
	SelectedID string              `json:"selectedId"`
}

type validationResponse struct {
	Error  string                `json:"error"`
	Fields form.ValidationErrors `json:"fields"`
}

type violationResponse struct {
	Error      string                `json:"error"`
	Violations guardrails.Violations `json:"violations"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	plans, err := s.store.List()
	if err != nil {
		s.internalError(w, "list plans", err)
		return
	}
	selected, err := s.store.Selected()
	if err != nil {
		s.internalError(w, "read selection", err)
		return
	}
	plans = library.Search(plans, r.URL.Query().Get("q"))
	if plans == nil {
		plans = []planner.AgentPlan{}
	}
	JSON(w, http.StatusOK, listResponse{Plans: plans, SelectedID: selected})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeForm(w, r)
	if !ok {
		return
	}
	plan := s.gen.Generate(in)
	if err := s.store.Add(plan); err != nil {
		s.internalError(w, "store plan", err)
		return
	}
	s.logAudit("plan_created", map[string]any{"plan_id": plan.ID, "name": plan.Name})
	JSON(w, http.StatusCreated, plan)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.lookup(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	JSON(w, http.StatusOK, plan)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.lookup(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	in, ok := s.decodeForm(w, r)
	if !ok {
		return
	}
	plan := s.gen.Regenerate(existing, in)
	if err := s.store.Update(plan); err != nil {
		s.storeError(w, "update plan", err)
		return
	}
	s.logAudit("plan_updated", map[string]any{"plan_id": plan.ID})
	JSON(w, http.StatusOK, plan)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := s.store.Remove(id)
	if err != nil {
		s.internalError(w, "remove plan", err)
		return
	}
	if !removed {
		Error(w, http.StatusNotFound, fmt.Sprintf("plan %s not found", id))
		return
	}
	s.logAudit("plan_deleted", map[string]any{"plan_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Select(id); err != nil {
		s.storeError(w, "select plan", err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"selectedId": id})
}

func (s *Server) handleSelected(w http.ResponseWriter, r *http.Request) {
	plan, err := s.store.Active()
	if err != nil {
		s.storeError(w, "active plan", err)
		return
	}
	JSON(w, http.StatusOK, plan)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.lookup(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	data, err := planner.MarshalExport(planner.NewExport(plan, s.now()))
	if err != nil {
		s.internalError(w, "marshal export", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", planner.ExportFileName(plan, "-export.json")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.lookup(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	q := r.URL.Query()
	prompt := planner.ComposePrompt(planner.PromptInput{
		Plan:         plan,
		Persona:      q.Get("persona"),
		Angle:        q.Get("angle"),
		CallToAction: q.Get("cta"),
	})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, prompt)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	plans, err := planner.ParseImport(data)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	strict, _ := strconv.ParseBool(r.URL.Query().Get("strict"))
	if strict {
		if vs := guardrails.CheckPlans(plans); len(vs) > 0 {
			JSON(w, http.StatusUnprocessableEntity, violationResponse{Error: "plans violate guardrails", Violations: vs})
			return
		}
	}

	result, err := s.store.Import(plans)
	if err != nil {
		s.internalError(w, "import plans", err)
		return
	}
	s.logAudit("plans_imported", map[string]any{"added": result.Added, "replaced": result.Replaced})
	JSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reset(); err != nil {
		s.internalError(w, "reset library", err)
		return
	}
	s.logAudit("library_reset", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodeForm(w http.ResponseWriter, r *http.Request) (planner.Input, bool) {
	var f form.Form
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&f); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return planner.Input{}, false
	}
	in, err := form.Validate(f, "")
	var ves form.ValidationErrors
	if errors.As(err, &ves) {
		JSON(w, http.StatusUnprocessableEntity, validationResponse{Error: "validation failed", Fields: ves})
		return planner.Input{}, false
	}
	if err != nil {
		s.internalError(w, "validate form", err)
		return planner.Input{}, false
	}
	return in, true
}

func (s *Server) lookup(w http.ResponseWriter, id string) (planner.AgentPlan, bool) {
	plan, err := s.store.Get(id)
	if err != nil {
		s.storeError(w, "get plan", err)
		return planner.AgentPlan{}, false
	}
	return plan, true
}

func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, library.ErrNotFound) {
		Error(w, http.StatusNotFound, err.Error())
		return
	}
	s.internalError(w, op, err)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}
