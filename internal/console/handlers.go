package console

import (
	"net/http"
	"strconv"
	"time"

	"github.com/brainzmonster/os/internal/api"
	"github.com/brainzmonster/os/internal/drafts"
	"github.com/brainzmonster/os/internal/llm"
	"github.com/brainzmonster/os/internal/metrics"
	"github.com/brainzmonster/os/internal/models"
	"github.com/brainzmonster/os/internal/trainer"
)

type queryPayload struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
}

type trainPayload struct {
	Texts  []string `json:"texts"`
	DryRun bool     `json:"dry_run"`
	Tags   []string `json:"tags"`
	Source string   `json:"source"`
	Safe   bool     `json:"safe"`
}

type estimatePayload struct {
	Texts []string `json:"texts"`
}

type trainResult struct {
	Mode      models.TrainingMode   `json:"mode"`
	Response  api.TrainResponse     `json:"response"`
	Stats     trainer.SanitizeStats `json:"stats"`
	LiveError string                `json:"live_error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Monitor.Snapshot())
}

func (s *Server) handleStatusRefresh(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	s.deps.Monitor.Refresh()
	// The probe runs asynchronously; the websocket push carries the
	// fresh result once it lands.
	writeJSON(w, http.StatusAccepted, s.deps.Monitor.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	report, err := s.deps.Client.Health(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleUptime(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	samples := s.deps.Monitor.Samples()
	if limit := parseLimit(r, s.opts.SampleLimit); len(samples) > limit {
		samples = samples[:limit]
	}
	writeJSON(w, http.StatusOK, metrics.ComputeSummary(samples))
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	window := s.opts.TimelineWindow
	if raw := r.URL.Query().Get("minutes"); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			window = time.Duration(minutes) * time.Minute
		}
	}
	points := s.opts.TimelinePoints
	if raw := r.URL.Query().Get("points"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 && value <= 500 {
			points = value
		}
	}

	end := time.Now().UTC()
	start := end.Add(-window)
	timeline := metrics.BuildTimeline(s.deps.Monitor.Samples(), start, end, points, s.opts.DegradedAbove)
	writeJSON(w, http.StatusOK, map[string]any{
		"range_start": start,
		"range_end":   end,
		"timeline":    timeline,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var payload queryPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	res, err := s.deps.LLM.Query(r.Context(), llm.Prompt{
		Text:         payload.Prompt,
		SystemPrompt: payload.SystemPrompt,
		MaxTokens:    payload.MaxTokens,
		Temperature:  payload.Temperature,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQueryHistory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	records := s.deps.LLM.History()
	if records == nil {
		records = []models.QueryRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var payload trainPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	req := trainer.Request{
		Texts:  payload.Texts,
		DryRun: payload.DryRun,
		Tags:   payload.Tags,
		Source: payload.Source,
	}

	var (
		out trainer.Outcome
		err error
	)
	if payload.Safe {
		out, err = s.deps.Trainer.SafeTrain(r.Context(), req)
	} else {
		out, err = s.deps.Trainer.Train(r.Context(), req)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	result := trainResult{Mode: out.Mode, Response: out.Response, Stats: out.Stats}
	if out.LiveErr != nil {
		result.LiveError = out.LiveErr.Error()
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTrainEstimate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var payload estimatePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	stats, err := s.deps.Trainer.Estimate(r.Context(), payload.Texts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleTrainSession(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	session, ok := s.deps.Trainer.Session()
	if !ok {
		writeError(w, trainer.ErrNoSession)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleTrainPoll(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	session, err := s.deps.Trainer.PollStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleTrainCancel(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	session, err := s.deps.Trainer.Cancel()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleTrainHistory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	entries := s.deps.Trainer.History()
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDrafts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if name := r.URL.Query().Get("name"); name != "" {
			draft, ok := s.deps.Drafts.Get(name)
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "draft not found"})
				return
			}
			writeJSON(w, http.StatusOK, draft)
			return
		}
		writeJSON(w, http.StatusOK, s.deps.Drafts.List())

	case http.MethodPost:
		var draft drafts.Draft
		if err := decodeJSON(r, &draft); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := s.deps.Drafts.Put(draft); err != nil {
			writeError(w, err)
			return
		}
		saved, _ := s.deps.Drafts.Get(draft.Name)
		writeJSON(w, http.StatusOK, saved)

	case http.MethodDelete:
		name := r.URL.Query().Get("name")
		removed, err := s.deps.Drafts.Delete(name)
		if err != nil {
			writeError(w, err)
			return
		}
		if !removed {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "draft not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})

	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}
