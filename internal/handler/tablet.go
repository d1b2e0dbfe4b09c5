package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/officine/bilan/internal/audit"
	"github.com/officine/bilan/internal/config"
	apperrors "github.com/officine/bilan/internal/errors"
	"github.com/officine/bilan/internal/httputil"
	"github.com/officine/bilan/internal/model"
	"github.com/officine/bilan/internal/service"
)

const (
	errMsgInvalidSex        = "Sexe de session absent ou invalide"
	errMsgInvalidBody       = "Corps de requete JSON invalide"
	errMsgMissingSid        = "Parametre sid manquant"
	errMsgInvalidResponses  = "Reponses manquantes ou invalides"
	errMsgQuestionnaireDown = "Questionnaire indisponible"
	errMsgInternal          = "Erreur interne du serveur"
)

type TabletHandler struct {
	qrService      *service.QRService
	catalogService *service.CatalogService
	captureService *service.CaptureService
	loaded         *LoadedSet
}

func NewTabletHandler(
	qrService *service.QRService,
	catalogService *service.CatalogService,
	captureService *service.CaptureService,
	loaded *LoadedSet,
) *TabletHandler {
	return &TabletHandler{
		qrService:      qrService,
		catalogService: catalogService,
		captureService: captureService,
		loaded:         loaded,
	}
}

// Routes is mounted under config.QuestionnairePath.
func (h *TabletHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeQuestionnaire)
	r.Post("/submit", h.SubmitResponses)

	return r
}

func (h *TabletHandler) deny(w http.ResponseWriter, r *http.Request, status int, sessionID, reason string) {
	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventAccessDenied,
		SessionID: sessionID,
		Details:   map[string]any{"reason": reason, "status": status},
	})
	writeDenied(w, status, reason)
}

// GET /questionnaire?v=&sid=&t=&sig=
func (h *TabletHandler) ServeQuestionnaire(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	sid := query.Get("sid")

	result := h.qrService.ValidateRequestParams(ctx, query.Get("v"), sid, query.Get("t"), query.Get("sig"))
	if !result.Valid {
		h.deny(w, r, http.StatusForbidden, sid, result.Error)
		return
	}

	session := result.Session
	if !session.HasValidSex() {
		h.deny(w, r, http.StatusForbidden, session.SessionID, errMsgInvalidSex)
		return
	}

	questionnaire, err := h.catalogService.LoadForSession(ctx, session.SessionID)
	if err != nil {
		status := httputil.StatusFromCode(apperrors.GetCode(err))
		if status != http.StatusNotFound {
			log.Error().Err(err).Str("sessionId", session.SessionID).Msg("failed to load questionnaire")
			h.deny(w, r, http.StatusInternalServerError, session.SessionID, errMsgQuestionnaireDown)
			return
		}
		appErr, _ := apperrors.AsAppError(err)
		h.deny(w, r, http.StatusNotFound, session.SessionID, appErr.Message)
		return
	}

	questions := model.FilterBySex(questionnaire.Questions, session.Sex)
	body, err := renderPage("questionnaire.html",
		newQuestionnairePage(session, questions, config.QuestionnairePath+"/submit"))
	if err != nil {
		log.Error().Err(err).Str("sessionId", session.SessionID).Msg("failed to render questionnaire")
		writeDenied(w, http.StatusInternalServerError, errMsgQuestionnaireDown)
		return
	}

	h.loaded.Add(session.SessionID)
	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventQuestionnaireServed,
		SessionID: session.SessionID,
		Details:   map[string]any{"ageRange": string(session.AgeRange), "questions": len(questions)},
	})

	httputil.WriteHTML(w, http.StatusOK, body)
}

type submitRequest struct {
	Sid         string          `json:"sid"`
	SubmittedAt string          `json:"submitted_at"`
	Responses   json.RawMessage `json:"responses"`
}

// POST /questionnaire/submit
func (h *TabletHandler) SubmitResponses(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	raw = bytes.TrimSpace(raw)
	if err != nil || len(raw) == 0 || raw[0] != '{' {
		writeError(w, http.StatusBadRequest, errMsgInvalidBody)
		return
	}

	var req submitRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, errMsgInvalidBody)
		return
	}

	if req.Sid == "" {
		writeError(w, http.StatusBadRequest, errMsgMissingSid)
		return
	}

	var responses []json.RawMessage
	list := bytes.TrimSpace(req.Responses)
	if len(list) == 0 || list[0] != '[' || json.Unmarshal(list, &responses) != nil {
		writeError(w, http.StatusBadRequest, errMsgInvalidResponses)
		return
	}

	record, err := h.captureService.SaveResponses(r.Context(), req.Sid, responses, req.SubmittedAt)
	if err != nil {
		code := apperrors.GetCode(err)
		if code == apperrors.ErrCodeValidation || code == apperrors.ErrCodeInvalidInput {
			appErr, _ := apperrors.AsAppError(err)
			audit.LogFromRequest(r, audit.Event{
				Type:      audit.EventSubmitRejected,
				SessionID: req.Sid,
				Details:   map[string]any{"reason": appErr.Message},
			})
			writeError(w, http.StatusBadRequest, appErr.Message)
			return
		}
		log.Error().Err(err).Str("sessionId", req.Sid).Msg("failed to save responses")
		writeError(w, http.StatusInternalServerError, errMsgInternal)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventResponsesSubmitted,
		SessionID: record.SessionID,
		Details:   map[string]any{"responses": record.ResponsesCount},
	})

	writeJSON(w, http.StatusOK, record)
}
